package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"configurator-service/internal/clients"
	"configurator-service/internal/models"
	"configurator-service/internal/repository"
)

// CatalogReader is the products-service surface the configurator consumes
type CatalogReader interface {
	GetConfiguratorProduct(ctx context.Context, tenantID, productID string) (*models.ConfiguratorProduct, error)
	GetRelatedProducts(ctx context.Context, tenantID, productID string) ([]models.CrossSellSuggestion, error)
	InvalidateDescriptor(ctx context.Context, tenantID, productID string)
}

// CartWriter hands a finalized configuration to the cart
type CartWriter interface {
	AddConfiguredItem(ctx context.Context, tenantID string, item clients.AddCartItemRequest) (string, error)
}

// EventBus publishes configurator lifecycle events
type EventBus interface {
	PublishCommitted(ctx context.Context, tenantID string, session *models.Session, cartItemID string)
	PublishSessionClosed(tenantID, sessionID, productID, reason string)
}

// ValidationFailedError blocks a commit; it carries the full error list
type ValidationFailedError struct {
	Errors []string
}

func (e *ValidationFailedError) Error() string {
	return "configuration is not valid: " + strings.Join(e.Errors, "; ")
}

// ConfiguratorService owns configuration sessions: it loads the catalog
// descriptor once per session, applies mutations through a single recompute
// transition, and gates commits behind explicit validation.
type ConfiguratorService struct {
	store     *repository.SessionStore
	catalog   CatalogReader
	cart      CartWriter
	publisher EventBus
	logger    *logrus.Entry

	rulesMu sync.RWMutex
	rules   map[string]RuleSet
}

// NewConfiguratorService creates the session service
func NewConfiguratorService(
	store *repository.SessionStore,
	catalog CatalogReader,
	cart CartWriter,
	publisher EventBus,
	logger *logrus.Logger,
) *ConfiguratorService {
	return &ConfiguratorService{
		store:     store,
		catalog:   catalog,
		cart:      cart,
		publisher: publisher,
		logger:    logger.WithField("component", "configurator-service"),
		rules:     make(map[string]RuleSet),
	}
}

// StartSession fetches the product's configurator descriptor, seeds the
// selections from its defaults and runs the first recompute. A fetch failure
// propagates and no session is created.
func (s *ConfiguratorService) StartSession(ctx context.Context, tenantID, productID string) (*models.Session, error) {
	product, err := s.catalog.GetConfiguratorProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product configuration: %w", err)
	}

	sessionID := uuid.New().String()
	ruleSet := CompileOptionRules(product)
	s.rulesMu.Lock()
	s.rules[sessionID] = ruleSet
	s.rulesMu.Unlock()

	selections, snapshot := Recompute(product, ruleSet, models.SelectionsFromDefaults(product))

	now := time.Now().UTC()
	session := &models.Session{
		ID:         sessionID,
		TenantID:   tenantID,
		ProductID:  productID,
		Product:    product,
		Selections: selections,
		Snapshot:   snapshot,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.store.Put(session)

	s.logger.WithFields(logrus.Fields{
		"sessionId": sessionID,
		"productId": productID,
		"tenantId":  tenantID,
	}).Info("Configuration session started")
	return session.Detach(), nil
}

// GetSession returns a detached view of the session
func (s *ConfiguratorService) GetSession(tenantID, sessionID string) (*models.Session, error) {
	session, err := s.store.Get(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Detach(), nil
}

// SetOption sets or clears one option value. A nil or empty value removes
// the selection for that option.
func (s *ConfiguratorService) SetOption(tenantID, sessionID, optionID string, value *models.SelectionValue) (*models.Session, error) {
	return s.mutate(tenantID, sessionID, func(product *models.ConfiguratorProduct, sel *models.Selections) error {
		if product.OptionByID(optionID) == nil {
			return fmt.Errorf("unknown option %q", optionID)
		}
		if value == nil || value.IsZero() {
			delete(sel.Options, optionID)
		} else {
			sel.Options[optionID] = *value
		}
		return nil
	})
}

// SetMaterial selects a material. An incompatible or unknown id is kept
// through the recompute, which auto-corrects it and reports an issue.
func (s *ConfiguratorService) SetMaterial(tenantID, sessionID, materialID string) (*models.Session, error) {
	return s.mutate(tenantID, sessionID, func(_ *models.ConfiguratorProduct, sel *models.Selections) error {
		sel.MaterialID = materialID
		return nil
	})
}

// SetPrintMethod selects a print method
func (s *ConfiguratorService) SetPrintMethod(tenantID, sessionID, printMethodID string) (*models.Session, error) {
	return s.mutate(tenantID, sessionID, func(_ *models.ConfiguratorProduct, sel *models.Selections) error {
		sel.PrintMethodID = printMethodID
		return nil
	})
}

// SetFinishing replaces the selected finishing set
func (s *ConfiguratorService) SetFinishing(tenantID, sessionID string, finishingIDs []string) (*models.Session, error) {
	return s.mutate(tenantID, sessionID, func(_ *models.ConfiguratorProduct, sel *models.Selections) error {
		sel.FinishingIDs = append([]string{}, finishingIDs...)
		return nil
	})
}

// SetQuantity sets the requested quantity. Zero is accepted and later
// rejected by Validate; negative values are normalized to zero.
func (s *ConfiguratorService) SetQuantity(tenantID, sessionID string, quantity int) (*models.Session, error) {
	return s.mutate(tenantID, sessionID, func(_ *models.ConfiguratorProduct, sel *models.Selections) error {
		if quantity < 0 {
			quantity = 0
		}
		sel.Quantity = quantity
		return nil
	})
}

// SetDimension sets the requested dimension. Width and height both zero
// clears it.
func (s *ConfiguratorService) SetDimension(tenantID, sessionID string, width, height float64, unit models.DimensionUnit) (*models.Session, error) {
	return s.mutate(tenantID, sessionID, func(_ *models.ConfiguratorProduct, sel *models.Selections) error {
		if width < 0 || height < 0 {
			return fmt.Errorf("dimension must not be negative")
		}
		if width == 0 && height == 0 {
			sel.Dimension = nil
			return nil
		}
		if unit == "" {
			unit = models.UnitMillimeter
		}
		sel.Dimension = &models.DimensionSelection{Width: width, Height: height, Unit: unit}
		return nil
	})
}

// mutate merges one partial change over the stored selections and runs the
// recompute transition, replacing the session's state wholesale.
func (s *ConfiguratorService) mutate(tenantID, sessionID string, apply func(*models.ConfiguratorProduct, *models.Selections) error) (*models.Session, error) {
	var updated *models.Session
	err := s.store.Update(tenantID, sessionID, func(session *models.Session) error {
		working := session.Selections.Clone()
		if err := apply(session.Product, &working); err != nil {
			return err
		}
		selections, snapshot := Recompute(session.Product, s.ruleSet(sessionID, session.Product), working)
		session.Selections = selections
		session.Snapshot = snapshot
		updated = session.Detach()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Validate is the authoritative commit gate, independent of the live
// recompute issues.
func (s *ConfiguratorService) Validate(tenantID, sessionID string) (*models.ValidationResponse, error) {
	session, err := s.store.Get(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	errors := ValidateSelections(session.Product, s.ruleSet(sessionID, session.Product), session.Selections)
	return &models.ValidationResponse{Valid: len(errors) == 0, Errors: errors}, nil
}

// Commit validates the session, creates the cart line, publishes the commit
// event and drops the session.
func (s *ConfiguratorService) Commit(ctx context.Context, tenantID, sessionID string) (*models.CommitResponse, error) {
	session, err := s.store.Get(tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	// The event publisher serializes asynchronously; give it a detached copy.
	session = session.Detach()

	if errors := ValidateSelections(session.Product, s.ruleSet(sessionID, session.Product), session.Selections); len(errors) > 0 {
		return nil, &ValidationFailedError{Errors: errors}
	}

	price := session.Snapshot.Price
	cartItemID, err := s.cart.AddConfiguredItem(ctx, tenantID, clients.AddCartItemRequest{
		ProductID:  session.ProductID,
		Quantity:   session.Selections.Quantity,
		UnitPrice:  price.PricePerUnit,
		TotalPrice: price.Total,
		Selections: session.Selections,
		Price:      price,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add configuration to cart: %w", err)
	}

	s.publisher.PublishCommitted(ctx, tenantID, session, cartItemID)
	_ = s.store.Delete(tenantID, sessionID)

	s.logger.WithFields(logrus.Fields{
		"sessionId":  sessionID,
		"cartItemId": cartItemID,
		"total":      price.Total,
	}).Info("Configuration committed")

	return &models.CommitResponse{
		CartItemID: cartItemID,
		ProductID:  session.ProductID,
		Selections: session.Selections,
		Price:      price,
	}, nil
}

// Upsells returns the quantity, finish and cross-sell suggestions for the
// session's current state. Suggestions never mutate the session.
func (s *ConfiguratorService) Upsells(ctx context.Context, tenantID, sessionID string) (*models.UpsellSuggestions, error) {
	session, err := s.store.Get(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	product := session.Product
	snapshot := session.Snapshot
	ruleResult := s.ruleSet(sessionID, product).Apply(product, session.Selections)
	parts := resolveParts(snapshot, session.Selections, ruleResult.PriceAdjustment)

	suggestions := &models.UpsellSuggestions{
		Quantity: QuantityUpsells(product, session.Selections, parts, snapshot.Price.Total),
		Finish:   FinishUpsells(product, session.Selections, parts, snapshot.Finishing, snapshot.Materials, snapshot.Price.Total),
	}
	if suggestions.Quantity == nil {
		suggestions.Quantity = []models.QuantitySuggestion{}
	}
	if suggestions.Finish == nil {
		suggestions.Finish = []models.FinishSuggestion{}
	}

	crossSell, err := s.catalog.GetRelatedProducts(ctx, tenantID, session.ProductID)
	if err != nil {
		s.logger.WithError(err).WithField("productId", session.ProductID).Warn("Cross-sell lookup failed")
		crossSell = []models.CrossSellSuggestion{}
	}
	if crossSell == nil {
		crossSell = []models.CrossSellSuggestion{}
	}
	suggestions.CrossSell = crossSell

	return suggestions, nil
}

// DeleteSession drops an abandoned session
func (s *ConfiguratorService) DeleteSession(tenantID, sessionID string) error {
	session, err := s.store.Get(tenantID, sessionID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(tenantID, sessionID); err != nil {
		return err
	}
	s.publisher.PublishSessionClosed(tenantID, sessionID, session.ProductID, "abandoned")
	return nil
}

// InvalidateProduct drops the cached catalog descriptor after a product
// change. Live sessions keep their immutable descriptor; only new sessions
// see the updated catalog.
func (s *ConfiguratorService) InvalidateProduct(ctx context.Context, tenantID, productID string) {
	s.catalog.InvalidateDescriptor(ctx, tenantID, productID)
}

// DropSessionRules releases the compiled rule set of an evicted session
func (s *ConfiguratorService) DropSessionRules(sessionID string) {
	s.rulesMu.Lock()
	delete(s.rules, sessionID)
	s.rulesMu.Unlock()
}

// ruleSet returns the session's compiled rules, recompiling when the entry
// was evicted between requests.
func (s *ConfiguratorService) ruleSet(sessionID string, product *models.ConfiguratorProduct) RuleSet {
	s.rulesMu.RLock()
	ruleSet, ok := s.rules[sessionID]
	s.rulesMu.RUnlock()
	if ok {
		return ruleSet
	}

	ruleSet = CompileOptionRules(product)
	s.rulesMu.Lock()
	s.rules[sessionID] = ruleSet
	s.rulesMu.Unlock()
	return ruleSet
}

// Recompute is the single pure transition applied after every mutation. It
// filters the candidate sets, auto-corrects invalid selections, evaluates
// the option rules and resolves the price, returning the corrected
// selections and a fully renderable snapshot. It is deterministic: the same
// product and selections always produce an identical snapshot.
func Recompute(product *models.ConfiguratorProduct, rules RuleSet, sel models.Selections) (models.Selections, models.Snapshot) {
	working := sel.Clone()
	if working.FinishingIDs == nil {
		working.FinishingIDs = []string{}
	}
	if working.Options == nil {
		working.Options = make(map[string]models.SelectionValue)
	}
	issues := []string{}

	materials := FilterMaterials(product, working)
	issues = append(issues, materials.Issues...)
	if materials.Selected == nil {
		// Auto-correct: fall back to the first remaining candidate,
		// or leave the selection empty when none remain.
		working.MaterialID = ""
		if len(materials.Materials) > 0 {
			working.MaterialID = materials.Materials[0].ID
			materials.Selected = &materials.Materials[0]
		}
	}

	printMethods := FilterPrintMethods(product, working)
	issues = append(issues, printMethods.Issues...)
	if printMethods.Selected == nil {
		working.PrintMethodID = ""
		if len(printMethods.PrintMethods) > 0 {
			working.PrintMethodID = printMethods.PrintMethods[0].ID
			printMethods.Selected = &printMethods.PrintMethods[0]
		}
	}

	finishing := FilterFinishing(product, working)
	issues = append(issues, finishing.Issues...)
	sanitized := make([]string, 0, len(finishing.Selected))
	for _, entry := range finishing.Selected {
		sanitized = append(sanitized, entry.ID)
	}
	working.FinishingIDs = sanitized

	ruleResult := rules.Apply(product, working)
	issues = append(issues, ruleResult.ValidationErrors...)

	parts := PriceParts{OptionAdjustment: ruleResult.PriceAdjustment}
	if materials.Selected != nil {
		parts.Material = &materials.Selected.Material
	}
	parts.PrintMethod = printMethods.Selected
	parts.Finishing = finishing.Selected

	price := CalculatePrice(product, working, parts)
	issues = append(issues, price.Issues...)

	visible := ruleResult.VisibleOptions
	if visible == nil {
		visible = []models.Option{}
	}

	return working, models.Snapshot{
		Selections:     working,
		Materials:      materials.Materials,
		PrintMethods:   printMethods.PrintMethods,
		Finishing:      finishing.Finishing,
		VisibleOptions: visible,
		Price:          price.Breakdown,
		Issues:         issues,
	}
}

// ValidateSelections is the explicit completeness check gating a commit:
// required visible options need a value, material and print method must be
// chosen unless the product is STANDARD, a dimension must be provided when
// the product declares minimum bounds and must lie within the declared
// bounds, and the quantity must be at least 1.
func ValidateSelections(product *models.ConfiguratorProduct, rules RuleSet, sel models.Selections) []string {
	errors := []string{}

	if sel.Quantity < 1 {
		errors = append(errors, "quantity must be at least 1")
	}

	if product.Type != models.ProductTypeStandard {
		if sel.MaterialID == "" && len(product.Materials) > 0 {
			errors = append(errors, "a material must be selected")
		}
		if sel.PrintMethodID == "" && len(product.PrintMethods) > 0 {
			errors = append(errors, "a print method must be selected")
		}
	}

	errors = append(errors, rules.Apply(product, sel).ValidationErrors...)

	if sel.Dimension == nil && product.Dimensions != nil &&
		(product.Dimensions.WidthMin != nil || product.Dimensions.HeightMin != nil) {
		errors = append(errors, "a dimension must be provided")
	}

	if sel.Dimension != nil && product.Dimensions != nil {
		bounds := product.Dimensions
		factor := sel.Dimension.Unit.MillimeterFactor()
		widthMM := sel.Dimension.Width * factor
		heightMM := sel.Dimension.Height * factor
		boundsFactor := bounds.Unit.MillimeterFactor()

		if bounds.WidthMin != nil && widthMM < *bounds.WidthMin*boundsFactor {
			errors = append(errors, "width is below the minimum allowed")
		}
		if bounds.WidthMax != nil && widthMM > *bounds.WidthMax*boundsFactor {
			errors = append(errors, "width exceeds the maximum allowed")
		}
		if bounds.HeightMin != nil && heightMM < *bounds.HeightMin*boundsFactor {
			errors = append(errors, "height is below the minimum allowed")
		}
		if bounds.HeightMax != nil && heightMM > *bounds.HeightMax*boundsFactor {
			errors = append(errors, "height exceeds the maximum allowed")
		}
	}

	return errors
}

// resolveParts rebuilds the price resolver inputs from a snapshot
func resolveParts(snapshot models.Snapshot, sel models.Selections, optionAdjustment float64) PriceParts {
	parts := PriceParts{OptionAdjustment: optionAdjustment}
	for i := range snapshot.Materials {
		if snapshot.Materials[i].ID == sel.MaterialID {
			parts.Material = &snapshot.Materials[i].Material
			break
		}
	}
	for i := range snapshot.PrintMethods {
		if snapshot.PrintMethods[i].ID == sel.PrintMethodID {
			parts.PrintMethod = &snapshot.PrintMethods[i]
			break
		}
	}
	selected := make(map[string]bool, len(sel.FinishingIDs))
	for _, id := range sel.FinishingIDs {
		selected[id] = true
	}
	for _, finishing := range snapshot.Finishing {
		if selected[finishing.ID] {
			parts.Finishing = append(parts.Finishing, finishing)
		}
	}
	return parts
}
