package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"configurator-service/internal/clients"
	"configurator-service/internal/models"
	"configurator-service/internal/repository"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetConfiguratorProduct(ctx context.Context, tenantID, productID string) (*models.ConfiguratorProduct, error) {
	args := m.Called(ctx, tenantID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConfiguratorProduct), args.Error(1)
}

func (m *MockCatalog) GetRelatedProducts(ctx context.Context, tenantID, productID string) ([]models.CrossSellSuggestion, error) {
	args := m.Called(ctx, tenantID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CrossSellSuggestion), args.Error(1)
}

func (m *MockCatalog) InvalidateDescriptor(ctx context.Context, tenantID, productID string) {
	m.Called(ctx, tenantID, productID)
}

type MockCart struct {
	mock.Mock
}

func (m *MockCart) AddConfiguredItem(ctx context.Context, tenantID string, item clients.AddCartItemRequest) (string, error) {
	args := m.Called(ctx, tenantID, item)
	return args.String(0), args.Error(1)
}

type MockBus struct {
	mock.Mock
}

func (m *MockBus) PublishCommitted(ctx context.Context, tenantID string, session *models.Session, cartItemID string) {
	m.Called(ctx, tenantID, session, cartItemID)
}

func (m *MockBus) PublishSessionClosed(tenantID, sessionID, productID, reason string) {
	m.Called(tenantID, sessionID, productID, reason)
}

func newTestService(t *testing.T) (*ConfiguratorService, *MockCatalog, *MockCart, *MockBus) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	catalog := new(MockCatalog)
	cart := new(MockCart)
	bus := new(MockBus)

	var service *ConfiguratorService
	store := repository.NewSessionStore(time.Hour, func(sessionID string) {
		if service != nil {
			service.DropSessionRules(sessionID)
		}
	}, logger)
	service = NewConfiguratorService(store, catalog, cart, bus, logger)
	return service, catalog, cart, bus
}

func startTestSession(t *testing.T, service *ConfiguratorService, catalog *MockCatalog) *models.Session {
	t.Helper()
	catalog.On("GetConfiguratorProduct", mock.Anything, "tenant-1", "prod-flyer").Return(testProduct(), nil).Once()
	session, err := service.StartSession(context.Background(), "tenant-1", "prod-flyer")
	assert.NoError(t, err)
	return session
}

func TestStartSession_SeedsFromDefaults(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, 1, session.Selections.Quantity)
	assert.Equal(t, models.SingleValue("large"), session.Selections.Options["opt-size"])
	// No default material: the first filtered candidate is auto-selected
	assert.Equal(t, "paper-150", session.Selections.MaterialID)
	assert.Equal(t, "digital", session.Selections.PrintMethodID)
	catalog.AssertExpectations(t)
}

func TestStartSession_LoadErrorCreatesNoSession(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	catalog.On("GetConfiguratorProduct", mock.Anything, "tenant-1", "missing").Return(nil, errors.New("product missing not found")).Once()

	session, err := service.StartSession(context.Background(), "tenant-1", "missing")

	assert.Error(t, err)
	assert.Nil(t, session)
}

func TestGetSession_TenantIsolation(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	_, err := service.GetSession("tenant-2", session.ID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestSetMaterial_IncompatibleAutoCorrects(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	// A dimension wider than vinyl permits, then an attempt to select vinyl
	_, err := service.SetDimension("tenant-1", session.ID, 1200, 500, models.UnitMillimeter)
	assert.NoError(t, err)

	updated, err := service.SetMaterial("tenant-1", session.ID, "vinyl")
	assert.NoError(t, err)

	assert.Equal(t, "paper-150", updated.Selections.MaterialID)
	assert.NotEmpty(t, updated.Snapshot.Issues)
}

func TestSetMaterial_RemovesIncompatiblePrintMethod(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	_, err := service.SetPrintMethod("tenant-1", session.ID, "offset")
	assert.NoError(t, err)

	updated, err := service.SetMaterial("tenant-1", session.ID, "vinyl")
	assert.NoError(t, err)

	// offset only supports paper-150: it drops out and digital is auto-selected
	for _, method := range updated.Snapshot.PrintMethods {
		assert.NotEqual(t, "offset", method.ID)
	}
	assert.Equal(t, "digital", updated.Selections.PrintMethodID)
	assert.NotEmpty(t, updated.Snapshot.Issues)
}

func TestSetFinishing_SanitizedToCompatibleSet(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	_, err := service.SetMaterial("tenant-1", session.ID, "vinyl")
	assert.NoError(t, err)

	updated, err := service.SetFinishing("tenant-1", session.ID, []string{"lamination", "round-corners"})
	assert.NoError(t, err)

	assert.Equal(t, []string{"round-corners"}, updated.Selections.FinishingIDs)
}

func TestSetOption_UnknownOptionRejected(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	value := models.SingleValue("x")
	_, err := service.SetOption("tenant-1", session.ID, "opt-nope", &value)
	assert.Error(t, err)
}

func TestSetOption_HidesDependentOption(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	value := models.SingleValue("small")
	updated, err := service.SetOption("tenant-1", session.ID, "opt-size", &value)
	assert.NoError(t, err)

	assert.Len(t, updated.Snapshot.VisibleOptions, 1)
	assert.Equal(t, "opt-size", updated.Snapshot.VisibleOptions[0].ID)
}

func TestRecompute_Idempotent(t *testing.T) {
	product := testProduct()
	rules := CompileOptionRules(product)
	sel := models.SelectionsFromDefaults(product)
	sel.Dimension = dimensionMM(500, 500)
	sel.FinishingIDs = []string{"lamination"}

	first, snapshotA := Recompute(product, rules, sel)
	_, snapshotB := Recompute(product, rules, first)

	bytesA, err := json.Marshal(snapshotA)
	assert.NoError(t, err)
	bytesB, err := json.Marshal(snapshotB)
	assert.NoError(t, err)
	assert.Equal(t, bytesA, bytesB)
}

func TestSetQuantity_ZeroAcceptedButInvalid(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	updated, err := service.SetQuantity("tenant-1", session.ID, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, updated.Snapshot.Price.Quantity)

	result, err := service.Validate("tenant-1", session.ID)
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "quantity must be at least 1")
}

func TestValidate_DimensionOutOfBounds(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	_, err := service.SetDimension("tenant-1", session.ID, 3000, 500, models.UnitMillimeter)
	assert.NoError(t, err)

	result, err := service.Validate("tenant-1", session.ID)
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "width exceeds the maximum allowed")
}

func TestValidate_CompleteConfigurationPasses(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	_, err := service.SetDimension("tenant-1", session.ID, 500, 500, models.UnitMillimeter)
	assert.NoError(t, err)

	result, err := service.Validate("tenant-1", session.ID)
	assert.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_DimensionRequiredWhenBoundsDeclared(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	result, err := service.Validate("tenant-1", session.ID)
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "a dimension must be provided")
}

func TestValidate_DimensionOptionalWithoutBounds(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	product := testProduct()
	product.Dimensions = nil
	catalog.On("GetConfiguratorProduct", mock.Anything, "tenant-1", "prod-flyer").Return(product, nil).Once()
	session, err := service.StartSession(context.Background(), "tenant-1", "prod-flyer")
	assert.NoError(t, err)

	result, err := service.Validate("tenant-1", session.ID)
	assert.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestMutationReturnsDetachedSession(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	first, err := service.SetQuantity("tenant-1", session.ID, 5)
	assert.NoError(t, err)

	fetched, err := service.GetSession("tenant-1", session.ID)
	assert.NoError(t, err)

	_, err = service.SetQuantity("tenant-1", session.ID, 10)
	assert.NoError(t, err)

	// Earlier responses keep the state they were built from
	assert.Equal(t, 5, first.Selections.Quantity)
	assert.Equal(t, 5, first.Snapshot.Price.Quantity)
	assert.Equal(t, 5, fetched.Selections.Quantity)

	current, err := service.GetSession("tenant-1", session.ID)
	assert.NoError(t, err)
	assert.Equal(t, 10, current.Selections.Quantity)
}

func TestCommit_CreatesCartLineAndDropsSession(t *testing.T) {
	service, catalog, cart, bus := newTestService(t)
	session := startTestSession(t, service, catalog)

	_, err := service.SetDimension("tenant-1", session.ID, 500, 500, models.UnitMillimeter)
	assert.NoError(t, err)

	cart.On("AddConfiguredItem", mock.Anything, "tenant-1", mock.Anything).Return("cart-item-1", nil).Once()
	bus.On("PublishCommitted", mock.Anything, "tenant-1", mock.Anything, "cart-item-1").Once()

	result, err := service.Commit(context.Background(), "tenant-1", session.ID)
	assert.NoError(t, err)
	assert.Equal(t, "cart-item-1", result.CartItemID)
	assert.Equal(t, "prod-flyer", result.ProductID)

	_, err = service.GetSession("tenant-1", session.ID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	cart.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestCommit_BlockedByValidation(t *testing.T) {
	service, catalog, cart, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	_, err := service.SetQuantity("tenant-1", session.ID, 0)
	assert.NoError(t, err)

	_, err = service.Commit(context.Background(), "tenant-1", session.ID)

	var validationErr *ValidationFailedError
	assert.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Errors, "quantity must be at least 1")
	cart.AssertNotCalled(t, "AddConfiguredItem", mock.Anything, mock.Anything, mock.Anything)

	// The session survives a failed commit
	_, err = service.GetSession("tenant-1", session.ID)
	assert.NoError(t, err)
}

func TestCommit_CartFailureKeepsSession(t *testing.T) {
	service, catalog, cart, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	_, err := service.SetDimension("tenant-1", session.ID, 500, 500, models.UnitMillimeter)
	assert.NoError(t, err)

	cart.On("AddConfiguredItem", mock.Anything, "tenant-1", mock.Anything).Return("", errors.New("orders-service unavailable")).Once()

	_, err = service.Commit(context.Background(), "tenant-1", session.ID)
	assert.Error(t, err)

	_, err = service.GetSession("tenant-1", session.ID)
	assert.NoError(t, err)
}

func TestUpsells_CombinesAllKinds(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	crossSell := []models.CrossSellSuggestion{
		{ID: "prod-poster", Name: "Posters A2", Slug: "posters-a2", PriceFrom: 120},
	}
	catalog.On("GetRelatedProducts", mock.Anything, "tenant-1", "prod-flyer").Return(crossSell, nil).Once()

	result, err := service.Upsells(context.Background(), "tenant-1", session.ID)
	assert.NoError(t, err)

	assert.Len(t, result.Quantity, 2)
	assert.Equal(t, 10, result.Quantity[0].Quantity)
	assert.NotEmpty(t, result.Finish)
	assert.Equal(t, crossSell, result.CrossSell)
}

func TestUpsells_CrossSellFailureDegrades(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	session := startTestSession(t, service, catalog)

	catalog.On("GetRelatedProducts", mock.Anything, "tenant-1", "prod-flyer").Return(nil, errors.New("timeout")).Once()

	result, err := service.Upsells(context.Background(), "tenant-1", session.ID)
	assert.NoError(t, err)
	assert.Empty(t, result.CrossSell)
	assert.NotEmpty(t, result.Quantity)
}

func TestDeleteSession_PublishesClosure(t *testing.T) {
	service, catalog, _, bus := newTestService(t)
	session := startTestSession(t, service, catalog)

	bus.On("PublishSessionClosed", "tenant-1", session.ID, "prod-flyer", "abandoned").Once()

	assert.NoError(t, service.DeleteSession("tenant-1", session.ID))
	_, err := service.GetSession("tenant-1", session.ID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	bus.AssertExpectations(t)
}

func TestInvalidateProduct_DelegatesToCatalog(t *testing.T) {
	service, catalog, _, _ := newTestService(t)
	catalog.On("InvalidateDescriptor", mock.Anything, "tenant-1", "prod-flyer").Once()

	service.InvalidateProduct(context.Background(), "tenant-1", "prod-flyer")
	catalog.AssertExpectations(t)
}
