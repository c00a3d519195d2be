package models

// DimensionSelection is the customer-requested print dimension
type DimensionSelection struct {
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Unit   DimensionUnit `json:"unit"`
}

// AreaSquareMeters converts the requested dimension into square meters.
// Returns false when either side is missing or non-positive.
func (d *DimensionSelection) AreaSquareMeters() (float64, bool) {
	if d == nil || d.Width <= 0 || d.Height <= 0 {
		return 0, false
	}
	factor := d.Unit.MillimeterFactor()
	widthM := d.Width * factor / 1000
	heightM := d.Height * factor / 1000
	return widthM * heightM, true
}

// Selections is the session-mutable customer configuration. Quantity keeps
// the raw requested value, including 0; pricing clamps it separately.
type Selections struct {
	Quantity      int                       `json:"quantity"`
	MaterialID    string                    `json:"materialId,omitempty"`
	PrintMethodID string                    `json:"printMethodId,omitempty"`
	FinishingIDs  []string                  `json:"finishingIds"`
	Options       map[string]SelectionValue `json:"options"`
	Dimension     *DimensionSelection       `json:"dimension,omitempty"`
}

// SelectionsFromDefaults seeds a fresh selection from the product defaults
func SelectionsFromDefaults(product *ConfiguratorProduct) Selections {
	defaults := product.Defaults
	quantity := defaults.Quantity
	if quantity < 1 {
		quantity = 1
	}

	sel := Selections{
		Quantity:     quantity,
		FinishingIDs: append([]string{}, defaults.FinishingIDs...),
		Options:      make(map[string]SelectionValue),
	}
	if defaults.MaterialID != nil {
		sel.MaterialID = *defaults.MaterialID
	}
	if defaults.PrintMethodID != nil {
		sel.PrintMethodID = *defaults.PrintMethodID
	}
	for optionID, value := range defaults.OptionValues {
		sel.Options[optionID] = value
	}
	return sel
}

// Clone returns a deep copy so the recompute transition never aliases
// the stored session state.
func (s Selections) Clone() Selections {
	clone := s
	clone.FinishingIDs = append([]string{}, s.FinishingIDs...)
	clone.Options = make(map[string]SelectionValue, len(s.Options))
	for id, value := range s.Options {
		clone.Options[id] = value
	}
	if s.Dimension != nil {
		dim := *s.Dimension
		clone.Dimension = &dim
	}
	return clone
}

// AppliedPriceBreak reports the quantity tier used by the price resolver
type AppliedPriceBreak struct {
	MinQuantity  int     `json:"minQuantity"`
	MaxQuantity  *int    `json:"maxQuantity"`
	PricePerUnit float64 `json:"pricePerUnit"`
}

// PriceBreakdown is the full price computation result. Quantity reports the
// raw requested quantity; the computation itself uses a clamped value.
type PriceBreakdown struct {
	Base              float64            `json:"base"`
	MaterialCost      float64            `json:"materialCost"`
	PrintCost         float64            `json:"printCost"`
	FinishingCost     float64            `json:"finishingCost"`
	OptionCost        float64            `json:"optionCost"`
	Discounts         float64            `json:"discounts"`
	Subtotal          float64            `json:"subtotal"`
	Total             float64            `json:"total"`
	PricePerUnit      float64            `json:"pricePerUnit"`
	Quantity          int                `json:"quantity"`
	Area              *float64           `json:"area,omitempty"`
	PricingType       PricingType        `json:"pricingType"`
	AppliedPriceBreak *AppliedPriceBreak `json:"appliedPriceBreak,omitempty"`
}

// MaterialCandidate is a filtered material enriched with its effective cost
type MaterialCandidate struct {
	Material
	EffectiveCost float64 `json:"effectiveCost"`
}

// Snapshot is the full configurator state published after every mutation:
// filtered candidate lists, visible options, price breakdown and the
// accumulated non-fatal issues. It is always renderable, even when issues
// are present.
type Snapshot struct {
	Selections     Selections          `json:"selections"`
	Materials      []MaterialCandidate `json:"materials"`
	PrintMethods   []PrintMethod       `json:"printMethods"`
	Finishing      []Finishing         `json:"finishing"`
	VisibleOptions []Option            `json:"visibleOptions"`
	Price          PriceBreakdown      `json:"price"`
	Issues         []string            `json:"issues"`
}

// QuantitySuggestion is a projected total at a higher price-break tier
type QuantitySuggestion struct {
	Quantity          int     `json:"quantity"`
	Total             float64 `json:"total"`
	UnitPrice         float64 `json:"unitPrice"`
	ExtraCost         float64 `json:"extraCost"`
	SavingsPerUnitPct float64 `json:"savingsPerUnitPct"`
	Message           string  `json:"message"`
}

// FinishSuggestion proposes an unselected finishing or a premium material
// swap, priced as the delta against the current total.
type FinishSuggestion struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Kind        string  `json:"kind"` // "finishing" or "material"
	FinishingID string  `json:"finishingId,omitempty"`
	MaterialID  string  `json:"materialId,omitempty"`
	Price       float64 `json:"price"`
}

// CrossSellSuggestion is a complementary product read from the catalog
type CrossSellSuggestion struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	PriceFrom float64 `json:"priceFrom"`
}

// UpsellSuggestions bundles the three recommendation kinds
type UpsellSuggestions struct {
	Quantity  []QuantitySuggestion  `json:"quantity"`
	Finish    []FinishSuggestion    `json:"finish"`
	CrossSell []CrossSellSuggestion `json:"crossSell"`
}
