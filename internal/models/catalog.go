package models

import (
	"encoding/json"
	"strings"
)

// ProductType represents the configurability class of a product
type ProductType string

const (
	ProductTypeStandard     ProductType = "STANDARD"
	ProductTypeConfigurable ProductType = "CONFIGURABLE"
	ProductTypeCustom       ProductType = "CUSTOM"
)

// OptionType represents the input control kind of a product option
type OptionType string

const (
	OptionTypeSelect   OptionType = "select"
	OptionTypeCheckbox OptionType = "checkbox"
	OptionTypeNumeric  OptionType = "numeric"
	OptionTypeColor    OptionType = "color"
)

// PricingType represents how the base price of a product is computed
type PricingType string

const (
	PricingTypeFixed     PricingType = "fixed"
	PricingTypePerUnit   PricingType = "per_unit"
	PricingTypePerSqm    PricingType = "per_sqm"
	PricingTypePerWeight PricingType = "per_weight"
	PricingTypeFormula   PricingType = "formula"
	PricingTypeCustom    PricingType = "custom"
)

// DimensionUnit is the length unit used by dimensions and constraints
type DimensionUnit string

const (
	UnitMillimeter DimensionUnit = "mm"
	UnitCentimeter DimensionUnit = "cm"
	UnitMeter      DimensionUnit = "m"
)

// MillimeterFactor returns the multiplier that converts a length in the
// given unit into millimeters. Unknown units are treated as millimeters.
func (u DimensionUnit) MillimeterFactor() float64 {
	switch u {
	case UnitCentimeter:
		return 10
	case UnitMeter:
		return 1000
	default:
		return 1
	}
}

// OptionValue is one selectable value of a product option
type OptionValue struct {
	Value         string   `json:"value"`
	Label         string   `json:"label"`
	PriceModifier *float64 `json:"priceModifier,omitempty"`
	Disabled      bool     `json:"disabled,omitempty"`
}

// OptionRule is a declarative condition/action pair controlling option
// visibility and adjustments. Condition and Action keep the textual form
// used by existing product definitions; they are parsed once per session.
type OptionRule struct {
	Condition string `json:"condition"`
	Action    string `json:"action"`
}

// Option is a configurable product attribute
type Option struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Type     OptionType    `json:"type"`
	Required bool          `json:"required"`
	Values   []OptionValue `json:"values"`
	Rules    []OptionRule  `json:"rules,omitempty"`
}

// MaterialConstraints bounds the printable dimensions of a material
type MaterialConstraints struct {
	MinWidth  *float64      `json:"minWidth,omitempty"`
	MaxWidth  *float64      `json:"maxWidth,omitempty"`
	MinHeight *float64      `json:"minHeight,omitempty"`
	MaxHeight *float64      `json:"maxHeight,omitempty"`
	Unit      DimensionUnit `json:"unit,omitempty"`
}

// Material is a substrate the product can be produced on
type Material struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Unit          string               `json:"unit"`
	CostPerUnit   float64              `json:"costPerUnit"`
	PriceModifier *float64             `json:"priceModifier,omitempty"`
	Constraints   *MaterialConstraints `json:"constraints,omitempty"`
}

// CostBasis reports whether the material is charged by area or by quantity,
// derived from the material's declared unit.
func (m Material) CostBasis() string {
	unit := strings.ToLower(m.Unit)
	if strings.Contains(unit, "m2") || strings.Contains(unit, "sqm") || strings.Contains(unit, "mp") {
		return "area"
	}
	return "quantity"
}

// EffectiveCost is the per-unit cost including the product-level modifier
func (m Material) EffectiveCost() float64 {
	cost := m.CostPerUnit
	if m.PriceModifier != nil {
		cost += *m.PriceModifier
	}
	return cost
}

// PrintMethod is a production technique with optional dimensional bounds
// and material compatibility. Max bounds are declared in millimeters.
// An absent MaterialIDs list means the method works with every material.
type PrintMethod struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CostPerM2    *float64 `json:"costPerM2,omitempty"`
	CostPerSheet *float64 `json:"costPerSheet,omitempty"`
	MaxWidth     *float64 `json:"maxWidth,omitempty"`
	MaxHeight    *float64 `json:"maxHeight,omitempty"`
	MaterialIDs  []string `json:"materialIds,omitempty"`
}

// SupportsMaterial reports whether the method is compatible with the material
func (p PrintMethod) SupportsMaterial(materialID string) bool {
	if len(p.MaterialIDs) == 0 {
		return true
	}
	for _, id := range p.MaterialIDs {
		if id == materialID {
			return true
		}
	}
	return false
}

// Finishing is a post-production treatment. An absent CompatibleMaterialIDs
// list means the treatment works with every material.
type Finishing struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	CostFix               *float64 `json:"costFix,omitempty"`
	CostPerUnit           *float64 `json:"costPerUnit,omitempty"`
	CostPerM2             *float64 `json:"costPerM2,omitempty"`
	PriceModifier         float64  `json:"priceModifier,omitempty"`
	CompatibleMaterialIDs []string `json:"compatibleMaterialIds,omitempty"`
}

// SupportsMaterial reports whether the finishing is compatible with the material
func (f Finishing) SupportsMaterial(materialID string) bool {
	if len(f.CompatibleMaterialIDs) == 0 {
		return true
	}
	for _, id := range f.CompatibleMaterialIDs {
		if id == materialID {
			return true
		}
	}
	return false
}

// PriceBreak is a quantity-tiered override of the per-unit price.
// A nil MaxQuantity means the tier is unbounded.
type PriceBreak struct {
	MinQuantity  int     `json:"minQuantity"`
	MaxQuantity  *int    `json:"maxQuantity"`
	PricePerUnit float64 `json:"pricePerUnit"`
}

// Matches reports whether the quantity falls inside this tier
func (b PriceBreak) Matches(quantity int) bool {
	if quantity < b.MinQuantity {
		return false
	}
	return b.MaxQuantity == nil || quantity <= *b.MaxQuantity
}

// DiscountType distinguishes percentage from fixed-amount discounts
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// Discount is an ordered pricing reduction, optionally gated on quantity
type Discount struct {
	Type        DiscountType `json:"type"`
	Value       float64      `json:"value"`
	MinQuantity *int         `json:"minQuantity,omitempty"`
}

// Pricing describes how a product is priced
type Pricing struct {
	Type       PricingType  `json:"type"`
	BasePrice  float64      `json:"basePrice"`
	PriceBreaks []PriceBreak `json:"priceBreaks,omitempty"`
	Formula    string       `json:"formula,omitempty"`
	Discounts  []Discount   `json:"discounts,omitempty"`
}

// Dimensions bounds the width/height a customer may request
type Dimensions struct {
	WidthMin  *float64      `json:"widthMin,omitempty"`
	WidthMax  *float64      `json:"widthMax,omitempty"`
	HeightMin *float64      `json:"heightMin,omitempty"`
	HeightMax *float64      `json:"heightMax,omitempty"`
	Unit      DimensionUnit `json:"unit"`
}

// Defaults holds the preselected configuration of a product
type Defaults struct {
	MaterialID    *string                   `json:"materialId,omitempty"`
	PrintMethodID *string                   `json:"printMethodId,omitempty"`
	FinishingIDs  []string                  `json:"finishingIds,omitempty"`
	Quantity      int                       `json:"quantity"`
	OptionValues  map[string]SelectionValue `json:"optionValues,omitempty"`
}

// ConfiguratorProduct is the immutable catalog descriptor of a product,
// fetched once per configuration session from products-service.
type ConfiguratorProduct struct {
	ID           string        `json:"id"`
	Slug         string        `json:"slug"`
	Name         string        `json:"name"`
	Type         ProductType   `json:"type"`
	Category     string        `json:"category,omitempty"`
	Active       bool          `json:"active"`
	Options      []Option      `json:"options"`
	Materials    []Material    `json:"materials"`
	PrintMethods []PrintMethod `json:"printMethods"`
	Finishing    []Finishing   `json:"finishing"`
	Pricing      Pricing       `json:"pricing"`
	Dimensions   *Dimensions   `json:"dimensions,omitempty"`
	Defaults     Defaults      `json:"defaults"`
}

// OptionByID returns the option with the given id, or nil
func (p *ConfiguratorProduct) OptionByID(id string) *Option {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}

// MaterialByID returns the material with the given id, or nil
func (p *ConfiguratorProduct) MaterialByID(id string) *Material {
	for i := range p.Materials {
		if p.Materials[i].ID == id {
			return &p.Materials[i]
		}
	}
	return nil
}

// FinishingByID returns the finishing with the given id, or nil
func (p *ConfiguratorProduct) FinishingByID(id string) *Finishing {
	for i := range p.Finishing {
		if p.Finishing[i].ID == id {
			return &p.Finishing[i]
		}
	}
	return nil
}

// SelectionValue is an option selection that is either a single value
// (select, numeric, color) or a set of values (checkbox). It keeps the
// catalog document's loose JSON shape at the wire boundary: a plain string
// or an array of strings.
type SelectionValue struct {
	single string
	multi  []string
	isSet  bool
}

// SingleValue wraps a scalar option selection
func SingleValue(v string) SelectionValue {
	return SelectionValue{single: v}
}

// MultiValue wraps a checkbox option selection
func MultiValue(values ...string) SelectionValue {
	return SelectionValue{multi: values, isSet: true}
}

// IsZero reports whether no value is selected
func (s SelectionValue) IsZero() bool {
	if s.isSet {
		return len(s.multi) == 0
	}
	return s.single == ""
}

// IsSet reports whether the selection holds a value set (checkbox)
func (s SelectionValue) IsSet() bool {
	return s.isSet
}

// Values returns the selection as a slice regardless of shape
func (s SelectionValue) Values() []string {
	if s.isSet {
		return s.multi
	}
	if s.single == "" {
		return nil
	}
	return []string{s.single}
}

// Contains reports whether the selection includes the given value
func (s SelectionValue) Contains(v string) bool {
	for _, value := range s.Values() {
		if value == v {
			return true
		}
	}
	return false
}

// String returns the scalar value, or the first set value
func (s SelectionValue) String() string {
	if s.isSet {
		if len(s.multi) == 0 {
			return ""
		}
		return s.multi[0]
	}
	return s.single
}

// MarshalJSON emits the catalog document shape: string or []string
func (s SelectionValue) MarshalJSON() ([]byte, error) {
	if s.isSet {
		values := s.multi
		if values == nil {
			values = []string{}
		}
		return json.Marshal(values)
	}
	return json.Marshal(s.single)
}

// UnmarshalJSON accepts a string or an array of strings
func (s *SelectionValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = SelectionValue{single: single}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(data, &multi); err != nil {
		return err
	}
	*s = SelectionValue{multi: multi, isSet: true}
	return nil
}
