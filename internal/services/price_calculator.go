package services

import (
	"fmt"
	"math"

	"configurator-service/internal/models"
)

// PriceParts supplies the already-resolved selections to the price resolver.
// Every field may be nil or empty; absent parts contribute zero cost, so the
// resolver also works for STANDARD products with no configurable facets.
type PriceParts struct {
	Material         *models.Material
	PrintMethod      *models.PrintMethod
	Finishing        []models.Finishing
	OptionAdjustment float64
}

// PriceResult is the computed breakdown plus the non-fatal issues raised
// while computing it. Issues never abort the computation.
type PriceResult struct {
	Breakdown models.PriceBreakdown
	Issues    []string
}

// CalculatePrice computes the full price breakdown for the current
// selections. The raw requested quantity is reported unchanged; the
// computation itself uses a value clamped to at least 1.
func CalculatePrice(product *models.ConfiguratorProduct, sel models.Selections, parts PriceParts) PriceResult {
	var result PriceResult

	quantity := sel.Quantity
	if quantity < 1 {
		quantity = 1
	}

	var area *float64
	if sel.Dimension != nil {
		if value, ok := sel.Dimension.AreaSquareMeters(); ok {
			area = &value
		}
	}
	areaOrOne := 1.0
	if area != nil {
		areaOrOne = *area
	}

	pricing := product.Pricing
	appliedBreak := matchPriceBreak(pricing.PriceBreaks, quantity)

	unitBase := pricing.BasePrice
	if appliedBreak != nil {
		unitBase = appliedBreak.PricePerUnit
	}

	var base float64
	switch pricing.Type {
	case models.PricingTypePerUnit, models.PricingTypePerWeight:
		base = unitBase * float64(quantity)

	case models.PricingTypePerSqm:
		base = unitBase * areaOrOne

	case models.PricingTypeFormula, models.PricingTypeCustom:
		value, err := EvaluateFormula(pricing.Formula, map[string]float64{
			"AREA": areaOrOne,
			"QTY":  float64(quantity),
		})
		if err != nil {
			result.Issues = append(result.Issues, fmt.Sprintf("pricing formula failed: %v", err))
			base = pricing.BasePrice
		} else {
			base = value
		}

	default: // fixed
		if appliedBreak != nil {
			base = appliedBreak.PricePerUnit * float64(quantity)
		} else {
			base = pricing.BasePrice
		}
	}

	materialCost := materialCost(parts.Material, quantity, area)
	printCost := printCost(parts.PrintMethod, quantity, area)
	finishingCost := finishingCost(parts.Finishing, quantity, area)
	optionCost := round2(parts.OptionAdjustment)

	subtotal := base + materialCost + printCost + finishingCost + optionCost
	discounts := applyDiscounts(pricing.Discounts, subtotal, quantity)
	total := math.Max(0, subtotal-discounts)

	result.Breakdown = models.PriceBreakdown{
		Base:          round2(base),
		MaterialCost:  materialCost,
		PrintCost:     printCost,
		FinishingCost: finishingCost,
		OptionCost:    optionCost,
		Discounts:     round2(discounts),
		Subtotal:      round2(subtotal),
		Total:         round2(total),
		PricePerUnit:  round2(total / float64(quantity)),
		Quantity:      sel.Quantity,
		Area:          area,
		PricingType:   pricing.Type,
	}
	if appliedBreak != nil {
		result.Breakdown.AppliedPriceBreak = &models.AppliedPriceBreak{
			MinQuantity:  appliedBreak.MinQuantity,
			MaxQuantity:  appliedBreak.MaxQuantity,
			PricePerUnit: appliedBreak.PricePerUnit,
		}
	}
	return result
}

// matchPriceBreak returns the matching tier with the highest minQuantity
func matchPriceBreak(breaks []models.PriceBreak, quantity int) *models.PriceBreak {
	var matched *models.PriceBreak
	for i := range breaks {
		if !breaks[i].Matches(quantity) {
			continue
		}
		if matched == nil || breaks[i].MinQuantity > matched.MinQuantity {
			matched = &breaks[i]
		}
	}
	return matched
}

// materialCost charges by area when the material's unit says so and a valid
// area exists, otherwise by quantity.
func materialCost(material *models.Material, quantity int, area *float64) float64 {
	if material == nil {
		return 0
	}
	unitCost := material.EffectiveCost()
	if material.CostBasis() == "area" && area != nil {
		return round2(unitCost * *area)
	}
	return round2(unitCost * float64(quantity))
}

func printCost(method *models.PrintMethod, quantity int, area *float64) float64 {
	if method == nil {
		return 0
	}
	var cost float64
	if method.CostPerM2 != nil && area != nil {
		cost += *method.CostPerM2 * *area
	}
	if method.CostPerSheet != nil {
		cost += *method.CostPerSheet * float64(quantity)
	}
	return round2(cost)
}

func finishingCost(finishing []models.Finishing, quantity int, area *float64) float64 {
	var cost float64
	for _, operation := range finishing {
		if operation.CostFix != nil {
			cost += *operation.CostFix
		}
		if operation.CostPerUnit != nil {
			cost += *operation.CostPerUnit * float64(quantity)
		}
		if operation.CostPerM2 != nil && area != nil {
			cost += *operation.CostPerM2 * *area
		}
		cost += operation.PriceModifier
	}
	return round2(cost)
}

// applyDiscounts applies the ordered discount list sequentially: percentage
// discounts reduce the running subtotal before the next entry is applied,
// fixed discounts subtract a flat amount. Quantity-gated entries are skipped
// below their threshold.
func applyDiscounts(discounts []models.Discount, subtotal float64, quantity int) float64 {
	var total float64
	running := subtotal
	for _, discount := range discounts {
		if discount.MinQuantity != nil && quantity < *discount.MinQuantity {
			continue
		}
		var amount float64
		if discount.Type == models.DiscountTypePercentage {
			amount = running * discount.Value / 100
		} else {
			amount = discount.Value
		}
		total += amount
		running -= amount
	}
	return total
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
