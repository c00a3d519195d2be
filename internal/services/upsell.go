package services

import (
	"fmt"
	"sort"

	"configurator-service/internal/models"
)

// The upsell projections are read-only: they never mutate the session's
// selections. A chosen suggestion is applied by the caller through a normal
// mutation, which re-runs the full recompute.

// QuantityUpsells projects the order total at every price-break threshold
// above the current quantity and reports the per-unit savings of moving
// there. Suggestions are ordered by ascending quantity.
func QuantityUpsells(product *models.ConfiguratorProduct, sel models.Selections, parts PriceParts, currentTotal float64) []models.QuantitySuggestion {
	currentQty := sel.Quantity
	if currentQty < 1 {
		currentQty = 1
	}
	currentUnit := currentTotal / float64(currentQty)

	thresholds := make([]int, 0, len(product.Pricing.PriceBreaks))
	seen := make(map[int]bool)
	for _, priceBreak := range product.Pricing.PriceBreaks {
		if priceBreak.MinQuantity > currentQty && !seen[priceBreak.MinQuantity] {
			thresholds = append(thresholds, priceBreak.MinQuantity)
			seen[priceBreak.MinQuantity] = true
		}
	}
	sort.Ints(thresholds)

	suggestions := make([]models.QuantitySuggestion, 0, len(thresholds))
	for _, quantity := range thresholds {
		projected := sel.Clone()
		projected.Quantity = quantity
		breakdown := CalculatePrice(product, projected, parts).Breakdown

		unitPrice := breakdown.Total / float64(quantity)
		extraCost := breakdown.Total - currentTotal
		var savings float64
		if currentUnit > 0 {
			savings = (currentUnit - unitPrice) / currentUnit * 100
			if savings < 0 {
				savings = 0
			}
		}

		suggestions = append(suggestions, models.QuantitySuggestion{
			Quantity:          quantity,
			Total:             breakdown.Total,
			UnitPrice:         round2(unitPrice),
			ExtraCost:         round2(extraCost),
			SavingsPerUnitPct: round2(savings),
			Message: fmt.Sprintf("Order %d units for %+.0f and save %.0f%% per unit",
				quantity, extraCost, savings),
		})
	}
	return suggestions
}

// FinishUpsells proposes the compatible finishing treatments not yet selected
// and swaps to more expensive materials, each priced as the delta between the
// projected and the current total.
func FinishUpsells(
	product *models.ConfiguratorProduct,
	sel models.Selections,
	parts PriceParts,
	finishing []models.Finishing,
	materials []models.MaterialCandidate,
	currentTotal float64,
) []models.FinishSuggestion {
	var suggestions []models.FinishSuggestion

	selected := make(map[string]bool, len(sel.FinishingIDs))
	for _, id := range sel.FinishingIDs {
		selected[id] = true
	}

	for _, candidate := range finishing {
		if selected[candidate.ID] {
			continue
		}
		projectedParts := parts
		projectedParts.Finishing = append(append([]models.Finishing{}, parts.Finishing...), candidate)
		breakdown := CalculatePrice(product, sel, projectedParts).Breakdown

		suggestions = append(suggestions, models.FinishSuggestion{
			ID:          "finishing-" + candidate.ID,
			Label:       candidate.Name,
			Kind:        "finishing",
			FinishingID: candidate.ID,
			Price:       round2(breakdown.Total - currentTotal),
		})
	}

	var currentCost float64
	if parts.Material != nil {
		currentCost = parts.Material.EffectiveCost()
	}
	for i := range materials {
		candidate := &materials[i]
		if candidate.ID == sel.MaterialID || candidate.EffectiveCost <= currentCost {
			continue
		}
		projectedParts := parts
		projectedParts.Material = &candidate.Material
		breakdown := CalculatePrice(product, sel, projectedParts).Breakdown

		suggestions = append(suggestions, models.FinishSuggestion{
			ID:         "material-" + candidate.ID,
			Label:      candidate.Name,
			Kind:       "material",
			MaterialID: candidate.ID,
			Price:      round2(breakdown.Total - currentTotal),
		})
	}

	return suggestions
}
