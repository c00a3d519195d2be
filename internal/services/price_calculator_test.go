package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"configurator-service/internal/models"
)

func TestCalculatePrice_FixedWithoutBreak(t *testing.T) {
	product := testProduct()
	result := CalculatePrice(product, models.Selections{Quantity: 1}, PriceParts{})

	assert.Equal(t, 100.0, result.Breakdown.Base)
	assert.Nil(t, result.Breakdown.AppliedPriceBreak)
	assert.Equal(t, 100.0, result.Breakdown.Total)
}

func TestCalculatePrice_FixedWithBreaks(t *testing.T) {
	product := testProduct()

	result := CalculatePrice(product, models.Selections{Quantity: 10}, PriceParts{})
	assert.NotNil(t, result.Breakdown.AppliedPriceBreak)
	assert.Equal(t, 90.0, result.Breakdown.AppliedPriceBreak.PricePerUnit)
	assert.Equal(t, 900.0, result.Breakdown.Base)

	result = CalculatePrice(product, models.Selections{Quantity: 50}, PriceParts{})
	assert.NotNil(t, result.Breakdown.AppliedPriceBreak)
	assert.Equal(t, 80.0, result.Breakdown.AppliedPriceBreak.PricePerUnit)
	assert.Equal(t, 4000.0, result.Breakdown.Base)
}

func TestCalculatePrice_PerSqm(t *testing.T) {
	product := testProduct()
	product.Pricing = models.Pricing{Type: models.PricingTypePerSqm, BasePrice: 50}

	sel := models.Selections{Quantity: 1, Dimension: dimensionMM(1000, 1000)}
	result := CalculatePrice(product, sel, PriceParts{})

	assert.Equal(t, 50.0, result.Breakdown.Base)
	assert.NotNil(t, result.Breakdown.Area)
	assert.Equal(t, 1.0, *result.Breakdown.Area)
}

func TestCalculatePrice_PerUnit(t *testing.T) {
	product := testProduct()
	product.Pricing = models.Pricing{Type: models.PricingTypePerUnit, BasePrice: 3}

	result := CalculatePrice(product, models.Selections{Quantity: 7}, PriceParts{})
	assert.Equal(t, 21.0, result.Breakdown.Base)
}

func TestCalculatePrice_Formula(t *testing.T) {
	product := testProduct()
	product.Pricing = models.Pricing{
		Type:    models.PricingTypeFormula,
		Formula: "AREA * 100 + QTY * 10",
	}

	sel := models.Selections{Quantity: 5, Dimension: dimensionMM(1000, 500)}
	result := CalculatePrice(product, sel, PriceParts{})

	assert.Equal(t, 100.0, result.Breakdown.Base)
	assert.Empty(t, result.Issues)
}

func TestCalculatePrice_FormulaFailureFallsBack(t *testing.T) {
	product := testProduct()
	product.Pricing = models.Pricing{
		Type:      models.PricingTypeFormula,
		BasePrice: 42,
		Formula:   "AREA ** QTY",
	}

	result := CalculatePrice(product, models.Selections{Quantity: 5}, PriceParts{})

	assert.Equal(t, 42.0, result.Breakdown.Base)
	assert.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "formula")
}

func TestCalculatePrice_QuantityZeroReportedRaw(t *testing.T) {
	product := testProduct()
	result := CalculatePrice(product, models.Selections{Quantity: 0}, PriceParts{})

	// The breakdown reports the raw quantity; the computation clamps to 1
	assert.Equal(t, 0, result.Breakdown.Quantity)
	assert.Equal(t, 100.0, result.Breakdown.Total)
}

func TestCalculatePrice_MaterialCostByQuantity(t *testing.T) {
	product := testProduct()
	material := product.MaterialByID("paper-150")

	result := CalculatePrice(product, models.Selections{Quantity: 10}, PriceParts{Material: material})

	// effective cost 30 + 10 = 40 per sheet
	assert.Equal(t, 400.0, result.Breakdown.MaterialCost)
}

func TestCalculatePrice_MaterialCostByArea(t *testing.T) {
	product := testProduct()
	material := product.MaterialByID("vinyl")

	sel := models.Selections{Quantity: 10, Dimension: dimensionMM(1000, 500)}
	result := CalculatePrice(product, sel, PriceParts{Material: material})

	// 20 per m2 at 0.5 m2, independent of quantity
	assert.Equal(t, 10.0, result.Breakdown.MaterialCost)
}

func TestCalculatePrice_PrintAndFinishingCosts(t *testing.T) {
	product := testProduct()
	method := &product.PrintMethods[1] // offset: 5 per m2
	finishing := []models.Finishing{
		product.Finishing[0], // lamination: fix 10
		product.Finishing[1], // round corners: 2 per unit
	}

	sel := models.Selections{Quantity: 10, Dimension: dimensionMM(1000, 1000)}
	result := CalculatePrice(product, sel, PriceParts{PrintMethod: method, Finishing: finishing})

	assert.Equal(t, 5.0, result.Breakdown.PrintCost)
	assert.Equal(t, 30.0, result.Breakdown.FinishingCost)
}

func TestCalculatePrice_OptionAdjustmentIncluded(t *testing.T) {
	product := testProduct()
	result := CalculatePrice(product, models.Selections{Quantity: 1}, PriceParts{OptionAdjustment: 30})

	assert.Equal(t, 30.0, result.Breakdown.OptionCost)
	assert.Equal(t, 130.0, result.Breakdown.Total)
}

func TestCalculatePrice_SequentialDiscounts(t *testing.T) {
	product := testProduct()
	product.Pricing.Discounts = []models.Discount{
		{Type: models.DiscountTypePercentage, Value: 10},
		{Type: models.DiscountTypeFixed, Value: 5},
	}

	result := CalculatePrice(product, models.Selections{Quantity: 1}, PriceParts{})

	// 10% of 100, then 5 flat
	assert.Equal(t, 15.0, result.Breakdown.Discounts)
	assert.Equal(t, 85.0, result.Breakdown.Total)
}

func TestCalculatePrice_QuantityGatedDiscount(t *testing.T) {
	product := testProduct()
	product.Pricing.Discounts = []models.Discount{
		{Type: models.DiscountTypePercentage, Value: 10, MinQuantity: intPtr(100)},
	}

	result := CalculatePrice(product, models.Selections{Quantity: 5}, PriceParts{})
	assert.Equal(t, 0.0, result.Breakdown.Discounts)
}

func TestCalculatePrice_TotalClampedAtZero(t *testing.T) {
	product := testProduct()
	product.Pricing.Discounts = []models.Discount{
		{Type: models.DiscountTypeFixed, Value: 500},
	}

	result := CalculatePrice(product, models.Selections{Quantity: 1}, PriceParts{})
	assert.Equal(t, 0.0, result.Breakdown.Total)
}

func TestCalculatePrice_NoPartsContributeZero(t *testing.T) {
	product := testProduct()
	result := CalculatePrice(product, models.Selections{Quantity: 1}, PriceParts{})

	assert.Equal(t, 0.0, result.Breakdown.MaterialCost)
	assert.Equal(t, 0.0, result.Breakdown.PrintCost)
	assert.Equal(t, 0.0, result.Breakdown.FinishingCost)
}
