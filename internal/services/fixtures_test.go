package services

import (
	"configurator-service/internal/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

// testProduct builds a configurable print product covering every facet:
// two materials (one area-priced with dimensional constraints), two print
// methods (one material-restricted and size-bounded), two finishing
// treatments (one material-restricted), tiered fixed pricing and a
// visibility rule between the two options.
func testProduct() *models.ConfiguratorProduct {
	return &models.ConfiguratorProduct{
		ID:     "prod-flyer",
		Slug:   "premium-flyers",
		Name:   "Premium Flyers",
		Type:   models.ProductTypeConfigurable,
		Active: true,
		Options: []models.Option{
			{
				ID:       "opt-size",
				Name:     "Size",
				Type:     models.OptionTypeSelect,
				Required: true,
				Values: []models.OptionValue{
					{Value: "small", Label: "Small"},
					{Value: "large", Label: "Large", PriceModifier: floatPtr(5)},
				},
				Rules: []models.OptionRule{
					{Condition: "option.opt-size = small", Action: "hide:opt-premium"},
				},
			},
			{
				ID:   "opt-premium",
				Name: "Premium extras",
				Type: models.OptionTypeCheckbox,
				Values: []models.OptionValue{
					{Value: "lamination", Label: "Lamination", PriceModifier: floatPtr(10)},
					{Value: "uv", Label: "UV coating", PriceModifier: floatPtr(15)},
				},
			},
		},
		Materials: []models.Material{
			{
				ID:            "paper-150",
				Name:          "Paper 150g",
				Unit:          "sheet",
				CostPerUnit:   30,
				PriceModifier: floatPtr(10),
			},
			{
				ID:          "vinyl",
				Name:        "Vinyl",
				Unit:        "m2",
				CostPerUnit: 20,
				Constraints: &models.MaterialConstraints{
					MaxWidth:  floatPtr(1000),
					MaxHeight: floatPtr(1000),
					Unit:      models.UnitMillimeter,
				},
			},
		},
		PrintMethods: []models.PrintMethod{
			{
				ID:           "digital",
				Name:         "Digital",
				CostPerSheet: floatPtr(1),
			},
			{
				ID:          "offset",
				Name:        "Offset",
				CostPerM2:   floatPtr(5),
				MaxWidth:    floatPtr(700),
				MaterialIDs: []string{"paper-150"},
			},
		},
		Finishing: []models.Finishing{
			{
				ID:                    "lamination",
				Name:                  "Lamination",
				CostFix:               floatPtr(10),
				CompatibleMaterialIDs: []string{"paper-150"},
			},
			{
				ID:          "round-corners",
				Name:        "Rounded corners",
				CostPerUnit: floatPtr(2),
			},
		},
		Pricing: models.Pricing{
			Type:      models.PricingTypeFixed,
			BasePrice: 100,
			PriceBreaks: []models.PriceBreak{
				{MinQuantity: 10, MaxQuantity: intPtr(49), PricePerUnit: 90},
				{MinQuantity: 50, MaxQuantity: nil, PricePerUnit: 80},
			},
		},
		Dimensions: &models.Dimensions{
			WidthMin:  floatPtr(50),
			WidthMax:  floatPtr(2000),
			HeightMin: floatPtr(50),
			HeightMax: floatPtr(2000),
			Unit:      models.UnitMillimeter,
		},
		Defaults: models.Defaults{
			Quantity: 1,
			OptionValues: map[string]models.SelectionValue{
				"opt-size": models.SingleValue("large"),
			},
		},
	}
}

func dimensionMM(width, height float64) *models.DimensionSelection {
	return &models.DimensionSelection{Width: width, Height: height, Unit: models.UnitMillimeter}
}
