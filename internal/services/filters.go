package services

import (
	"fmt"

	"configurator-service/internal/models"
)

// The three constraint filters are pure functions of (product, selections).
// Each preserves catalog declaration order and reports non-fatal issues when
// a previously chosen id falls outside the newly filtered candidate set; the
// session service uses those issues to auto-correct.

// MaterialFilterResult carries the filtered material candidates
type MaterialFilterResult struct {
	Materials []models.MaterialCandidate
	Selected  *models.MaterialCandidate
	Issues    []string
}

// FilterMaterials excludes materials whose dimensional constraints are
// smaller than the requested dimension. Unconstrained materials always pass.
func FilterMaterials(product *models.ConfiguratorProduct, sel models.Selections) MaterialFilterResult {
	result := MaterialFilterResult{Materials: make([]models.MaterialCandidate, 0, len(product.Materials))}

	for _, material := range product.Materials {
		if !materialFitsDimension(material, sel.Dimension) {
			continue
		}
		result.Materials = append(result.Materials, models.MaterialCandidate{
			Material:      material,
			EffectiveCost: material.EffectiveCost(),
		})
	}

	if sel.MaterialID != "" {
		for i := range result.Materials {
			if result.Materials[i].ID == sel.MaterialID {
				result.Selected = &result.Materials[i]
				break
			}
		}
		if result.Selected == nil {
			result.Issues = append(result.Issues,
				fmt.Sprintf("material %q is not available for the requested dimensions", sel.MaterialID))
		}
	}

	return result
}

func materialFitsDimension(material models.Material, dim *models.DimensionSelection) bool {
	if material.Constraints == nil || dim == nil {
		return true
	}

	// Normalize both sides to millimeters before comparing.
	dimFactor := dim.Unit.MillimeterFactor()
	widthMM := dim.Width * dimFactor
	heightMM := dim.Height * dimFactor

	c := material.Constraints
	unit := c.Unit
	if unit == "" {
		unit = models.UnitMillimeter
	}
	conFactor := unit.MillimeterFactor()

	if c.MaxWidth != nil && widthMM > *c.MaxWidth*conFactor {
		return false
	}
	if c.MaxHeight != nil && heightMM > *c.MaxHeight*conFactor {
		return false
	}
	if c.MinWidth != nil && widthMM < *c.MinWidth*conFactor {
		return false
	}
	if c.MinHeight != nil && heightMM < *c.MinHeight*conFactor {
		return false
	}
	return true
}

// PrintMethodFilterResult carries the filtered print method candidates
type PrintMethodFilterResult struct {
	PrintMethods []models.PrintMethod
	Selected     *models.PrintMethod
	Issues       []string
}

// FilterPrintMethods excludes methods whose own max bounds are violated by
// the requested dimension and methods incompatible with the selected
// material. Method bounds are declared in millimeters.
func FilterPrintMethods(product *models.ConfiguratorProduct, sel models.Selections) PrintMethodFilterResult {
	result := PrintMethodFilterResult{PrintMethods: make([]models.PrintMethod, 0, len(product.PrintMethods))}

	for _, method := range product.PrintMethods {
		if !printMethodFitsDimension(method, sel.Dimension) {
			continue
		}
		if sel.MaterialID != "" && !method.SupportsMaterial(sel.MaterialID) {
			continue
		}
		result.PrintMethods = append(result.PrintMethods, method)
	}

	if sel.PrintMethodID != "" {
		for i := range result.PrintMethods {
			if result.PrintMethods[i].ID == sel.PrintMethodID {
				result.Selected = &result.PrintMethods[i]
				break
			}
		}
		if result.Selected == nil {
			result.Issues = append(result.Issues,
				fmt.Sprintf("print method %q is not compatible with the current selection", sel.PrintMethodID))
		}
	}

	return result
}

func printMethodFitsDimension(method models.PrintMethod, dim *models.DimensionSelection) bool {
	if dim == nil {
		return true
	}
	factor := dim.Unit.MillimeterFactor()
	widthMM := dim.Width * factor
	heightMM := dim.Height * factor

	if method.MaxWidth != nil && widthMM > *method.MaxWidth {
		return false
	}
	if method.MaxHeight != nil && heightMM > *method.MaxHeight {
		return false
	}
	return true
}

// FinishingFilterResult carries the filtered finishing candidates and the
// sanitized selection (the intersection of the requested ids with the
// filtered set, in catalog order).
type FinishingFilterResult struct {
	Finishing []models.Finishing
	Selected  []models.Finishing
	Issues    []string
}

// FilterFinishing excludes treatments incompatible with the selected material
func FilterFinishing(product *models.ConfiguratorProduct, sel models.Selections) FinishingFilterResult {
	result := FinishingFilterResult{
		Finishing: make([]models.Finishing, 0, len(product.Finishing)),
		Selected:  []models.Finishing{},
	}

	for _, finishing := range product.Finishing {
		if sel.MaterialID != "" && !finishing.SupportsMaterial(sel.MaterialID) {
			continue
		}
		result.Finishing = append(result.Finishing, finishing)
	}

	requested := make(map[string]bool, len(sel.FinishingIDs))
	for _, id := range sel.FinishingIDs {
		requested[id] = true
	}
	available := make(map[string]bool, len(result.Finishing))
	for _, finishing := range result.Finishing {
		available[finishing.ID] = true
		if requested[finishing.ID] {
			result.Selected = append(result.Selected, finishing)
		}
	}
	for _, id := range sel.FinishingIDs {
		if !available[id] {
			result.Issues = append(result.Issues,
				fmt.Sprintf("finishing %q is not compatible with the selected material", id))
		}
	}

	return result
}
