package services

import (
	"math"
	"strconv"
	"strings"

	"configurator-service/internal/models"
)

// The rule strings ("option.size = small", "hide:premium") form a tiny
// condition/action language embedded in catalog documents. They are parsed
// once per session into tagged variants; evaluation never re-parses text.

type ruleOperator string

const (
	opIncludes ruleOperator = "includes"
	opGTE      ruleOperator = ">="
	opLTE      ruleOperator = "<="
	opNE       ruleOperator = "!="
	opGT       ruleOperator = ">"
	opLT       ruleOperator = "<"
	opEQ       ruleOperator = "="
)

// Operator order matters: multi-character operators must be tried before
// their single-character prefixes.
var ruleOperators = []ruleOperator{opIncludes, opGTE, opLTE, opNE, opGT, opLT, opEQ}

type ruleSubjectKind int

const (
	subjectUnknown ruleSubjectKind = iota
	subjectOption
	subjectMaterial
	subjectPrintMethod
	subjectFinishing
	subjectQuantity
	subjectProductType
)

// ruleFragment is one parsed comparison, e.g. "option.size = small"
type ruleFragment struct {
	kind     ruleSubjectKind
	optionID string
	operator ruleOperator
	value    string
}

// ruleCondition is a disjunction of conjunction groups ("a && b || c").
// An empty condition always matches.
type ruleCondition [][]ruleFragment

type ruleActionKind int

const (
	actionNone ruleActionKind = iota
	actionHide
	actionShow
	actionDisable
	actionPrice
	actionError
)

// ruleAction is one parsed action, e.g. "hide:premium" or "price:25"
type ruleAction struct {
	kind       ruleActionKind
	optionID   string
	value      string // disable target value, "*" for the whole option
	priceDelta float64
	message    string
}

type compiledRule struct {
	condition ruleCondition
	action    ruleAction
}

// RuleSet holds a product's option rules in parsed form, in catalog
// declaration order.
type RuleSet struct {
	rules []compiledRule
}

// CompileOptionRules parses every option rule of the product. Fragments or
// actions that do not parse are dropped, matching the lenient handling of
// existing product definitions.
func CompileOptionRules(product *models.ConfiguratorProduct) RuleSet {
	var set RuleSet
	for _, option := range product.Options {
		for _, rule := range option.Rules {
			action := parseRuleAction(rule.Action)
			if action.kind == actionNone {
				continue
			}
			set.rules = append(set.rules, compiledRule{
				condition: parseRuleCondition(rule.Condition),
				action:    action,
			})
		}
	}
	return set
}

func parseRuleCondition(condition string) ruleCondition {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return nil
	}

	var parsed ruleCondition
	for _, group := range strings.Split(condition, "||") {
		var fragments []ruleFragment
		valid := true
		for _, raw := range strings.Split(group, "&&") {
			fragment, ok := parseRuleFragment(raw)
			if !ok {
				valid = false
				break
			}
			fragments = append(fragments, fragment)
		}
		if valid && len(fragments) > 0 {
			parsed = append(parsed, fragments)
		} else {
			// An unparseable group can never match; keep an impossible
			// placeholder so the group count stays meaningful.
			parsed = append(parsed, nil)
		}
	}
	return parsed
}

func parseRuleFragment(raw string) (ruleFragment, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ruleFragment{}, false
	}

	for _, operator := range ruleOperators {
		index := strings.Index(trimmed, string(operator))
		if index < 0 {
			continue
		}
		subject := strings.TrimSpace(trimmed[:index])
		value := normalizeRuleValue(trimmed[index+len(operator):])

		fragment := ruleFragment{operator: operator, value: value}
		switch {
		case strings.HasPrefix(subject, "option."):
			fragment.kind = subjectOption
			fragment.optionID = strings.TrimPrefix(subject, "option.")
		case subject == "material":
			fragment.kind = subjectMaterial
		case subject == "printMethod":
			fragment.kind = subjectPrintMethod
		case subject == "finishing":
			fragment.kind = subjectFinishing
		case subject == "quantity":
			fragment.kind = subjectQuantity
		case subject == "type":
			fragment.kind = subjectProductType
		default:
			fragment.kind = subjectUnknown
		}
		return fragment, true
	}
	return ruleFragment{}, false
}

func normalizeRuleValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) >= 2 {
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return trimmed[1 : len(trimmed)-1]
		}
	}
	return trimmed
}

func parseRuleAction(action string) ruleAction {
	trimmed := strings.TrimSpace(action)
	switch {
	case strings.HasPrefix(trimmed, "hide:"):
		id := stripOptionPrefix(strings.TrimPrefix(trimmed, "hide:"))
		if id == "" {
			return ruleAction{}
		}
		return ruleAction{kind: actionHide, optionID: id}

	case strings.HasPrefix(trimmed, "show:"):
		id := stripOptionPrefix(strings.TrimPrefix(trimmed, "show:"))
		if id == "" {
			return ruleAction{}
		}
		return ruleAction{kind: actionShow, optionID: id}

	case strings.HasPrefix(trimmed, "disable:"):
		payload := strings.TrimSpace(strings.TrimPrefix(trimmed, "disable:"))
		optionSegment, valueSegment, hasValue := strings.Cut(payload, "=")
		id := stripOptionPrefix(optionSegment)
		if id == "" {
			return ruleAction{}
		}
		value := "*"
		if hasValue {
			value = strings.TrimSpace(valueSegment)
		}
		return ruleAction{kind: actionDisable, optionID: id, value: value}

	case strings.HasPrefix(trimmed, "price:"):
		delta, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(trimmed, "price:")), 64)
		if err != nil || math.IsInf(delta, 0) || math.IsNaN(delta) {
			return ruleAction{}
		}
		return ruleAction{kind: actionPrice, priceDelta: delta}

	case strings.HasPrefix(trimmed, "error:"):
		message := strings.TrimSpace(strings.TrimPrefix(trimmed, "error:"))
		if message == "" {
			return ruleAction{}
		}
		return ruleAction{kind: actionError, message: message}
	}
	return ruleAction{}
}

func stripOptionPrefix(segment string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(segment), "option."))
}

// OptionRuleResult is the option engine output: the visible options with
// value-level disables applied, the aggregated price adjustment from selected
// values and price actions, and the required-option validation errors.
type OptionRuleResult struct {
	VisibleOptions   []models.Option
	HiddenOptionIDs  map[string]bool
	PriceAdjustment  float64
	ValidationErrors []string
}

// Apply evaluates the rule set against the current selections. Rules fire in
// catalog declaration order; when several hide/show actions target the same
// option the last firing rule wins.
func (r RuleSet) Apply(product *models.ConfiguratorProduct, sel models.Selections) OptionRuleResult {
	hidden := make(map[string]bool)
	disabled := make(map[string]map[string]bool)
	var adjustment float64
	var errors []string

	for _, rule := range r.rules {
		if !rule.condition.matches(product, sel) {
			continue
		}
		switch rule.action.kind {
		case actionHide:
			hidden[rule.action.optionID] = true
		case actionShow:
			hidden[rule.action.optionID] = false
		case actionDisable:
			if disabled[rule.action.optionID] == nil {
				disabled[rule.action.optionID] = make(map[string]bool)
			}
			disabled[rule.action.optionID][rule.action.value] = true
		case actionPrice:
			adjustment += rule.action.priceDelta
		case actionError:
			errors = append(errors, rule.action.message)
		}
	}

	// Price modifiers of the selected option values
	for _, option := range product.Options {
		selected, ok := sel.Options[option.ID]
		if !ok || selected.IsZero() {
			continue
		}
		for _, chosen := range selected.Values() {
			for _, value := range option.Values {
				if value.Value == chosen && value.PriceModifier != nil {
					adjustment += *value.PriceModifier
				}
			}
		}
	}

	result := OptionRuleResult{
		HiddenOptionIDs: hidden,
		PriceAdjustment: math.Round(adjustment*100) / 100,
	}

	for _, option := range product.Options {
		if hidden[option.ID] {
			continue
		}
		visible := option
		if disables := disabled[option.ID]; len(disables) > 0 {
			wholeOption := disables["*"]
			values := make([]models.OptionValue, len(option.Values))
			for i, value := range option.Values {
				values[i] = value
				if wholeOption || disables[value.Value] {
					values[i].Disabled = true
				}
			}
			visible.Values = values
		}
		result.VisibleOptions = append(result.VisibleOptions, visible)
	}

	// Required visible options must carry a value
	for _, option := range result.VisibleOptions {
		if !option.Required {
			continue
		}
		selected, ok := sel.Options[option.ID]
		if !ok || selected.IsZero() {
			errors = append(errors, "option \""+option.Name+"\" is required")
		}
	}
	result.ValidationErrors = errors

	return result
}

// ApplyOptionRules compiles and applies in one step, for callers that do not
// keep a session-scoped rule set.
func ApplyOptionRules(product *models.ConfiguratorProduct, sel models.Selections) OptionRuleResult {
	return CompileOptionRules(product).Apply(product, sel)
}

func (c ruleCondition) matches(product *models.ConfiguratorProduct, sel models.Selections) bool {
	if len(c) == 0 {
		return true
	}
	for _, group := range c {
		if len(group) == 0 {
			continue
		}
		all := true
		for _, fragment := range group {
			if !fragment.matches(product, sel) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func (f ruleFragment) matches(product *models.ConfiguratorProduct, sel models.Selections) bool {
	switch f.kind {
	case subjectQuantity:
		return compareNumeric(float64(sel.Quantity), f.operator, f.value)

	case subjectFinishing:
		return compareStrings(sel.FinishingIDs, f.operator, f.value)

	case subjectOption:
		return compareStrings(sel.Options[f.optionID].Values(), f.operator, f.value)

	case subjectMaterial:
		return compareScalar(sel.MaterialID, f.operator, f.value)

	case subjectPrintMethod:
		return compareScalar(sel.PrintMethodID, f.operator, f.value)

	case subjectProductType:
		return compareScalar(string(product.Type), f.operator, f.value)
	}
	return false
}

func compareNumeric(current float64, operator ruleOperator, value string) bool {
	expected, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}
	switch operator {
	case opGTE:
		return current >= expected
	case opLTE:
		return current <= expected
	case opGT:
		return current > expected
	case opLT:
		return current < expected
	case opEQ:
		return current == expected
	case opNE:
		return current != expected
	}
	return false
}

// compareScalar compares a single selected id. An empty selection matches
// nothing except "!=".
func compareScalar(current string, operator ruleOperator, value string) bool {
	switch operator {
	case opEQ:
		return current != "" && current == value
	case opNE:
		return current != value
	case opIncludes:
		return current == value
	}
	return false
}

// compareStrings compares a value collection: "=" and "includes" test
// membership, "!=" tests absence.
func compareStrings(current []string, operator ruleOperator, value string) bool {
	contains := false
	for _, v := range current {
		if v == value {
			contains = true
			break
		}
	}
	switch operator {
	case opEQ, opIncludes:
		return contains
	case opNE:
		return !contains
	}
	return false
}
