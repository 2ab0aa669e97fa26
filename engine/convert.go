package engine

import (
	"fmt"
	"strings"

	"contractrules-backend/models"
)

const defaultPriority = 50

// FromSynthesized flattens synthesized rules into the evaluation-time form.
// Conditional and arithmetic formula trees have no flat equivalent; those
// rules are skipped with a warning rather than mis-evaluated.
func FromSynthesized(rules []*models.SynthesizedRule) ([]models.RoyaltyRule, []string) {
	var out []models.RoyaltyRule
	var warnings []string

	for _, rule := range rules {
		flat, err := flatten(rule)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("rule %q skipped: %v", rule.Name, err))
			continue
		}
		out = append(out, flat)
	}
	return out, warnings
}

func flatten(rule *models.SynthesizedRule) (models.RoyaltyRule, error) {
	ruleType, err := flatRuleType(rule)
	if err != nil {
		return models.RoyaltyRule{}, err
	}

	calc, err := flatCalculation(ruleType, &rule.Formula)
	if err != nil {
		return models.RoyaltyRule{}, err
	}

	conditions, priority := conditionsFromFilters(rule.ApplicabilityFilters)

	return models.RoyaltyRule{
		ID:          rule.ID,
		Name:        rule.Name,
		RuleType:    ruleType,
		Conditions:  conditions,
		Calculation: calc,
		Priority:    priority,
		IsActive:    rule.IsActive,
		Confidence:  rule.Confidence,
	}, nil
}

// flatRuleType prefers the synthesizer's declared type when it is already in
// the engine vocabulary, otherwise derives it from the formula root.
func flatRuleType(rule *models.SynthesizedRule) (string, error) {
	switch rule.RuleType {
	case models.RuleTypePercentage, models.RuleTypeTiered, models.RuleTypeMinimumGuarantee,
		models.RuleTypeCap, models.RuleTypeDeduction, models.RuleTypeFixedFee:
		return rule.RuleType, nil
	}

	switch rule.Formula.Type {
	case models.FormulaPercentage:
		return models.RuleTypePercentage, nil
	case models.FormulaTiered:
		return models.RuleTypeTiered, nil
	case models.FormulaFixed:
		return models.RuleTypeFixedFee, nil
	case models.FormulaMinimum:
		return models.RuleTypeMinimumGuarantee, nil
	case models.FormulaMaximum:
		return models.RuleTypeCap, nil
	default:
		return "", fmt.Errorf("formula type %q has no flat rule form", rule.Formula.Type)
	}
}

func flatCalculation(ruleType string, f *models.FormulaNode) (models.RuleCalculation, error) {
	// An empty base stays empty; the engine resolves the default base
	// (net revenue first, then gross) at calculation time.
	base := f.Base

	switch ruleType {
	case models.RuleTypePercentage:
		return models.RuleCalculation{Rate: f.Rate, Base: base}, nil

	case models.RuleTypeTiered:
		if len(f.Tiers) == 0 {
			return models.RuleCalculation{}, fmt.Errorf("tiered rule has no tiers")
		}
		return models.RuleCalculation{Tiers: f.Tiers, Base: base}, nil

	case models.RuleTypeMinimumGuarantee, models.RuleTypeCap, models.RuleTypeFixedFee:
		amount := f.Amount
		// minimum/maximum wrappers may carry the literal in an operand.
		if amount == 0 {
			for _, op := range f.Operands {
				if op.Type == models.FormulaFixed {
					amount = op.Amount
					break
				}
			}
		}
		return models.RuleCalculation{Amount: amount}, nil

	case models.RuleTypeDeduction:
		return models.RuleCalculation{Rate: f.Rate, Amount: f.Amount, Base: base}, nil

	default:
		return models.RuleCalculation{}, fmt.Errorf("unknown rule type: %q", ruleType)
	}
}

// conditionsFromFilters maps the synthesizer's loose applicability filters
// onto typed conditions. Unknown keys land in Custom.
func conditionsFromFilters(filters models.Properties) (models.RuleConditions, int) {
	conditions := models.RuleConditions{}
	priority := defaultPriority

	for key, value := range filters {
		switch strings.ToLower(key) {
		case "productcategories", "product_categories":
			conditions.ProductCategories = toStringSlice(value)
		case "territories":
			conditions.Territories = toStringSlice(value)
		case "minvolume", "min_volume":
			if v, ok := toFloat(value); ok {
				conditions.MinVolume = &v
			}
		case "maxvolume", "max_volume":
			if v, ok := toFloat(value); ok {
				conditions.MaxVolume = &v
			}
		case "timeframe":
			conditions.Timeframe = fmt.Sprint(value)
		case "priority":
			if v, ok := toFloat(value); ok && v >= 1 && v <= 100 {
				priority = int(v)
			}
		default:
			if conditions.Custom == nil {
				conditions.Custom = make(map[string]interface{})
			}
			conditions.Custom[key] = value
		}
	}
	return conditions, priority
}

func toStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
