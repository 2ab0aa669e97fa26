// Package engine evaluates activated royalty rules against transactional
// sales input. Evaluation is synchronous, pure and stateless: it only reads
// the rule set, so concurrent calls for different transactions need no
// locking.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"contractrules-backend/models"
)

// DefaultCurrency is reported when no rule specifies one.
const DefaultCurrency = "USD"

var wildcardCategories = map[string]bool{
	"*":       true,
	"general": true,
	"all":     true,
}

// Calculate evaluates every active rule against the input, sums the applied
// amounts in priority order and applies cap / minimum-guarantee
// post-processing. A per-rule calculation error is recorded in the breakdown
// and never aborts the batch.
func Calculate(rules []models.RoyaltyRule, input models.CalculationInput) (*models.CalculationResult, error) {
	warnings, err := validateInput(input)
	if err != nil {
		return nil, err
	}

	amounts := Amounts{}
	if input.GrossRevenue != nil {
		amounts.GrossRevenue = *input.GrossRevenue
	}
	if input.NetRevenue != nil {
		amounts.NetRevenue = *input.NetRevenue
	}
	if input.Units != nil {
		amounts.Units = *input.Units
	}

	active := make([]models.RoyaltyRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	// Stable sort keeps the incoming order among equal priorities, so
	// repeated calls produce identical breakdown ordering.
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})

	result := &models.CalculationResult{
		Breakdown:    make([]models.RuleOutcome, 0, len(active)),
		Warnings:     warnings,
		Currency:     DefaultCurrency,
		CalculatedAt: time.Now().UTC(),
	}

	var total float64
	var capAmount, minimumAmount *float64
	var capRule, minimumRule string
	var capPriority, minimumPriority int
	rulesApplied := 0
	appliedPriority := 0

	for _, rule := range active {
		outcome := models.RuleOutcome{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			RuleType: rule.RuleType,
			Priority: rule.Priority,
		}

		if reason, ok := matchConditions(rule.Conditions, input); !ok {
			outcome.Reason = reason
			result.Breakdown = append(result.Breakdown, outcome)
			continue
		}

		amount, err := ruleAmount(rule, amounts)
		if err != nil {
			outcome.Reason = err.Error()
			result.Breakdown = append(result.Breakdown, outcome)
			continue
		}

		outcome.Applied = true
		outcome.Amount = amount

		switch rule.RuleType {
		case models.RuleTypeCap:
			// Caps and minimum guarantees shape the final total in
			// post-processing rather than summing into it; they count
			// as applied only when they actually change the total.
			outcome.Reason = "applied as cap during post-processing"
			if capAmount == nil || amount < *capAmount {
				capAmount = &amount
				capRule = rule.Name
				capPriority = rule.Priority
			}
		case models.RuleTypeMinimumGuarantee:
			outcome.Reason = "applied as minimum guarantee during post-processing"
			if minimumAmount == nil || amount > *minimumAmount {
				minimumAmount = &amount
				minimumRule = rule.Name
				minimumPriority = rule.Priority
			}
		default:
			total += amount
			if amount != 0 {
				rulesApplied++
				if result.Metadata.HighestPriorityRule == "" {
					result.Metadata.HighestPriorityRule = rule.Name
					appliedPriority = rule.Priority
				}
			}
		}
		result.Breakdown = append(result.Breakdown, outcome)
	}

	countShaper := func(name string, priority int) {
		rulesApplied++
		if result.Metadata.HighestPriorityRule == "" || priority < appliedPriority {
			result.Metadata.HighestPriorityRule = name
			appliedPriority = priority
		}
	}

	// Post-processing order matters: clamp to the cap, then raise to the
	// minimum guarantee, then floor at zero.
	if capAmount != nil && total > *capAmount {
		total = *capAmount
		countShaper(capRule, capPriority)
	}
	if minimumAmount != nil && total < *minimumAmount {
		total = *minimumAmount
		countShaper(minimumRule, minimumPriority)
	}
	if total < 0 {
		total = 0
	}

	result.TotalRoyalty = total
	result.Metadata.RulesEvaluated = len(active)
	result.Metadata.RulesApplied = rulesApplied

	return result, nil
}

// validateInput enforces the input contract: at least one base value, no
// negatives, and a warning (not an error) when net exceeds gross.
func validateInput(input models.CalculationInput) ([]string, error) {
	if input.GrossRevenue == nil && input.NetRevenue == nil && input.Units == nil {
		return nil, fmt.Errorf("calculation input must supply at least one of grossRevenue, netRevenue or units")
	}

	for name, v := range map[string]*float64{
		"grossRevenue": input.GrossRevenue,
		"netRevenue":   input.NetRevenue,
		"units":        input.Units,
	} {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("%s must not be negative, got %.2f", name, *v)
		}
	}

	var warnings []string
	if input.GrossRevenue != nil && input.NetRevenue != nil && *input.NetRevenue > *input.GrossRevenue {
		warnings = append(warnings, fmt.Sprintf(
			"netRevenue (%.2f) exceeds grossRevenue (%.2f)", *input.NetRevenue, *input.GrossRevenue))
	}
	return warnings, nil
}

// matchConditions evaluates every rule condition against the input; any
// failing condition excludes the rule with a human-readable reason.
func matchConditions(c models.RuleConditions, input models.CalculationInput) (string, bool) {
	if reason, ok := matchProduct(c.ProductCategories, input.ProductCategory); !ok {
		return reason, false
	}

	if len(c.Territories) > 0 {
		if input.Territory == "" {
			return "rule requires a territory but input has none", false
		}
		if !containsFold(c.Territories, input.Territory) {
			return fmt.Sprintf("territory %q not covered by rule", input.Territory), false
		}
	}

	if c.MinVolume != nil || c.MaxVolume != nil {
		if input.Units == nil {
			return "rule has volume bounds but input has no units", false
		}
		if c.MinVolume != nil && *input.Units < *c.MinVolume {
			return fmt.Sprintf("units %.0f below minimum volume %.0f", *input.Units, *c.MinVolume), false
		}
		if c.MaxVolume != nil && *input.Units > *c.MaxVolume {
			return fmt.Sprintf("units %.0f above maximum volume %.0f", *input.Units, *c.MaxVolume), false
		}
	}

	if c.Timeframe != "" && !strings.EqualFold(c.Timeframe, input.Timeframe) {
		return fmt.Sprintf("timeframe %q does not match rule timeframe %q", input.Timeframe, c.Timeframe), false
	}

	for key, want := range c.Custom {
		got, ok := input.CustomFields[key]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return fmt.Sprintf("custom field %q does not match", key), false
		}
	}

	return "", true
}

// matchProduct implements the wildcard semantics: an empty category list, or
// any of "*", "general", "all" (case-insensitive, trimmed) matches every
// product, including an input with no product set. Specific categories
// require the input to name a product and match exactly.
func matchProduct(categories []string, product string) (string, bool) {
	if len(categories) == 0 {
		return "", true
	}
	for _, cat := range categories {
		if wildcardCategories[strings.ToLower(strings.TrimSpace(cat))] {
			return "", true
		}
	}
	if product == "" {
		return "rule requires a product category but input has none", false
	}
	if !containsFold(categories, product) {
		return fmt.Sprintf("product category %q not covered by rule", product), false
	}
	return "", true
}

func containsFold(haystack []string, needle string) bool {
	needle = strings.TrimSpace(needle)
	for _, s := range haystack {
		if strings.EqualFold(strings.TrimSpace(s), needle) {
			return true
		}
	}
	return false
}

// ruleAmount computes one rule's contribution by its type.
func ruleAmount(rule models.RoyaltyRule, amounts Amounts) (float64, error) {
	base := amounts.value(rule.Calculation.Base)

	switch rule.RuleType {
	case models.RuleTypePercentage:
		return base * rule.Calculation.Rate, nil

	case models.RuleTypeTiered:
		for _, tier := range rule.Calculation.Tiers {
			if base >= tier.Min && (tier.Max == nil || base < *tier.Max) {
				return base * tier.Rate, nil
			}
		}
		return 0, fmt.Errorf("no tier matches base value %.2f", base)

	case models.RuleTypeMinimumGuarantee, models.RuleTypeCap, models.RuleTypeFixedFee:
		return rule.Calculation.Amount, nil

	case models.RuleTypeDeduction:
		if rule.Calculation.Rate != 0 {
			return -(base * rule.Calculation.Rate), nil
		}
		return -rule.Calculation.Amount, nil

	default:
		return 0, fmt.Errorf("unknown rule type: %q", rule.RuleType)
	}
}
