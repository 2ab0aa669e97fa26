package models

import (
	"time"

	"github.com/google/uuid"
)

// Rule types understood by the evaluation engine (flattened form).
const (
	RuleTypePercentage       = "percentage"
	RuleTypeTiered           = "tiered"
	RuleTypeMinimumGuarantee = "minimum_guarantee"
	RuleTypeCap              = "cap"
	RuleTypeDeduction        = "deduction"
	RuleTypeFixedFee         = "fixed_fee"
)

// RuleConditions restrict when a royalty rule applies. Empty slices act as
// wildcards; nil bounds mean unbounded.
type RuleConditions struct {
	ProductCategories []string               `json:"productCategories,omitempty"`
	Territories       []string               `json:"territories,omitempty"`
	MinVolume         *float64               `json:"minVolume,omitempty"`
	MaxVolume         *float64               `json:"maxVolume,omitempty"`
	Timeframe         string                 `json:"timeframe,omitempty"`
	Custom            map[string]interface{} `json:"custom,omitempty"`
}

// RuleCalculation holds the per-type calculation parameters.
type RuleCalculation struct {
	Rate   float64       `json:"rate,omitempty"`   // percentage, deduction
	Amount float64       `json:"amount,omitempty"` // minimum_guarantee, cap, fixed_fee, literal deduction
	Base   string        `json:"base,omitempty"`   // grossRevenue | netRevenue | units
	Tiers  []FormulaTier `json:"tiers,omitempty"`  // tiered
}

// RoyaltyRule is the flattened, evaluation-time form of a rule. Lower
// priority runs first (1-100). Only active rules participate.
type RoyaltyRule struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	RuleType    string          `json:"ruleType"`
	Conditions  RuleConditions  `json:"conditions"`
	Calculation RuleCalculation `json:"calculation"`
	Priority    int             `json:"priority"`
	IsActive    bool            `json:"isActive"`
	Confidence  float64         `json:"confidence"`
}

// CalculationInput is one transaction to evaluate rules against. At least
// one of GrossRevenue, NetRevenue or Units must be supplied.
type CalculationInput struct {
	GrossRevenue    *float64               `json:"grossRevenue,omitempty"`
	NetRevenue      *float64               `json:"netRevenue,omitempty"`
	Units           *float64               `json:"units,omitempty"`
	Territory       string                 `json:"territory,omitempty"`
	ProductCategory string                 `json:"productCategory,omitempty"`
	Timeframe       string                 `json:"timeframe,omitempty"`
	CustomFields    map[string]interface{} `json:"customFields,omitempty"`
}

// RuleOutcome records what happened to one rule during evaluation, applied
// or not.
type RuleOutcome struct {
	RuleID   uuid.UUID `json:"ruleId"`
	RuleName string    `json:"ruleName"`
	RuleType string    `json:"ruleType"`
	Priority int       `json:"priority"`
	Applied  bool      `json:"applied"`
	Amount   float64   `json:"amount"`
	Reason   string    `json:"reason,omitempty"`
}

// CalculationMetadata summarizes an evaluation. RulesApplied counts only
// rules that contributed a non-zero amount.
type CalculationMetadata struct {
	RulesEvaluated      int    `json:"rulesEvaluated"`
	RulesApplied        int    `json:"rulesApplied"`
	HighestPriorityRule string `json:"highestPriorityRule,omitempty"`
}

// CalculationResult is the full breakdown returned by the engine.
type CalculationResult struct {
	TotalRoyalty float64             `json:"totalRoyalty"`
	Breakdown    []RuleOutcome       `json:"breakdown"`
	Warnings     []string            `json:"warnings,omitempty"`
	Currency     string              `json:"currency"`
	CalculatedAt time.Time           `json:"calculatedAt"`
	Metadata     CalculationMetadata `json:"metadata"`
}
