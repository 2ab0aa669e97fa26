package service

import (
	"fmt"
	"math"
	"math/rand"

	"contractrules-backend/engine"
	"contractrules-backend/models"
)

// Per-rule confidence penalties applied on top of the synthesis confidence.
const (
	ErrorPenalty   = 0.15
	WarningPenalty = 0.05
)

// Monte-Carlo defaults: random sales values in [1K, 1M].
const (
	MonteCarloRuns     = 100
	MonteCarloMinSales = 1_000.0
	MonteCarloMaxSales = 1_000_000.0
)

// RuleValidation is the outcome of validating one rule: structured issues
// plus a confidence multiplier derived from them.
type RuleValidation struct {
	Issues     models.ValidationIssues
	Confidence float64
}

// SimulationStats summarizes a Monte-Carlo run over random sales values. It
// is a sanity signal, not a gate.
type SimulationStats struct {
	Runs   int     `json:"runs"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Errors int     `json:"errors"`
}

// Validator runs the three independent checks (dimensional, consistency,
// business plausibility) over a synthesized rule's formula tree.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRule runs all checks and derives the validation confidence:
// 1.0 minus 15% per error and 5% per warning, floored at 0. The issues are
// data, not failures; they are always recorded even when they do not block
// activation.
func (v *Validator) ValidateRule(rule *models.SynthesizedRule) RuleValidation {
	var issues models.ValidationIssues
	issues = append(issues, v.checkDimensional(&rule.Formula, "formula")...)
	issues = append(issues, v.checkConsistency(&rule.Formula, "formula")...)
	issues = append(issues, v.checkBusinessLogic(rule)...)

	confidence := 1.0
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityError:
			confidence -= ErrorPenalty
		case models.SeverityWarning:
			confidence -= WarningPenalty
		}
	}

	return RuleValidation{Issues: issues, Confidence: clamp01(confidence)}
}

// checkDimensional verifies units and numeric ranges throughout the tree.
func (v *Validator) checkDimensional(f *models.FormulaNode, path string) models.ValidationIssues {
	if f == nil {
		return nil
	}
	var issues models.ValidationIssues

	switch f.Type {
	case models.FormulaPercentage:
		if f.Rate < 0 || f.Rate > 1 {
			issues = append(issues, models.ValidationIssue{
				Severity: models.SeverityWarning,
				Category: models.CategoryDimensional,
				Message:  fmt.Sprintf("percentage rate %.4f is outside [0, 1]", f.Rate),
				Field:    path + ".rate",
			})
		}
	case models.FormulaFixed, models.FormulaMinimum, models.FormulaMaximum:
		if f.Amount < 0 {
			issues = append(issues, models.ValidationIssue{
				Severity: models.SeverityError,
				Category: models.CategoryDimensional,
				Message:  fmt.Sprintf("amount %.2f must not be negative", f.Amount),
				Field:    path + ".amount",
			})
		}
	case models.FormulaTiered:
		for i, tier := range f.Tiers {
			if tier.Max != nil && tier.Min >= *tier.Max {
				issues = append(issues, models.ValidationIssue{
					Severity: models.SeverityError,
					Category: models.CategoryDimensional,
					Message:  fmt.Sprintf("tier %d has min %.2f >= max %.2f", i, tier.Min, *tier.Max),
					Field:    fmt.Sprintf("%s.tiers[%d]", path, i),
				})
			}
		}
	}

	for i, child := range childNodes(f) {
		issues = append(issues, v.checkDimensional(child, fmt.Sprintf("%s[%d]", path, i))...)
	}
	return issues
}

// checkConsistency verifies the tree's structural shape.
func (v *Validator) checkConsistency(f *models.FormulaNode, path string) models.ValidationIssues {
	if f == nil {
		return nil
	}
	var issues models.ValidationIssues

	switch f.Type {
	case models.FormulaConditional:
		if f.TrueFormula == nil || f.FalseFormula == nil {
			issues = append(issues, models.ValidationIssue{
				Severity: models.SeverityWarning,
				Category: models.CategoryConsistency,
				Message:  "conditional is missing a branch",
				Field:    path,
			})
		}
	case models.FormulaArithmetic:
		if len(f.Operands) < 2 {
			issues = append(issues, models.ValidationIssue{
				Severity: models.SeverityError,
				Category: models.CategoryConsistency,
				Message:  fmt.Sprintf("arithmetic node has %d operands, needs at least 2", len(f.Operands)),
				Field:    path + ".operands",
			})
		}
	}

	for i, child := range childNodes(f) {
		issues = append(issues, v.checkConsistency(child, fmt.Sprintf("%s[%d]", path, i))...)
	}
	return issues
}

// checkBusinessLogic flags commercially implausible values. A rule with no
// applicability filters applies globally; that is flagged, not rejected.
func (v *Validator) checkBusinessLogic(rule *models.SynthesizedRule) models.ValidationIssues {
	var issues models.ValidationIssues

	walkFormula(&rule.Formula, func(f *models.FormulaNode) {
		if f.Type != models.FormulaPercentage {
			return
		}
		if f.Rate > 0.50 {
			issues = append(issues, models.ValidationIssue{
				Severity: models.SeverityWarning,
				Category: models.CategoryBusinessLogic,
				Message:  fmt.Sprintf("royalty rate %.2f%% is unusually high", f.Rate*100),
				Field:    "formula.rate",
			})
		} else if f.Rate < 0.01 {
			issues = append(issues, models.ValidationIssue{
				Severity: models.SeverityWarning,
				Category: models.CategoryBusinessLogic,
				Message:  fmt.Sprintf("royalty rate %.2f%% is unusually low", f.Rate*100),
				Field:    "formula.rate",
			})
		}
	})

	if len(rule.ApplicabilityFilters) == 0 {
		issues = append(issues, models.ValidationIssue{
			Severity: models.SeverityInfo,
			Category: models.CategoryBusinessLogic,
			Message:  "rule has no applicability filters and applies to all transactions",
			Field:    "applicabilityFilters",
		})
	}

	return issues
}

// Simulate evaluates the formula against n random sales values and reports
// distribution statistics. Evaluation errors are counted, not raised.
func (v *Validator) Simulate(formula *models.FormulaNode, n int, seed int64) SimulationStats {
	if n <= 0 {
		n = MonteCarloRuns
	}
	rng := rand.New(rand.NewSource(seed))

	stats := SimulationStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var values []float64

	for i := 0; i < n; i++ {
		sales := MonteCarloMinSales + rng.Float64()*(MonteCarloMaxSales-MonteCarloMinSales)
		amount, err := engine.EvaluateFormula(formula, engine.Amounts{
			GrossRevenue: sales,
			NetRevenue:   sales,
			Units:        sales,
		})
		if err != nil {
			stats.Errors++
			continue
		}
		values = append(values, amount)
		if amount < stats.Min {
			stats.Min = amount
		}
		if amount > stats.Max {
			stats.Max = amount
		}
	}

	stats.Runs = n
	if len(values) == 0 {
		stats.Min, stats.Max = 0, 0
		return stats
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	stats.Mean = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - stats.Mean) * (v - stats.Mean)
	}
	stats.StdDev = math.Sqrt(variance / float64(len(values)))

	return stats
}

func childNodes(f *models.FormulaNode) []*models.FormulaNode {
	var children []*models.FormulaNode
	if f.TrueFormula != nil {
		children = append(children, f.TrueFormula)
	}
	if f.FalseFormula != nil {
		children = append(children, f.FalseFormula)
	}
	children = append(children, f.Operands...)
	return children
}

func walkFormula(f *models.FormulaNode, visit func(*models.FormulaNode)) {
	if f == nil {
		return
	}
	visit(f)
	for _, child := range childNodes(f) {
		walkFormula(child, visit)
	}
}
