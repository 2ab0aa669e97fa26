package engine

import (
	"errors"
	"fmt"

	"contractrules-backend/models"
)

// Amounts holds the monetary bases a formula can compute against.
type Amounts struct {
	GrossRevenue float64
	NetRevenue   float64
	Units        float64
}

// value resolves a base field name, defaulting to net revenue and falling
// back to gross revenue when net is absent.
func (a Amounts) value(base string) float64 {
	switch base {
	case models.BaseGrossRevenue:
		return a.GrossRevenue
	case models.BaseNetRevenue:
		return a.NetRevenue
	case models.BaseUnits:
		return a.Units
	default:
		if a.NetRevenue != 0 {
			return a.NetRevenue
		}
		return a.GrossRevenue
	}
}

var errNilFormula = errors.New("formula node is nil")

// EvaluateFormula interprets a FormulaNode tree recursively against the
// given amounts. This tree walk is the only formula evaluator: dynamically
// constructed expression strings are never executed.
func EvaluateFormula(f *models.FormulaNode, amounts Amounts) (float64, error) {
	if f == nil {
		return 0, errNilFormula
	}

	switch f.Type {
	case models.FormulaPercentage:
		return amounts.value(f.Base) * f.Rate, nil

	case models.FormulaFixed, models.FormulaMinimum, models.FormulaMaximum:
		return f.Amount, nil

	case models.FormulaTiered:
		base := amounts.value(f.Base)
		for _, tier := range f.Tiers {
			if base >= tier.Min && (tier.Max == nil || base < *tier.Max) {
				return base * tier.Rate, nil
			}
		}
		return 0, fmt.Errorf("no tier matches base value %.2f", base)

	case models.FormulaConditional:
		branch := f.TrueFormula
		if f.Condition != nil && !evalCondition(f.Condition, amounts) {
			branch = f.FalseFormula
		}
		if branch == nil {
			// Missing branch is a validation warning, not an evaluation
			// failure: the formula simply contributes nothing.
			return 0, nil
		}
		return EvaluateFormula(branch, amounts)

	case models.FormulaArithmetic:
		return evalArithmetic(f, amounts)

	default:
		return 0, fmt.Errorf("unknown formula node type: %q", f.Type)
	}
}

func evalCondition(c *models.FormulaCondition, amounts Amounts) bool {
	v := amounts.value(c.Field)
	switch c.Operator {
	case "gt":
		return v > c.Value
	case "gte":
		return v >= c.Value
	case "lt":
		return v < c.Value
	case "lte":
		return v <= c.Value
	case "eq":
		return v == c.Value
	default:
		return false
	}
}

func evalArithmetic(f *models.FormulaNode, amounts Amounts) (float64, error) {
	if len(f.Operands) < 2 {
		return 0, fmt.Errorf("arithmetic node requires at least 2 operands, got %d", len(f.Operands))
	}

	result, err := EvaluateFormula(f.Operands[0], amounts)
	if err != nil {
		return 0, err
	}

	for _, operand := range f.Operands[1:] {
		v, err := EvaluateFormula(operand, amounts)
		if err != nil {
			return 0, err
		}
		switch f.Operator {
		case "add":
			result += v
		case "subtract":
			result -= v
		case "multiply":
			result *= v
		case "divide":
			if v == 0 {
				return 0, errors.New("division by zero in arithmetic node")
			}
			result /= v
		default:
			return 0, fmt.Errorf("unknown arithmetic operator: %q", f.Operator)
		}
	}

	return result, nil
}
