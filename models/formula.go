package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Formula node types. This is the one closed vocabulary in the model: the
// synthesizer prompt pins the LLM to exactly these variants.
const (
	FormulaPercentage  = "percentage"
	FormulaFixed       = "fixed"
	FormulaTiered      = "tier"
	FormulaConditional = "conditional"
	FormulaArithmetic  = "arithmetic"
	FormulaMinimum     = "minimum"
	FormulaMaximum     = "maximum"
)

// Base fields a formula can compute against.
const (
	BaseGrossRevenue = "grossRevenue"
	BaseNetRevenue   = "netRevenue"
	BaseUnits        = "units"
)

// FormulaTier is one band of a tiered rate. Max == nil means unbounded.
// Tier matching is half-open: min <= base < max.
type FormulaTier struct {
	Min  float64  `json:"min"`
	Max  *float64 `json:"max"`
	Rate float64  `json:"rate"`
}

// FormulaCondition guards the conditional variant.
type FormulaCondition struct {
	Field    string  `json:"field"`
	Operator string  `json:"operator"` // "gt", "gte", "lt", "lte", "eq"
	Value    float64 `json:"value"`
}

// FormulaNode is the recursive expression tree describing how a royalty or
// fee amount is computed. Exactly one variant's fields are populated per
// node, discriminated by Type. Trees are synthesized bottom-up and never
// user-edited, so they are acyclic by construction.
type FormulaNode struct {
	Type string `json:"type"`

	// percentage
	Rate float64 `json:"rate,omitempty"`
	Base string  `json:"base,omitempty"`

	// fixed / minimum / maximum
	Amount   float64 `json:"amount,omitempty"`
	Currency string  `json:"currency,omitempty"`

	// tier
	Tiers []FormulaTier `json:"tiers,omitempty"`

	// conditional
	Condition    *FormulaCondition `json:"condition,omitempty"`
	TrueFormula  *FormulaNode      `json:"trueFormula,omitempty"`
	FalseFormula *FormulaNode      `json:"falseFormula,omitempty"`

	// arithmetic
	Operator string         `json:"operator,omitempty"` // "add", "subtract", "multiply", "divide"
	Operands []*FormulaNode `json:"operands,omitempty"`
}

// Validate checks that the node's Type is in the closed vocabulary. Deeper
// structural checks (tier bounds, operand counts) belong to the validator.
func (f *FormulaNode) Validate() error {
	switch f.Type {
	case FormulaPercentage, FormulaFixed, FormulaTiered, FormulaConditional,
		FormulaArithmetic, FormulaMinimum, FormulaMaximum:
		return nil
	default:
		return fmt.Errorf("unknown formula node type: %q", f.Type)
	}
}

// Value implements driver.Valuer for JSONB
func (f FormulaNode) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner for JSONB
func (f *FormulaNode) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, f)
}
