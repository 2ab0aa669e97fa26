package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractrules-backend/models"
)

// TestEvaluateFormula_Percentage verifies percentage nodes against each
// base field.
func TestEvaluateFormula_Percentage(t *testing.T) {
	amounts := Amounts{GrossRevenue: 1_000, NetRevenue: 800, Units: 50}

	tests := []struct {
		base string
		want float64
	}{
		{models.BaseGrossRevenue, 100},
		{models.BaseNetRevenue, 80},
		{models.BaseUnits, 5},
	}
	for _, tt := range tests {
		got, err := EvaluateFormula(&models.FormulaNode{
			Type: models.FormulaPercentage,
			Rate: 0.1,
			Base: tt.base,
		}, amounts)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-9)
	}
}

// TestEvaluateFormula_UnknownBaseFallsBack verifies an unspecified base
// resolves to net revenue, then gross.
func TestEvaluateFormula_UnknownBaseFallsBack(t *testing.T) {
	f := &models.FormulaNode{Type: models.FormulaPercentage, Rate: 0.1}

	got, err := EvaluateFormula(f, Amounts{GrossRevenue: 1_000, NetRevenue: 500})
	require.NoError(t, err)
	assert.InDelta(t, 50, got, 1e-9)

	got, err = EvaluateFormula(f, Amounts{GrossRevenue: 1_000})
	require.NoError(t, err)
	assert.InDelta(t, 100, got, 1e-9)
}

// TestEvaluateFormula_TierHalfOpen verifies min <= base < max matching,
// including the exact boundary.
func TestEvaluateFormula_TierHalfOpen(t *testing.T) {
	max1 := 10_000.0
	f := &models.FormulaNode{
		Type: models.FormulaTiered,
		Base: models.BaseGrossRevenue,
		Tiers: []models.FormulaTier{
			{Min: 0, Max: &max1, Rate: 0.05},
			{Min: 10_000, Max: nil, Rate: 0.08},
		},
	}

	got, err := EvaluateFormula(f, Amounts{GrossRevenue: 9_999.99})
	require.NoError(t, err)
	assert.InDelta(t, 9_999.99*0.05, got, 1e-9)

	// Boundary value belongs to the upper tier.
	got, err = EvaluateFormula(f, Amounts{GrossRevenue: 10_000})
	require.NoError(t, err)
	assert.InDelta(t, 800, got, 1e-9)

	_, err = EvaluateFormula(&models.FormulaNode{
		Type:  models.FormulaTiered,
		Base:  models.BaseGrossRevenue,
		Tiers: []models.FormulaTier{{Min: 100, Max: &max1, Rate: 0.05}},
	}, Amounts{GrossRevenue: 50})
	assert.Error(t, err)
}

// TestEvaluateFormula_Conditional verifies branch selection and the
// missing-branch contract.
func TestEvaluateFormula_Conditional(t *testing.T) {
	f := &models.FormulaNode{
		Type: models.FormulaConditional,
		Condition: &models.FormulaCondition{
			Field:    models.BaseGrossRevenue,
			Operator: "gt",
			Value:    5_000,
		},
		TrueFormula:  &models.FormulaNode{Type: models.FormulaPercentage, Rate: 0.1, Base: models.BaseGrossRevenue},
		FalseFormula: &models.FormulaNode{Type: models.FormulaFixed, Amount: 100},
	}

	got, err := EvaluateFormula(f, Amounts{GrossRevenue: 10_000})
	require.NoError(t, err)
	assert.InDelta(t, 1_000, got, 1e-9)

	got, err = EvaluateFormula(f, Amounts{GrossRevenue: 1_000})
	require.NoError(t, err)
	assert.InDelta(t, 100, got, 1e-9)

	// A missing branch contributes zero rather than failing.
	f.FalseFormula = nil
	got, err = EvaluateFormula(f, Amounts{GrossRevenue: 1_000})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

// TestEvaluateFormula_Arithmetic verifies operators, nesting and the
// divide-by-zero error.
func TestEvaluateFormula_Arithmetic(t *testing.T) {
	amounts := Amounts{GrossRevenue: 1_000}

	pct := func(rate float64) *models.FormulaNode {
		return &models.FormulaNode{Type: models.FormulaPercentage, Rate: rate, Base: models.BaseGrossRevenue}
	}
	fixed := func(amount float64) *models.FormulaNode {
		return &models.FormulaNode{Type: models.FormulaFixed, Amount: amount}
	}

	tests := []struct {
		operator string
		operands []*models.FormulaNode
		want     float64
	}{
		{"add", []*models.FormulaNode{pct(0.1), fixed(50)}, 150},
		{"subtract", []*models.FormulaNode{pct(0.1), fixed(30)}, 70},
		{"multiply", []*models.FormulaNode{fixed(4), fixed(25)}, 100},
		{"divide", []*models.FormulaNode{pct(0.1), fixed(4)}, 25},
	}
	for _, tt := range tests {
		got, err := EvaluateFormula(&models.FormulaNode{
			Type:     models.FormulaArithmetic,
			Operator: tt.operator,
			Operands: tt.operands,
		}, amounts)
		require.NoError(t, err, tt.operator)
		assert.InDelta(t, tt.want, got, 1e-9, tt.operator)
	}

	_, err := EvaluateFormula(&models.FormulaNode{
		Type:     models.FormulaArithmetic,
		Operator: "divide",
		Operands: []*models.FormulaNode{fixed(100), fixed(0)},
	}, amounts)
	assert.Error(t, err)

	_, err = EvaluateFormula(&models.FormulaNode{
		Type:     models.FormulaArithmetic,
		Operator: "add",
		Operands: []*models.FormulaNode{fixed(100)},
	}, amounts)
	assert.Error(t, err)
}

// TestEvaluateFormula_NilAndUnknown verifies the error paths.
func TestEvaluateFormula_NilAndUnknown(t *testing.T) {
	_, err := EvaluateFormula(nil, Amounts{})
	assert.Error(t, err)

	_, err = EvaluateFormula(&models.FormulaNode{Type: "exotic"}, Amounts{})
	assert.Error(t, err)
}
