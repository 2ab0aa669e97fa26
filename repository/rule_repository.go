package repository

import (
	"context"

	"contractrules-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RuleRepository handles database operations for synthesized rules
type RuleRepository struct {
	db *pgxpool.Pool
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, run_id, contract_id, rule_type, name, description,
	formula, applicability_filters, confidence, graph_node_id,
	validation_status, validation_issues, is_inferred, is_active,
	created_at, updated_at`

// Insert inserts a synthesized rule
func (r *RuleRepository) Insert(ctx context.Context, rule *models.SynthesizedRule) error {
	query := `
		INSERT INTO synthesized_rules (
			id, run_id, contract_id, rule_type, name, description,
			formula, applicability_filters, confidence, graph_node_id,
			validation_status, validation_issues, is_inferred, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		rule.ID,
		rule.RunID,
		rule.ContractID,
		rule.RuleType,
		rule.Name,
		rule.Description,
		rule.Formula,
		rule.ApplicabilityFilters,
		rule.Confidence,
		rule.GraphNodeID,
		rule.ValidationStatus,
		rule.ValidationIssues,
		rule.IsInferred,
		rule.IsActive,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
}

// GetByID retrieves a rule by ID
func (r *RuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SynthesizedRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM synthesized_rules WHERE id = $1`

	rule := &models.SynthesizedRule{}
	err := r.scanRule(r.db.QueryRow(ctx, query, id), rule)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListByRun retrieves all rules of a run
func (r *RuleRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]*models.SynthesizedRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM synthesized_rules
		WHERE run_id = $1
		ORDER BY created_at`

	return r.queryRules(ctx, query, runID)
}

// ListActiveByContract retrieves the active rules of a contract
func (r *RuleRepository) ListActiveByContract(ctx context.Context, contractID uuid.UUID) ([]*models.SynthesizedRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM synthesized_rules
		WHERE contract_id = $1 AND is_active = true
		ORDER BY created_at`

	return r.queryRules(ctx, query, contractID)
}

// SetActive flips the active flag on a rule
func (r *RuleRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE synthesized_rules SET
			is_active = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, active)
	return err
}

// DeleteByRun removes all rules of a run
func (r *RuleRepository) DeleteByRun(ctx context.Context, runID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM synthesized_rules WHERE run_id = $1`, runID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RuleRepository) scanRule(row rowScanner, rule *models.SynthesizedRule) error {
	return row.Scan(
		&rule.ID,
		&rule.RunID,
		&rule.ContractID,
		&rule.RuleType,
		&rule.Name,
		&rule.Description,
		&rule.Formula,
		&rule.ApplicabilityFilters,
		&rule.Confidence,
		&rule.GraphNodeID,
		&rule.ValidationStatus,
		&rule.ValidationIssues,
		&rule.IsInferred,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
}

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]*models.SynthesizedRule, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.SynthesizedRule
	for rows.Next() {
		rule := &models.SynthesizedRule{}
		if err := r.scanRule(rows, rule); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}
