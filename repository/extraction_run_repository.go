package repository

import (
	"context"
	"time"

	"contractrules-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExtractionRunRepository handles database operations for extraction runs
type ExtractionRunRepository struct {
	db *pgxpool.Pool
}

// NewExtractionRunRepository creates a new extraction run repository
func NewExtractionRunRepository(db *pgxpool.Pool) *ExtractionRunRepository {
	return &ExtractionRunRepository{db: db}
}

// Create creates a new extraction run
func (r *ExtractionRunRepository) Create(ctx context.Context, run *models.ExtractionRun) error {
	query := `
		INSERT INTO extraction_runs (
			id, contract_id, status, ai_model
		) VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		run.ID,
		run.ContractID,
		run.Status,
		run.AIModel,
	).Scan(&run.CreatedAt, &run.UpdatedAt)

	return err
}

// GetByID retrieves an extraction run by ID
func (r *ExtractionRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExtractionRun, error) {
	run := &models.ExtractionRun{}
	query := `
		SELECT id, contract_id, status, ai_model, overall_confidence,
			nodes_extracted, edges_extracted, rules_extracted, error_log,
			created_at, updated_at, completed_at
		FROM extraction_runs
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.ContractID,
		&run.Status,
		&run.AIModel,
		&run.OverallConfidence,
		&run.NodesExtracted,
		&run.EdgesExtracted,
		&run.RulesExtracted,
		&run.ErrorLog,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CompletedAt,
	)

	if err != nil {
		return nil, err
	}

	return run, nil
}

// ListByContract retrieves all runs for a contract, newest first
func (r *ExtractionRunRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*models.ExtractionRun, error) {
	query := `
		SELECT id, contract_id, status, ai_model, overall_confidence,
			nodes_extracted, edges_extracted, rules_extracted, error_log,
			created_at, updated_at, completed_at
		FROM extraction_runs
		WHERE contract_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.ExtractionRun
	for rows.Next() {
		run := &models.ExtractionRun{}
		err := rows.Scan(
			&run.ID,
			&run.ContractID,
			&run.Status,
			&run.AIModel,
			&run.OverallConfidence,
			&run.NodesExtracted,
			&run.EdgesExtracted,
			&run.RulesExtracted,
			&run.ErrorLog,
			&run.CreatedAt,
			&run.UpdatedAt,
			&run.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Reset puts a run back into processing before a retry, clearing counts and
// the error log
func (r *ExtractionRunRepository) Reset(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE extraction_runs SET
			status = $2,
			overall_confidence = 0,
			nodes_extracted = 0,
			edges_extracted = 0,
			rules_extracted = 0,
			error_log = NULL,
			completed_at = NULL,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.RunStatusProcessing)
	return err
}

// Finish records the terminal state and counts of a run
func (r *ExtractionRunRepository) Finish(ctx context.Context, run *models.ExtractionRun) error {
	now := time.Now()
	query := `
		UPDATE extraction_runs SET
			status = $2,
			overall_confidence = $3,
			nodes_extracted = $4,
			edges_extracted = $5,
			rules_extracted = $6,
			error_log = $7,
			completed_at = $8,
			updated_at = $8
		WHERE id = $1`

	_, err := r.db.Exec(
		ctx, query,
		run.ID,
		run.Status,
		run.OverallConfidence,
		run.NodesExtracted,
		run.EdgesExtracted,
		run.RulesExtracted,
		run.ErrorLog,
		now,
	)
	if err == nil {
		run.CompletedAt = &now
	}
	return err
}

// Fail marks a run as failed with an error log
func (r *ExtractionRunRepository) Fail(ctx context.Context, id uuid.UUID, errorLog string) error {
	query := `
		UPDATE extraction_runs SET
			status = $2,
			error_log = $3,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.RunStatusFailed, errorLog)
	return err
}
