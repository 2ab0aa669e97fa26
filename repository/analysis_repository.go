package repository

import (
	"context"

	"contractrules-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisRepository handles database operations for contract analyses
type AnalysisRepository struct {
	db *pgxpool.Pool
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// InsertBatch inserts a run's analyses in one batch
func (r *AnalysisRepository) InsertBatch(ctx context.Context, analyses []*models.ContractAnalysis) error {
	if len(analyses) == 0 {
		return nil
	}

	query := `
		INSERT INTO contract_analyses (
			id, contract_id, run_id, analysis_type, content, model
		) VALUES ($1, $2, $3, $4, $5, $6)`

	batch := &pgx.Batch{}
	for _, a := range analyses {
		batch.Queue(query, a.ID, a.ContractID, a.RunID, a.AnalysisType, a.Content, a.Model)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range analyses {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByRun retrieves the analyses of a run
func (r *AnalysisRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]*models.ContractAnalysis, error) {
	query := `
		SELECT id, contract_id, run_id, analysis_type, content, model, created_at
		FROM contract_analyses
		WHERE run_id = $1
		ORDER BY analysis_type`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*models.ContractAnalysis
	for rows.Next() {
		a := &models.ContractAnalysis{}
		err := rows.Scan(
			&a.ID,
			&a.ContractID,
			&a.RunID,
			&a.AnalysisType,
			&a.Content,
			&a.Model,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}

	return analyses, rows.Err()
}
