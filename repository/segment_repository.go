package repository

import (
	"context"

	"contractrules-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SegmentRepository handles database operations for document segments
type SegmentRepository struct {
	db *pgxpool.Pool
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db *pgxpool.Pool) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// InsertBatch inserts all segments of a run in one batch
func (r *SegmentRepository) InsertBatch(ctx context.Context, segments []models.DocumentSegment) error {
	if len(segments) == 0 {
		return nil
	}

	query := `
		INSERT INTO document_segments (
			id, contract_id, run_id, section, order_index,
			raw_text, normalized_text, page_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	batch := &pgx.Batch{}
	for _, s := range segments {
		batch.Queue(query,
			s.ID,
			s.ContractID,
			s.RunID,
			s.Section,
			s.OrderIndex,
			s.RawText,
			s.NormalizedText,
			s.PageNumber,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range segments {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByRun retrieves the segments of a run in document order
func (r *SegmentRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]models.DocumentSegment, error) {
	query := `
		SELECT id, contract_id, run_id, section, order_index,
			raw_text, normalized_text, page_number, created_at
		FROM document_segments
		WHERE run_id = $1
		ORDER BY order_index`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []models.DocumentSegment
	for rows.Next() {
		var s models.DocumentSegment
		err := rows.Scan(
			&s.ID,
			&s.ContractID,
			&s.RunID,
			&s.Section,
			&s.OrderIndex,
			&s.RawText,
			&s.NormalizedText,
			&s.PageNumber,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}

	return segments, rows.Err()
}

// DeleteByRun removes all segments of a run
func (r *SegmentRepository) DeleteByRun(ctx context.Context, runID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_segments WHERE run_id = $1`, runID)
	return err
}
