package repository

import (
	"context"
	"time"

	"contractrules-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewTaskRepository handles database operations for review tasks
type ReviewTaskRepository struct {
	db *pgxpool.Pool
}

// NewReviewTaskRepository creates a new review task repository
func NewReviewTaskRepository(db *pgxpool.Pool) *ReviewTaskRepository {
	return &ReviewTaskRepository{db: db}
}

// Create creates a new review task
func (r *ReviewTaskRepository) Create(ctx context.Context, task *models.ReviewTask) error {
	query := `
		INSERT INTO review_tasks (
			id, run_id, target_type, target_id, original_data,
			confidence, priority, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		task.ID,
		task.RunID,
		task.TargetType,
		task.TargetID,
		task.OriginalData,
		task.Confidence,
		task.Priority,
		task.Status,
	).Scan(&task.CreatedAt)
}

// GetByID retrieves a review task by ID
func (r *ReviewTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewTask, error) {
	task := &models.ReviewTask{}
	query := `
		SELECT id, run_id, target_type, target_id, original_data,
			confidence, priority, status, assignee, notes,
			created_at, resolved_at
		FROM review_tasks
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.RunID,
		&task.TargetType,
		&task.TargetID,
		&task.OriginalData,
		&task.Confidence,
		&task.Priority,
		&task.Status,
		&task.Assignee,
		&task.Notes,
		&task.CreatedAt,
		&task.ResolvedAt,
	)

	if err != nil {
		return nil, err
	}

	return task, nil
}

// ListPending retrieves open review tasks, high priority first, optionally
// filtered by assignee
func (r *ReviewTaskRepository) ListPending(ctx context.Context, assignee *string) ([]*models.ReviewTask, error) {
	query := `
		SELECT id, run_id, target_type, target_id, original_data,
			confidence, priority, status, assignee, notes,
			created_at, resolved_at
		FROM review_tasks
		WHERE status = $1`

	args := []interface{}{models.ReviewPending}
	if assignee != nil {
		query += ` AND assignee = $2`
		args = append(args, *assignee)
	}
	query += `
		ORDER BY CASE priority WHEN 'high' THEN 0 ELSE 1 END, created_at`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.ReviewTask
	for rows.Next() {
		task := &models.ReviewTask{}
		err := rows.Scan(
			&task.ID,
			&task.RunID,
			&task.TargetType,
			&task.TargetID,
			&task.OriginalData,
			&task.Confidence,
			&task.Priority,
			&task.Status,
			&task.Assignee,
			&task.Notes,
			&task.CreatedAt,
			&task.ResolvedAt,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// Resolve records the resolution of a review task
func (r *ReviewTaskRepository) Resolve(ctx context.Context, task *models.ReviewTask) error {
	now := time.Now()
	query := `
		UPDATE review_tasks SET
			status = $2,
			assignee = $3,
			notes = $4,
			resolved_at = $5
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, task.ID, task.Status, task.Assignee, task.Notes, now)
	if err == nil {
		task.ResolvedAt = &now
	}
	return err
}
