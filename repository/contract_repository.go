package repository

import (
	"context"

	"contractrules-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ContractRepository handles database operations for contracts
type ContractRepository struct {
	db *pgxpool.Pool
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create creates a new contract
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	query := `
		INSERT INTO contracts (
			title, status, full_text, document_key
		) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		contract.Title,
		contract.Status,
		contract.FullText,
		contract.DocumentKey,
	).Scan(&contract.ID, &contract.CreatedAt, &contract.UpdatedAt)

	return err
}

// GetByID retrieves a contract by ID
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract := &models.Contract{}
	query := `
		SELECT id, title, status, full_text, document_key, created_at, updated_at
		FROM contracts
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&contract.ID,
		&contract.Title,
		&contract.Status,
		&contract.FullText,
		&contract.DocumentKey,
		&contract.CreatedAt,
		&contract.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return contract, nil
}

// List retrieves contracts ordered by creation time
func (r *ContractRepository) List(ctx context.Context, limit, offset int) ([]*models.Contract, error) {
	query := `
		SELECT id, title, status, full_text, document_key, created_at, updated_at
		FROM contracts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []*models.Contract
	for rows.Next() {
		contract := &models.Contract{}
		err := rows.Scan(
			&contract.ID,
			&contract.Title,
			&contract.Status,
			&contract.FullText,
			&contract.DocumentKey,
			&contract.CreatedAt,
			&contract.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}

	return contracts, rows.Err()
}

// UpdateFullText stores the extracted text on the contract row
func (r *ContractRepository) UpdateFullText(ctx context.Context, id uuid.UUID, fullText string) error {
	query := `
		UPDATE contracts SET
			full_text = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, fullText)
	return err
}

// SetDocumentKey records the storage key of the source document
func (r *ContractRepository) SetDocumentKey(ctx context.Context, id uuid.UUID, key string) error {
	query := `
		UPDATE contracts SET
			document_key = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, key)
	return err
}

// Delete removes a contract and everything hanging off it via cascade
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	return err
}
