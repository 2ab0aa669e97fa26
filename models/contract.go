package models

import (
	"time"

	"github.com/google/uuid"
)

// ContractStatus represents the lifecycle status of a contract
type ContractStatus string

const (
	ContractStatusDraft    ContractStatus = "draft"
	ContractStatusActive   ContractStatus = "active"
	ContractStatusArchived ContractStatus = "archived"
)

// Contract represents a contract entity. The extraction pipeline hangs off
// this row: FullText holds the text previously extracted from the source
// document and is what RetryExtraction re-reads.
type Contract struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Status      ContractStatus `json:"status"`
	FullText    *string        `json:"full_text,omitempty"`
	DocumentKey *string        `json:"document_key,omitempty"` // storage key of the source document
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
