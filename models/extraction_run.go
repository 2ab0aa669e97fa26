package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionRunStatus represents the status of an extraction run
type ExtractionRunStatus string

const (
	RunStatusProcessing    ExtractionRunStatus = "processing"
	RunStatusCompleted     ExtractionRunStatus = "completed"
	RunStatusPendingReview ExtractionRunStatus = "pending_review"
	RunStatusFailed        ExtractionRunStatus = "failed"
)

// ExtractionRun represents one end-to-end execution of the rule extraction
// pipeline for a single contract. Only the pipeline service mutates it, and
// completed/failed are terminal.
type ExtractionRun struct {
	ID                uuid.UUID           `json:"id"`
	ContractID        uuid.UUID           `json:"contract_id"`
	Status            ExtractionRunStatus `json:"status"`
	AIModel           string              `json:"ai_model"`
	OverallConfidence float64             `json:"overall_confidence"`
	NodesExtracted    int                 `json:"nodes_extracted"`
	EdgesExtracted    int                 `json:"edges_extracted"`
	RulesExtracted    int                 `json:"rules_extracted"`
	ErrorLog          *string             `json:"error_log,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
}
