package models

import (
	"time"

	"github.com/google/uuid"
)

// Review target types
const (
	TargetGraphNode      = "graph_node"
	TargetRuleDefinition = "rule_definition"
)

// Review priorities. High is assigned iff confidence < HighPriorityThreshold.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

// ReviewTaskStatus of a human review task
type ReviewTaskStatus string

const (
	ReviewPending  ReviewTaskStatus = "pending"
	ReviewApproved ReviewTaskStatus = "approved"
	ReviewRejected ReviewTaskStatus = "rejected"
)

// ReviewTask queues a low-confidence node or rule for a human decision.
// Approval is the only path that flips the target's isActive once the
// pipeline has deferred it.
type ReviewTask struct {
	ID           uuid.UUID        `json:"id"`
	RunID        uuid.UUID        `json:"run_id"`
	TargetType   string           `json:"target_type"`
	TargetID     uuid.UUID        `json:"target_id"`
	OriginalData Properties       `json:"original_data,omitempty"` // snapshot at queue time
	Confidence   float64          `json:"confidence"`
	Priority     string           `json:"priority"`
	Status       ReviewTaskStatus `json:"status"`
	Assignee     *string          `json:"assignee,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
}
