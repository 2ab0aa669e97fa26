package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ValidationStatus of a synthesized rule
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationValidated ValidationStatus = "validated"
)

// Issue severities
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Issue categories
const (
	CategoryDimensional   = "dimensional"
	CategoryConsistency   = "consistency"
	CategoryBusinessLogic = "business_logic"
)

// ValidationIssue is a structured, non-fatal finding from one of the
// validator's checks. Always recorded, even when it does not block
// activation.
type ValidationIssue struct {
	Severity string `json:"severity"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// ValidationIssues is stored as a JSONB column alongside the rule
type ValidationIssues []ValidationIssue

// Value implements driver.Valuer for JSONB
func (v ValidationIssues) Value() (driver.Value, error) {
	if v == nil {
		return json.Marshal(ValidationIssues{})
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner for JSONB
func (v *ValidationIssues) Scan(value interface{}) error {
	if value == nil {
		*v = make(ValidationIssues, 0)
		return nil
	}

	var bytes []byte
	switch val := value.(type) {
	case []byte:
		bytes = val
	case string:
		bytes = []byte(val)
	default:
		*v = make(ValidationIssues, 0)
		return nil
	}

	if len(bytes) == 0 {
		*v = make(ValidationIssues, 0)
		return nil
	}

	return json.Unmarshal(bytes, v)
}

// HasErrors reports whether any issue carries error severity. A rule with an
// error is never auto-activated, regardless of its confidence.
func (v ValidationIssues) HasErrors() bool {
	for _, issue := range v {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// SynthesizedRule is a royalty-calculation rule produced by the synthesizer.
// IsActive only becomes true automatically (confidence threshold) or through
// explicit human approval -- never both skipped.
type SynthesizedRule struct {
	ID                   uuid.UUID        `json:"id"`
	RunID                uuid.UUID        `json:"run_id"`
	ContractID           uuid.UUID        `json:"contract_id"`
	RuleType             string           `json:"rule_type"`
	Name                 string           `json:"name"`
	Description          string           `json:"description"`
	Formula              FormulaNode      `json:"formula"`
	ApplicabilityFilters Properties       `json:"applicability_filters,omitempty"`
	Confidence           float64          `json:"confidence"`
	GraphNodeID          *uuid.UUID       `json:"graph_node_id,omitempty"`
	ValidationStatus     ValidationStatus `json:"validation_status"`
	ValidationIssues     ValidationIssues `json:"validation_issues,omitempty"`
	IsInferred           bool             `json:"is_inferred"`
	IsActive             bool             `json:"is_active"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}
