package models

import (
	"time"

	"github.com/google/uuid"
)

// Specialized analysis types, dispatched concurrently per run.
const (
	AnalysisFinancial   = "financial"
	AnalysisCompliance  = "compliance"
	AnalysisStrategic   = "strategic"
	AnalysisPerformance = "performance"
	AnalysisRisk        = "risk"
)

// AnalysisTypes lists all specialized analyses in dispatch order.
var AnalysisTypes = []string{
	AnalysisFinancial,
	AnalysisCompliance,
	AnalysisStrategic,
	AnalysisPerformance,
	AnalysisRisk,
}

// ContractAnalysis is a human-readable analysis of one aspect of a contract,
// a side output of the pipeline kept separate from the rule tree.
type ContractAnalysis struct {
	ID           uuid.UUID `json:"id"`
	ContractID   uuid.UUID `json:"contract_id"`
	RunID        uuid.UUID `json:"run_id"`
	AnalysisType string    `json:"analysis_type"`
	Content      string    `json:"content"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
}
