package models

import (
	"time"

	"github.com/google/uuid"
)

// GraphNode is the durable, queryable projection of an extracted entity.
// The embedding is a fixed-length vector over "{type}: {label} - {props}".
type GraphNode struct {
	ID         uuid.UUID  `json:"id"`
	RunID      uuid.UUID  `json:"run_id"`
	ContractID uuid.UUID  `json:"contract_id"`
	NodeType   string     `json:"node_type"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties,omitempty"`
	Confidence float64    `json:"confidence"`
	Embedding  []float64  `json:"-"`
	SegmentID  *uuid.UUID `json:"segment_id,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// GraphEdge is a directed relationship between two graph nodes.
type GraphEdge struct {
	ID               uuid.UUID  `json:"id"`
	RunID            uuid.UUID  `json:"run_id"`
	SourceNodeID     uuid.UUID  `json:"source_node_id"`
	TargetNodeID     uuid.UUID  `json:"target_node_id"`
	RelationshipType string     `json:"relationship_type"`
	Properties       Properties `json:"properties,omitempty"`
	Confidence       float64    `json:"confidence"`
	CreatedAt        time.Time  `json:"created_at"`
}
