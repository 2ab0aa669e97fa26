package models

// ExtractedEntity is the wire form of an entity returned by the LLM
// extraction call. Type is an open string: the model invents categories
// per contract, so no enum is imposed.
type ExtractedEntity struct {
	Type       string     `json:"type"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties,omitempty"`
	Confidence float64    `json:"confidence"`
	SourceText string     `json:"sourceText,omitempty"`
}

// ExtractedRelationship references entities by label; labels are resolved to
// graph node ids at build time.
type ExtractedRelationship struct {
	SourceLabel      string     `json:"sourceLabel"`
	TargetLabel      string     `json:"targetLabel"`
	RelationshipType string     `json:"relationshipType"`
	Properties       Properties `json:"properties,omitempty"`
	Confidence       float64    `json:"confidence"`
}

// ExtractionResult is the full payload of one zero-shot extraction pass.
type ExtractionResult struct {
	ContractType      string                  `json:"contractType"`
	Entities          []ExtractedEntity       `json:"entities"`
	Relationships     []ExtractedRelationship `json:"relationships"`
	KeyTerms          []string                `json:"keyTerms,omitempty"`
	OverallConfidence float64                 `json:"overallConfidence"`
}
