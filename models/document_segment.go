package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentSegment represents one labeled section of a contract document,
// produced by the segmenter. Immutable once created; owned by the run that
// produced it.
type DocumentSegment struct {
	ID             uuid.UUID `json:"id"`
	ContractID     uuid.UUID `json:"contract_id"`
	RunID          uuid.UUID `json:"run_id"`
	Section        string    `json:"section"`
	OrderIndex     int       `json:"order_index"`
	RawText        string    `json:"raw_text"`
	NormalizedText string    `json:"normalized_text"`
	PageNumber     int       `json:"page_number"`
	CreatedAt      time.Time `json:"created_at"`
}
