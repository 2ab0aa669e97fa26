package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contractrules-backend/llm"
	"contractrules-backend/models"
)

// MaxExtractionChars caps how much contract text is sent to the model in a
// single extraction call.
const MaxExtractionChars = 12000

var (
	ErrExtractionFailed = errors.New("entity extraction failed")
	ErrEmptyContract    = errors.New("contract has no text to extract from")
)

const extractionPrompt = `You are a contract analysis engine. Extract all entities and relationships from the contract text below. You decide the entity categories; do not restrict yourself to a predefined list.

Return STRICT JSON with exactly this shape and nothing else:
{
  "contractType": string,
  "entities": [{"type": string, "label": string, "properties": object, "confidence": number, "sourceText": string}],
  "relationships": [{"sourceLabel": string, "targetLabel": string, "relationshipType": string, "properties": object, "confidence": number}],
  "keyTerms": [string],
  "overallConfidence": number
}

Rules:
- "label" must be unique per entity within this contract.
- "sourceText" is a short verbatim excerpt supporting the entity.
- Every confidence is a number between 0 and 1.
- Relationships reference entities by their exact "label".
- Pay particular attention to payment, royalty, fee, rate, territory and product terms.

CONTRACT TEXT:
%s`

const crossValidationPrompt = `You are reviewing an automated extraction for accuracy. Compare the extracted entities and relationships against the original contract text and judge how faithful and complete the extraction is.

Return STRICT JSON: {"confidence": number, "assessment": string}
"confidence" is between 0 and 1.

EXTRACTION:
%s

ORIGINAL TEXT:
%s`

// Extractor performs zero-shot entity/relationship extraction with a single
// LLM call, plus an independent cross-validation pass.
type Extractor struct {
	client llm.Client
}

// NewExtractor creates a new extractor
func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract sends the truncated contract text to the model and parses the
// strict JSON contract. Markdown code fences around the JSON are tolerated;
// anything unparsable beyond that is a hard failure with no fallback
// entities.
func (e *Extractor) Extract(ctx context.Context, text string) (*models.ExtractionResult, error) {
	if text == "" {
		return nil, ErrEmptyContract
	}

	prompt := fmt.Sprintf(extractionPrompt, truncate(text, MaxExtractionChars))

	raw, err := e.client.Complete(ctx, prompt, 0.1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	jsonStr, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("%w: unparsable extraction JSON: %v", ErrExtractionFailed, err)
	}

	for i := range result.Entities {
		result.Entities[i].Confidence = clamp01(result.Entities[i].Confidence)
	}
	for i := range result.Relationships {
		result.Relationships[i].Confidence = clamp01(result.Relationships[i].Confidence)
	}
	result.OverallConfidence = clamp01(result.OverallConfidence)

	return &result, nil
}

// CrossValidate asks the model to independently score an extraction against
// the original text. The pipeline never trusts a single pass.
func (e *Extractor) CrossValidate(ctx context.Context, text string, result *models.ExtractionResult) (float64, error) {
	extractionJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal extraction for review: %w", err)
	}

	prompt := fmt.Sprintf(crossValidationPrompt, string(extractionJSON), truncate(text, MaxExtractionChars))

	raw, err := e.client.Complete(ctx, prompt, 0.0)
	if err != nil {
		return 0, fmt.Errorf("cross-validation call failed: %w", err)
	}

	jsonStr, err := llm.ExtractJSON(raw)
	if err != nil {
		return 0, fmt.Errorf("cross-validation returned no JSON: %w", err)
	}

	var review struct {
		Confidence float64 `json:"confidence"`
		Assessment string  `json:"assessment"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &review); err != nil {
		return 0, fmt.Errorf("unparsable cross-validation JSON: %w", err)
	}

	return clamp01(review.Confidence), nil
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
