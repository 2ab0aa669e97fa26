package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExtractionResponse = `{
	"contractType": "license_agreement",
	"entities": [
		{"type": "party", "label": "Acme Corp", "properties": {"role": "licensor"}, "confidence": 0.92, "sourceText": "Acme Corp (the Licensor)"},
		{"type": "royalty_term", "label": "Standard Royalty", "properties": {"rate": "6.5%"}, "confidence": 0.88, "sourceText": "a royalty of 6.5%"}
	],
	"relationships": [
		{"sourceLabel": "Acme Corp", "targetLabel": "Standard Royalty", "relationshipType": "receives", "confidence": 0.85}
	],
	"keyTerms": ["royalty", "license"],
	"overallConfidence": 0.9
}`

// TestExtract_ParsesStrictJSON verifies the happy path, including a fenced
// response.
func TestExtract_ParsesStrictJSON(t *testing.T) {
	client := &fakeLLM{responses: map[string]string{
		markerExtraction: "```json\n" + sampleExtractionResponse + "\n```",
	}}

	result, err := NewExtractor(client).Extract(context.Background(), "Acme Corp shall receive a royalty of 6.5%.")
	require.NoError(t, err)

	assert.Equal(t, "license_agreement", result.ContractType)
	require.Len(t, result.Entities, 2)
	assert.Equal(t, "Acme Corp", result.Entities[0].Label)
	assert.Equal(t, "licensor", result.Entities[0].Properties["role"])
	require.Len(t, result.Relationships, 1)
	assert.Equal(t, "receives", result.Relationships[0].RelationshipType)
	assert.Equal(t, 0.9, result.OverallConfidence)
}

// TestExtract_ClampsConfidences verifies out-of-range model scores are
// clamped into [0, 1].
func TestExtract_ClampsConfidences(t *testing.T) {
	client := &fakeLLM{responses: map[string]string{
		markerExtraction: `{
			"contractType": "misc",
			"entities": [{"type": "fee", "label": "Setup Fee", "confidence": 1.7}],
			"relationships": [{"sourceLabel": "a", "targetLabel": "b", "relationshipType": "x", "confidence": -0.4}],
			"overallConfidence": 2.0
		}`,
	}}

	result, err := NewExtractor(client).Extract(context.Background(), "Some contract text.")
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Entities[0].Confidence)
	assert.Equal(t, 0.0, result.Relationships[0].Confidence)
	assert.Equal(t, 1.0, result.OverallConfidence)
}

// TestExtract_EmptyText verifies empty input never reaches the model.
func TestExtract_EmptyText(t *testing.T) {
	client := &fakeLLM{}

	_, err := NewExtractor(client).Extract(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyContract)
	assert.Empty(t, client.prompts)
}

// TestExtract_HardFailures verifies client errors and unparsable output both
// surface as extraction failures with no fallback result.
func TestExtract_HardFailures(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		client := &fakeLLM{failWith: map[string]error{markerExtraction: errors.New("rate limited")}}
		_, err := NewExtractor(client).Extract(context.Background(), "text")
		assert.ErrorIs(t, err, ErrExtractionFailed)
	})

	t.Run("no JSON in response", func(t *testing.T) {
		client := &fakeLLM{responses: map[string]string{markerExtraction: "I could not process this contract."}}
		_, err := NewExtractor(client).Extract(context.Background(), "text")
		assert.ErrorIs(t, err, ErrExtractionFailed)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		client := &fakeLLM{responses: map[string]string{markerExtraction: `{"entities": [{"label": }`}}
		_, err := NewExtractor(client).Extract(context.Background(), "text")
		assert.ErrorIs(t, err, ErrExtractionFailed)
	})
}

// TestExtract_TruncatesLongText verifies only the first MaxExtractionChars
// reach the prompt.
func TestExtract_TruncatesLongText(t *testing.T) {
	client := &fakeLLM{responses: map[string]string{markerExtraction: sampleExtractionResponse}}
	text := strings.Repeat("a", MaxExtractionChars) + "OVERFLOW"

	_, err := NewExtractor(client).Extract(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, client.prompts, 1)
	assert.NotContains(t, client.prompts[0], "OVERFLOW")
	assert.Contains(t, client.prompts[0], strings.Repeat("a", 100))
}

// TestCrossValidate verifies the review pass returns the model's clamped
// score and includes both the extraction and the original text.
func TestCrossValidate(t *testing.T) {
	client := &fakeLLM{responses: map[string]string{
		markerExtraction:      sampleExtractionResponse,
		markerCrossValidation: `{"confidence": 0.82, "assessment": "faithful"}`,
	}}
	extractor := NewExtractor(client)

	result, err := extractor.Extract(context.Background(), "Acme Corp shall receive a royalty of 6.5%.")
	require.NoError(t, err)

	score, err := extractor.CrossValidate(context.Background(), "Acme Corp shall receive a royalty of 6.5%.", result)
	require.NoError(t, err)
	assert.Equal(t, 0.82, score)

	reviewPrompt := client.prompts[len(client.prompts)-1]
	assert.Contains(t, reviewPrompt, "Acme Corp")
	assert.Contains(t, reviewPrompt, "royalty of 6.5%")
}

// TestCrossValidate_Failures verifies client and parse failures surface as
// errors for the caller to degrade on.
func TestCrossValidate_Failures(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		client := &fakeLLM{failWith: map[string]error{markerCrossValidation: errors.New("timeout")}}
		_, err := NewExtractor(client).CrossValidate(context.Background(), "text", extractionFixture())
		assert.Error(t, err)
	})

	t.Run("no JSON", func(t *testing.T) {
		client := &fakeLLM{responses: map[string]string{markerCrossValidation: "looks fine to me"}}
		_, err := NewExtractor(client).CrossValidate(context.Background(), "text", extractionFixture())
		assert.Error(t, err)
	})

	t.Run("score above one is clamped", func(t *testing.T) {
		client := &fakeLLM{responses: map[string]string{markerCrossValidation: `{"confidence": 1.4, "assessment": "x"}`}}
		score, err := NewExtractor(client).CrossValidate(context.Background(), "text", extractionFixture())
		require.NoError(t, err)
		assert.Equal(t, 1.0, score)
	})
}
