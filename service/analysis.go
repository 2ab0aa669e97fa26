package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"contractrules-backend/models"
)

// analysisPrompts frame the five specialized per-contract analyses.
var analysisPrompts = map[string]string{
	models.AnalysisFinancial:   "Analyze the financial terms of this contract: payment obligations, royalty structures, rates, fees, caps and minimum guarantees. Note any ambiguous or missing financial terms.",
	models.AnalysisCompliance:  "Analyze the compliance posture of this contract: reporting obligations, audit rights, record-keeping requirements and regulatory exposure.",
	models.AnalysisStrategic:   "Analyze the strategic position this contract creates: exclusivity, territory coverage, renewal options and termination leverage.",
	models.AnalysisPerformance: "Analyze the performance obligations in this contract: delivery commitments, sales thresholds, milestones and the consequences of missing them.",
	models.AnalysisRisk:        "Analyze the risks in this contract: liability exposure, indemnification asymmetries, unilateral termination rights and unusual clauses.",
}

// AnalysisStore persists specialized analyses in a batch.
type AnalysisStore interface {
	InsertBatch(ctx context.Context, analyses []*models.ContractAnalysis) error
}

// AnalysisService runs the five specialized contract analyses. They are
// independent of the rule pipeline's critical path, so they dispatch
// concurrently and are awaited as a batch.
type AnalysisService struct {
	client *genai.Client
	store  AnalysisStore
	model  string
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(client *genai.Client, store AnalysisStore, model string) *AnalysisService {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &AnalysisService{client: client, store: store, model: model}
}

// AnalyzeContract dispatches all analyses together, waits for the batch and
// saves the results in one store call. A single failed analysis is logged
// and skipped; it never fails the batch.
func (s *AnalysisService) AnalyzeContract(
	ctx context.Context,
	runID uuid.UUID,
	contractID uuid.UUID,
	text string,
) ([]*models.ContractAnalysis, error) {
	if s.client == nil {
		return nil, fmt.Errorf("genai client not set")
	}

	truncated := truncate(text, MaxExtractionChars)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		analyses []*models.ContractAnalysis
	)

	for _, analysisType := range models.AnalysisTypes {
		wg.Add(1)
		go func(analysisType string) {
			defer wg.Done()

			content, err := s.runAnalysis(ctx, analysisType, truncated)
			if err != nil {
				log.WithFields(log.Fields{
					"run_id":        runID,
					"analysis_type": analysisType,
					"error":         err,
				}).Warn("specialized analysis failed, skipping")
				return
			}

			mu.Lock()
			analyses = append(analyses, &models.ContractAnalysis{
				ID:           uuid.New(),
				ContractID:   contractID,
				RunID:        runID,
				AnalysisType: analysisType,
				Content:      content,
				Model:        s.model,
				CreatedAt:    time.Now().UTC(),
			})
			mu.Unlock()
		}(analysisType)
	}

	wg.Wait()

	if s.store != nil && len(analyses) > 0 {
		if err := s.store.InsertBatch(ctx, analyses); err != nil {
			return nil, fmt.Errorf("failed to save analyses: %w", err)
		}
	}

	return analyses, nil
}

func (s *AnalysisService) runAnalysis(ctx context.Context, analysisType, text string) (string, error) {
	model := s.client.GenerativeModel(s.model)
	model.SetTemperature(0.3)

	prompt := fmt.Sprintf("%s\n\nCONTRACT TEXT:\n%s", analysisPrompts[analysisType], text)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			content += string(text)
		}
	}
	if content == "" {
		return "", fmt.Errorf("model returned empty content")
	}
	return content, nil
}
