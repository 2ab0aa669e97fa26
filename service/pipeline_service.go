package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"contractrules-backend/models"
)

// Confidence gating thresholds. The two cutoffs are independent:
// 0.70 gates auto-activation, 0.50 escalates review priority.
const (
	ActivationThreshold   = 0.70
	HighPriorityThreshold = 0.50
)

// Stage weights for the overall run confidence.
const (
	ExtractionWeight = 0.40
	ValidationWeight = 0.35
	RulesWeight      = 0.25
)

var (
	ErrContractNotFound = errors.New("contract not found")
	ErrRunNotFound      = errors.New("extraction run not found")
	ErrNoContractText   = errors.New("contract has no text available for extraction")
	ErrRunNotTerminal   = errors.New("extraction run is still processing")
)

// ContractStore loads contract rows for the pipeline.
type ContractStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
}

// RunStore persists extraction runs.
type RunStore interface {
	Create(ctx context.Context, run *models.ExtractionRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExtractionRun, error)
	Reset(ctx context.Context, id uuid.UUID) error
	Finish(ctx context.Context, run *models.ExtractionRun) error
	Fail(ctx context.Context, id uuid.UUID, errorLog string) error
}

// SegmentStore persists document segments.
type SegmentStore interface {
	InsertBatch(ctx context.Context, segments []models.DocumentSegment) error
	DeleteByRun(ctx context.Context, runID uuid.UUID) error
}

// RuleStore persists synthesized rules.
type RuleStore interface {
	Insert(ctx context.Context, rule *models.SynthesizedRule) error
	DeleteByRun(ctx context.Context, runID uuid.UUID) error
}

// GraphPruner removes run-scoped graph rows before a retry.
type GraphPruner interface {
	DeleteByRun(ctx context.Context, runID uuid.UUID) error
}

// ReviewStore creates review tasks for deferred items.
type ReviewStore interface {
	Create(ctx context.Context, task *models.ReviewTask) error
}

// DocumentStore loads raw contract text by storage key when the contract
// row has no previously extracted text.
type DocumentStore interface {
	LoadText(ctx context.Context, key string) (string, error)
}

// SemanticIndex receives node and segment embeddings for later retrieval.
type SemanticIndex interface {
	IndexNodes(ctx context.Context, nodes []*models.GraphNode) error
	IndexSegments(ctx context.Context, segments []models.DocumentSegment) error
}

// PipelineService sequences segmentation, extraction, graph building, rule
// synthesis, validation and review gating into one ExtractionRun. The run
// row is the single source of truth for status and retry.
type PipelineService struct {
	contracts ContractStore
	runs      RunStore
	segments  SegmentStore
	graph     GraphStore
	pruner    GraphPruner
	rules     RuleStore
	reviews   ReviewStore
	documents DocumentStore
	index     SemanticIndex

	segmenter    *Segmenter
	extractor    *Extractor
	graphBuilder *GraphBuilder
	synthesizer  *Synthesizer
	validator    *Validator
	analysis     *AnalysisService

	modelName string
}

// PipelineOption is a functional option for PipelineService
type PipelineOption func(*PipelineService)

// WithContractStore sets the contract store
func WithContractStore(s ContractStore) PipelineOption {
	return func(p *PipelineService) { p.contracts = s }
}

// WithRunStore sets the run store
func WithRunStore(s RunStore) PipelineOption {
	return func(p *PipelineService) { p.runs = s }
}

// WithSegmentStore sets the segment store
func WithSegmentStore(s SegmentStore) PipelineOption {
	return func(p *PipelineService) { p.segments = s }
}

// WithGraphStore sets the graph store used for node/edge inserts
func WithGraphStore(s GraphStore) PipelineOption {
	return func(p *PipelineService) { p.graph = s }
}

// WithGraphPruner sets the store that clears graph rows on retry
func WithGraphPruner(s GraphPruner) PipelineOption {
	return func(p *PipelineService) { p.pruner = s }
}

// WithRuleStore sets the rule store
func WithRuleStore(s RuleStore) PipelineOption {
	return func(p *PipelineService) { p.rules = s }
}

// WithReviewStore sets the review task store
func WithReviewStore(s ReviewStore) PipelineOption {
	return func(p *PipelineService) { p.reviews = s }
}

// WithDocumentStore sets the raw-document fallback store
func WithDocumentStore(s DocumentStore) PipelineOption {
	return func(p *PipelineService) { p.documents = s }
}

// WithSemanticIndex sets the semantic index
func WithSemanticIndex(s SemanticIndex) PipelineOption {
	return func(p *PipelineService) { p.index = s }
}

// WithSegmenter sets the document segmenter
func WithSegmenter(s *Segmenter) PipelineOption {
	return func(p *PipelineService) { p.segmenter = s }
}

// WithExtractor sets the entity extractor
func WithExtractor(e *Extractor) PipelineOption {
	return func(p *PipelineService) { p.extractor = e }
}

// WithGraphBuilder sets the knowledge graph builder
func WithGraphBuilder(b *GraphBuilder) PipelineOption {
	return func(p *PipelineService) { p.graphBuilder = b }
}

// WithSynthesizer sets the rule synthesizer
func WithSynthesizer(s *Synthesizer) PipelineOption {
	return func(p *PipelineService) { p.synthesizer = s }
}

// WithValidator sets the rule validator
func WithValidator(v *Validator) PipelineOption {
	return func(p *PipelineService) { p.validator = v }
}

// WithAnalysisService sets the specialized analysis service
func WithAnalysisService(a *AnalysisService) PipelineOption {
	return func(p *PipelineService) { p.analysis = a }
}

// WithModelName records which model the run used
func WithModelName(name string) PipelineOption {
	return func(p *PipelineService) { p.modelName = name }
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(opts ...PipelineOption) *PipelineService {
	p := &PipelineService{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StartExtraction validates the contract and creates a processing run. The
// heavy work happens in ProcessRun, which the caller dispatches in the
// background.
func (p *PipelineService) StartExtraction(ctx context.Context, contractID uuid.UUID) (*models.ExtractionRun, error) {
	if p.contracts == nil || p.runs == nil {
		return nil, errors.New("pipeline stores not set")
	}

	contract, err := p.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, ErrContractNotFound
	}

	if _, err := p.contractText(ctx, contract); err != nil {
		return nil, err
	}

	run := &models.ExtractionRun{
		ID:         uuid.New(),
		ContractID: contractID,
		Status:     models.RunStatusProcessing,
		AIModel:    p.modelName,
	}
	if err := p.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create extraction run: %w", err)
	}
	return run, nil
}

// RetryExtraction re-invokes the whole pipeline for a terminal run, reusing
// the contract's previously extracted full text. There is no mid-pipeline
// resume; prior run-scoped rows are cleared first.
func (p *PipelineService) RetryExtraction(ctx context.Context, runID uuid.UUID) error {
	run, err := p.runs.GetByID(ctx, runID)
	if err != nil {
		return ErrRunNotFound
	}
	if run.Status == models.RunStatusProcessing {
		return ErrRunNotTerminal
	}

	if err := p.segments.DeleteByRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to clear segments for retry: %w", err)
	}
	if p.pruner != nil {
		if err := p.pruner.DeleteByRun(ctx, runID); err != nil {
			return fmt.Errorf("failed to clear graph for retry: %w", err)
		}
	}
	if err := p.rules.DeleteByRun(ctx, runID); err != nil {
		return fmt.Errorf("failed to clear rules for retry: %w", err)
	}
	if err := p.runs.Reset(ctx, runID); err != nil {
		return fmt.Errorf("failed to reset run: %w", err)
	}

	return p.ProcessRun(ctx, runID)
}

// ProcessRun executes the full pipeline for one run. Any unhandled stage
// error marks the run failed (best effort) and is returned; partial data
// already persisted is kept but nothing gets activated.
func (p *PipelineService) ProcessRun(ctx context.Context, runID uuid.UUID) error {
	run, err := p.runs.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load extraction run: %w", err)
	}

	contract, err := p.contracts.GetByID(ctx, run.ContractID)
	if err != nil {
		p.markRunFailed(ctx, runID, "failed to load contract: "+err.Error())
		return err
	}

	text, err := p.contractText(ctx, contract)
	if err != nil {
		p.markRunFailed(ctx, runID, err.Error())
		return err
	}

	// Specialized analyses are off the critical path; dispatch them now and
	// join before finalizing.
	analysisDone := make(chan struct{})
	if p.analysis != nil {
		go func() {
			defer close(analysisDone)
			if _, err := p.analysis.AnalyzeContract(ctx, runID, contract.ID, text); err != nil {
				log.WithFields(log.Fields{"run_id": runID, "error": err}).Warn("contract analyses failed")
			}
		}()
	} else {
		close(analysisDone)
	}

	// Stage 1: segmentation.
	segments := p.segmenter.Segment(text)
	for i := range segments {
		segments[i].ID = uuid.New()
		segments[i].ContractID = contract.ID
		segments[i].RunID = runID
		segments[i].CreatedAt = time.Now().UTC()
	}
	if err := p.segments.InsertBatch(ctx, segments); err != nil {
		p.markRunFailed(ctx, runID, "failed to save segments: "+err.Error())
		return err
	}

	// Stage 2: zero-shot extraction plus an independent review pass. A
	// parse failure here is the one hard, propagated error of the pipeline.
	extraction, err := p.extractor.Extract(ctx, text)
	if err != nil {
		p.markRunFailed(ctx, runID, err.Error())
		return err
	}

	crossConfidence, err := p.extractor.CrossValidate(ctx, text, extraction)
	if err != nil {
		log.WithFields(log.Fields{"run_id": runID, "error": err}).Warn("cross-validation failed, using single-pass confidence")
		crossConfidence = extraction.OverallConfidence
	}

	// Stage 3: knowledge graph.
	graphResult, err := p.graphBuilder.Build(ctx, runID, contract.ID, extraction, segments)
	if err != nil {
		p.markRunFailed(ctx, runID, "graph build failed: "+err.Error())
		return err
	}

	nodesByLabel := make(map[string]uuid.UUID, len(graphResult.Nodes))
	for _, node := range graphResult.Nodes {
		nodesByLabel[node.Label] = node.ID
	}

	// Stage 4: rule synthesis.
	synthesis, err := p.synthesizer.Synthesize(ctx, runID, contract.ID, extraction, nodesByLabel, text)
	if err != nil {
		p.markRunFailed(ctx, runID, "rule synthesis failed: "+err.Error())
		return err
	}

	// Stage 5: validation, per-rule gating, persistence.
	var synthesisConfidences, validationConfidences []float64
	for _, rule := range synthesis.Rules {
		synthesisConfidences = append(synthesisConfidences, rule.Confidence)

		validation := p.validator.ValidateRule(rule)
		validationConfidences = append(validationConfidences, validation.Confidence)

		rule.ValidationIssues = validation.Issues
		rule.ValidationStatus = models.ValidationValidated
		rule.Confidence = applyIssuePenalties(rule.Confidence, validation.Issues)

		rule.IsActive = !rule.IsInferred &&
			!validation.Issues.HasErrors() &&
			rule.Confidence >= ActivationThreshold

		if err := p.rules.Insert(ctx, rule); err != nil {
			p.markRunFailed(ctx, runID, "failed to save rule: "+err.Error())
			return err
		}

		if !rule.IsActive {
			p.queueReview(ctx, runID, models.TargetRuleDefinition, rule.ID, rule.Confidence, models.Properties{
				"name":        rule.Name,
				"rule_type":   rule.RuleType,
				"description": rule.Description,
				"is_inferred": rule.IsInferred,
			})
		}
	}

	for _, node := range graphResult.LowConfidenceNodes {
		p.queueReview(ctx, runID, models.TargetGraphNode, node.ID, node.Confidence, models.Properties{
			"label":     node.Label,
			"node_type": node.NodeType,
		})
	}

	// Semantic indexing is best effort; retrieval degrades, extraction does
	// not.
	if p.index != nil {
		if err := p.index.IndexNodes(ctx, graphResult.Nodes); err != nil {
			log.WithFields(log.Fields{"run_id": runID, "error": err}).Warn("node indexing failed")
		}
		if err := p.index.IndexSegments(ctx, segments); err != nil {
			log.WithFields(log.Fields{"run_id": runID, "error": err}).Warn("segment indexing failed")
		}
	}

	<-analysisDone

	// Confidence aggregation: 0.40 extraction + 0.35 validation + 0.25
	// rules, each term the mean of its stage's item confidences. Items were
	// clamped on entry; the aggregate is deliberately not re-clamped.
	overall := ExtractionWeight*p.extractionConfidence(extraction, crossConfidence) +
		ValidationWeight*mean(validationConfidences) +
		RulesWeight*mean(synthesisConfidences)

	run.OverallConfidence = overall
	run.NodesExtracted = len(graphResult.Nodes)
	run.EdgesExtracted = len(graphResult.Edges)
	run.RulesExtracted = len(synthesis.Rules)
	if overall >= ActivationThreshold {
		run.Status = models.RunStatusCompleted
	} else {
		run.Status = models.RunStatusPendingReview
	}

	if len(synthesis.Warnings) > 0 || len(graphResult.Warnings) > 0 {
		warnings := append(append([]string{}, graphResult.Warnings...), synthesis.Warnings...)
		joined := strings.Join(warnings, "; ")
		run.ErrorLog = &joined
	}

	if err := p.runs.Finish(ctx, run); err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}

	log.WithFields(log.Fields{
		"run_id":     runID,
		"status":     run.Status,
		"confidence": fmt.Sprintf("%.3f", overall),
		"nodes":      run.NodesExtracted,
		"edges":      run.EdgesExtracted,
		"rules":      run.RulesExtracted,
	}).Info("extraction run finished")

	return nil
}

// extractionConfidence is the mean of per-item extraction confidences,
// averaged with the independent cross-validation score.
func (p *PipelineService) extractionConfidence(extraction *models.ExtractionResult, crossConfidence float64) float64 {
	var items []float64
	for _, e := range extraction.Entities {
		items = append(items, e.Confidence)
	}
	for _, r := range extraction.Relationships {
		items = append(items, r.Confidence)
	}

	itemMean := extraction.OverallConfidence
	if len(items) > 0 {
		itemMean = mean(items)
	}
	return (itemMean + crossConfidence) / 2
}

// applyIssuePenalties subtracts the per-issue penalties from a rule's
// confidence, floored at 0 and capped at 1.
func applyIssuePenalties(confidence float64, issues models.ValidationIssues) float64 {
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityError:
			confidence -= ErrorPenalty
		case models.SeverityWarning:
			confidence -= WarningPenalty
		}
	}
	return clamp01(confidence)
}

// queueReview creates a pending review task; priority is high exactly when
// confidence is below the high-priority threshold. Failures are logged, not
// raised: a missing review task must not fail a run that already persisted
// its data.
func (p *PipelineService) queueReview(
	ctx context.Context,
	runID uuid.UUID,
	targetType string,
	targetID uuid.UUID,
	confidence float64,
	snapshot models.Properties,
) {
	if p.reviews == nil {
		return
	}

	priority := models.PriorityNormal
	if confidence < HighPriorityThreshold {
		priority = models.PriorityHigh
	}

	task := &models.ReviewTask{
		ID:           uuid.New(),
		RunID:        runID,
		TargetType:   targetType,
		TargetID:     targetID,
		OriginalData: snapshot,
		Confidence:   confidence,
		Priority:     priority,
		Status:       models.ReviewPending,
	}
	if err := p.reviews.Create(ctx, task); err != nil {
		log.WithFields(log.Fields{
			"run_id":    runID,
			"target_id": targetID,
			"error":     err,
		}).Warn("failed to create review task")
	}
}

// contractText resolves the text to extract from: the previously extracted
// full text on the contract row, falling back to the document store.
func (p *PipelineService) contractText(ctx context.Context, contract *models.Contract) (string, error) {
	if contract.FullText != nil && strings.TrimSpace(*contract.FullText) != "" {
		return *contract.FullText, nil
	}
	if p.documents != nil && contract.DocumentKey != nil {
		text, err := p.documents.LoadText(ctx, *contract.DocumentKey)
		if err != nil {
			return "", fmt.Errorf("failed to load contract document: %w", err)
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return "", ErrNoContractText
}

// markRunFailed records a failure on the run row, best effort.
func (p *PipelineService) markRunFailed(ctx context.Context, runID uuid.UUID, errorLog string) {
	if err := p.runs.Fail(ctx, runID, errorLog); err != nil {
		log.WithFields(log.Fields{"run_id": runID, "error": err}).Error("failed to mark run as failed")
	}
}

// mean of an empty stage is 0: a run that produced no rules can never clear
// the activation threshold on its own.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
