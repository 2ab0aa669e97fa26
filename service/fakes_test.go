package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"contractrules-backend/llm"
	"contractrules-backend/models"
)

// Prompt markers the fake LLM dispatches on. Each pipeline stage embeds a
// distinct phrase in its prompt template.
const (
	markerExtraction      = "contract analysis engine"
	markerCrossValidation = "reviewing an automated extraction"
	markerSynthesis       = "royalty-rule synthesis engine"
	markerInference       = "Infer the plausible royalty-calculation rules"
)

// fakeLLM returns canned responses keyed by prompt substring. failWith is
// checked before responses so a test can fail one call while serving others.
type fakeLLM struct {
	responses map[string]string
	failWith  map[string]error
	prompts   []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ float64) (string, error) {
	f.prompts = append(f.prompts, prompt)
	for marker, err := range f.failWith {
		if strings.Contains(prompt, marker) {
			return "", err
		}
	}
	for marker, response := range f.responses {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}
	return "", fmt.Errorf("no canned response matches prompt")
}

func (f *fakeLLM) Model() string { return "fake-model" }

func (f *fakeLLM) promptsContaining(marker string) int {
	count := 0
	for _, p := range f.prompts {
		if strings.Contains(p, marker) {
			count++
		}
	}
	return count
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, int, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	vector := make([]float64, llm.EmbeddingDimensions)
	vector[0] = float64(len(text))
	return vector, len(text) / 4, nil
}

func (f *fakeEmbedder) Dimensions() int { return llm.EmbeddingDimensions }

type fakeContractStore struct {
	contracts map[uuid.UUID]*models.Contract
}

func newFakeContractStore() *fakeContractStore {
	return &fakeContractStore{contracts: make(map[uuid.UUID]*models.Contract)}
}

func (f *fakeContractStore) add(text string) *models.Contract {
	contract := &models.Contract{
		ID:       uuid.New(),
		Title:    "Test Agreement",
		Status:   models.ContractStatusDraft,
		FullText: &text,
	}
	f.contracts[contract.ID] = contract
	return contract
}

func (f *fakeContractStore) GetByID(_ context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, ok := f.contracts[id]
	if !ok {
		return nil, fmt.Errorf("contract %s not found", id)
	}
	return contract, nil
}

type fakeRunStore struct {
	runs     map[uuid.UUID]*models.ExtractionRun
	resets   int
	finishes int
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: make(map[uuid.UUID]*models.ExtractionRun)}
}

func (f *fakeRunStore) Create(_ context.Context, run *models.ExtractionRun) error {
	run.CreatedAt = time.Now().UTC()
	run.UpdatedAt = run.CreatedAt
	stored := *run
	f.runs[run.ID] = &stored
	return nil
}

func (f *fakeRunStore) GetByID(_ context.Context, id uuid.UUID) (*models.ExtractionRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	copied := *run
	return &copied, nil
}

func (f *fakeRunStore) Reset(_ context.Context, id uuid.UUID) error {
	run, ok := f.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	run.Status = models.RunStatusProcessing
	run.OverallConfidence = 0
	run.NodesExtracted = 0
	run.EdgesExtracted = 0
	run.RulesExtracted = 0
	run.ErrorLog = nil
	run.CompletedAt = nil
	f.resets++
	return nil
}

func (f *fakeRunStore) Finish(_ context.Context, run *models.ExtractionRun) error {
	now := time.Now().UTC()
	run.CompletedAt = &now
	stored := *run
	f.runs[run.ID] = &stored
	f.finishes++
	return nil
}

func (f *fakeRunStore) Fail(_ context.Context, id uuid.UUID, errorLog string) error {
	run, ok := f.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	now := time.Now().UTC()
	run.Status = models.RunStatusFailed
	run.ErrorLog = &errorLog
	run.CompletedAt = &now
	return nil
}

type fakeSegmentStore struct {
	byRun map[uuid.UUID][]models.DocumentSegment
}

func newFakeSegmentStore() *fakeSegmentStore {
	return &fakeSegmentStore{byRun: make(map[uuid.UUID][]models.DocumentSegment)}
}

func (f *fakeSegmentStore) InsertBatch(_ context.Context, segments []models.DocumentSegment) error {
	for _, seg := range segments {
		f.byRun[seg.RunID] = append(f.byRun[seg.RunID], seg)
	}
	return nil
}

func (f *fakeSegmentStore) DeleteByRun(_ context.Context, runID uuid.UUID) error {
	delete(f.byRun, runID)
	return nil
}

// fakeGraphStore covers node/edge inserts, retry pruning and node
// activation.
type fakeGraphStore struct {
	nodes     []*models.GraphNode
	edges     []*models.GraphEdge
	activated map[uuid.UUID]bool
	insertErr error
}

func newFakeGraphStore() *fakeGraphStore {
	return &fakeGraphStore{activated: make(map[uuid.UUID]bool)}
}

func (f *fakeGraphStore) InsertNode(_ context.Context, node *models.GraphNode) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nodes = append(f.nodes, node)
	return nil
}

func (f *fakeGraphStore) InsertEdge(_ context.Context, edge *models.GraphEdge) error {
	f.edges = append(f.edges, edge)
	return nil
}

func (f *fakeGraphStore) DeleteByRun(_ context.Context, runID uuid.UUID) error {
	var nodes []*models.GraphNode
	for _, n := range f.nodes {
		if n.RunID != runID {
			nodes = append(nodes, n)
		}
	}
	f.nodes = nodes

	var edges []*models.GraphEdge
	for _, e := range f.edges {
		if e.RunID != runID {
			edges = append(edges, e)
		}
	}
	f.edges = edges
	return nil
}

func (f *fakeGraphStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	f.activated[id] = active
	return nil
}

func (f *fakeGraphStore) nodesByRun(runID uuid.UUID) []*models.GraphNode {
	var out []*models.GraphNode
	for _, n := range f.nodes {
		if n.RunID == runID {
			out = append(out, n)
		}
	}
	return out
}

type fakeRuleStore struct {
	rules     []*models.SynthesizedRule
	activated map[uuid.UUID]bool
}

func newFakeRuleStore() *fakeRuleStore {
	return &fakeRuleStore{activated: make(map[uuid.UUID]bool)}
}

func (f *fakeRuleStore) Insert(_ context.Context, rule *models.SynthesizedRule) error {
	copied := *rule
	f.rules = append(f.rules, &copied)
	return nil
}

func (f *fakeRuleStore) DeleteByRun(_ context.Context, runID uuid.UUID) error {
	var kept []*models.SynthesizedRule
	for _, r := range f.rules {
		if r.RunID != runID {
			kept = append(kept, r)
		}
	}
	f.rules = kept
	return nil
}

func (f *fakeRuleStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	f.activated[id] = active
	return nil
}

func (f *fakeRuleStore) rulesByRun(runID uuid.UUID) []*models.SynthesizedRule {
	var out []*models.SynthesizedRule
	for _, r := range f.rules {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out
}

type fakeReviewStore struct {
	tasks map[uuid.UUID]*models.ReviewTask
	order []uuid.UUID
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{tasks: make(map[uuid.UUID]*models.ReviewTask)}
}

func (f *fakeReviewStore) Create(_ context.Context, task *models.ReviewTask) error {
	task.CreatedAt = time.Now().UTC()
	copied := *task
	f.tasks[task.ID] = &copied
	f.order = append(f.order, task.ID)
	return nil
}

func (f *fakeReviewStore) GetByID(_ context.Context, id uuid.UUID) (*models.ReviewTask, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("review task %s not found", id)
	}
	copied := *task
	return &copied, nil
}

func (f *fakeReviewStore) ListPending(_ context.Context, assignee *string) ([]*models.ReviewTask, error) {
	var out []*models.ReviewTask
	for _, id := range f.order {
		task := f.tasks[id]
		if task.Status != models.ReviewPending {
			continue
		}
		if assignee != nil && (task.Assignee == nil || *task.Assignee != *assignee) {
			continue
		}
		copied := *task
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeReviewStore) Resolve(_ context.Context, task *models.ReviewTask) error {
	now := time.Now().UTC()
	task.ResolvedAt = &now
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeReviewStore) pending() []*models.ReviewTask {
	out, _ := f.ListPending(context.Background(), nil)
	return out
}

// extractionFixture is a small, well-formed extraction result shared by
// tests that need one but do not exercise the extraction call itself.
func extractionFixture() *models.ExtractionResult {
	return &models.ExtractionResult{
		ContractType: "license_agreement",
		Entities: []models.ExtractedEntity{
			{Type: "party", Label: "Acme Corp", Confidence: 0.92, SourceText: "Acme Corp"},
			{Type: "royalty_term", Label: "Standard Royalty", Properties: models.Properties{"rate": "6.5%"}, Confidence: 0.88, SourceText: "a royalty of 6.5%"},
		},
		Relationships: []models.ExtractedRelationship{
			{SourceLabel: "Acme Corp", TargetLabel: "Standard Royalty", RelationshipType: "receives", Confidence: 0.85},
		},
		KeyTerms:          []string{"royalty"},
		OverallConfidence: 0.9,
	}
}

type fakeDocumentStore struct {
	texts map[string]string
}

func (f *fakeDocumentStore) LoadText(_ context.Context, key string) (string, error) {
	text, ok := f.texts[key]
	if !ok {
		return "", fmt.Errorf("document %s not found", key)
	}
	return text, nil
}

type fakeSemanticIndex struct {
	nodes    []*models.GraphNode
	segments []models.DocumentSegment
	err      error
}

func (f *fakeSemanticIndex) IndexNodes(_ context.Context, nodes []*models.GraphNode) error {
	if f.err != nil {
		return f.err
	}
	f.nodes = append(f.nodes, nodes...)
	return nil
}

func (f *fakeSemanticIndex) IndexSegments(_ context.Context, segments []models.DocumentSegment) error {
	if f.err != nil {
		return f.err
	}
	f.segments = append(f.segments, segments...)
	return nil
}
