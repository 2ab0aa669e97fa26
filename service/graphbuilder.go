package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"contractrules-backend/llm"
	"contractrules-backend/models"
)

// defaultEmbedDelay spaces out embedding calls. The embedding endpoint is a
// shared, rate-limited resource; this is a throughput tradeoff, not a
// correctness requirement.
const defaultEmbedDelay = 200 * time.Millisecond

// GraphStore is the persistence surface the graph builder needs.
type GraphStore interface {
	InsertNode(ctx context.Context, node *models.GraphNode) error
	InsertEdge(ctx context.Context, edge *models.GraphEdge) error
}

// GraphBuildResult is the outcome of one graph build.
type GraphBuildResult struct {
	Nodes              []*models.GraphNode
	Edges              []*models.GraphEdge
	LowConfidenceNodes []*models.GraphNode
	Warnings           []string
}

// GraphBuilder turns extracted entities and relationships into a persisted,
// embedded knowledge graph.
type GraphBuilder struct {
	store      GraphStore
	embedder   llm.Embedder
	embedDelay time.Duration
}

// GraphBuilderOption is a functional option for GraphBuilder
type GraphBuilderOption func(*GraphBuilder)

// GraphWithEmbedDelay overrides the inter-call embedding delay
func GraphWithEmbedDelay(d time.Duration) GraphBuilderOption {
	return func(b *GraphBuilder) {
		b.embedDelay = d
	}
}

// NewGraphBuilder creates a new graph builder
func NewGraphBuilder(store GraphStore, embedder llm.Embedder, opts ...GraphBuilderOption) *GraphBuilder {
	b := &GraphBuilder{
		store:      store,
		embedDelay: defaultEmbedDelay,
	}
	b.embedder = embedder
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build inserts one GraphNode per entity and one GraphEdge per resolvable
// relationship. All nodes are inserted before any edge so the label->id map
// is fully populated; relationships referencing unknown labels are skipped
// with a warning, never invented. Nodes below the activation threshold are
// still inserted (the graph stays complete) but reported separately for the
// review gate.
func (b *GraphBuilder) Build(
	ctx context.Context,
	runID uuid.UUID,
	contractID uuid.UUID,
	extraction *models.ExtractionResult,
	segments []models.DocumentSegment,
) (*GraphBuildResult, error) {
	result := &GraphBuildResult{}

	// Label resolution is local to this build call; label uniqueness is
	// assumed within one run.
	labelToID := make(map[string]uuid.UUID, len(extraction.Entities))

	for i, entity := range extraction.Entities {
		label := strings.TrimSpace(entity.Label)
		if label == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entity %d has an empty label, skipped", i))
			continue
		}
		if _, exists := labelToID[label]; exists {
			result.Warnings = append(result.Warnings, fmt.Sprintf("duplicate entity label %q, keeping first", label))
			continue
		}

		node := &models.GraphNode{
			ID:         uuid.New(),
			RunID:      runID,
			ContractID: contractID,
			NodeType:   entity.Type,
			Label:      label,
			Properties: entity.Properties,
			Confidence: entity.Confidence,
			IsActive:   entity.Confidence >= ActivationThreshold,
		}

		node.Embedding = b.embedEntity(ctx, entity)
		node.SegmentID = associateSegment(entity.SourceText, segments)

		if err := b.store.InsertNode(ctx, node); err != nil {
			return nil, fmt.Errorf("failed to insert graph node %q: %w", label, err)
		}

		labelToID[label] = node.ID
		result.Nodes = append(result.Nodes, node)
		if node.Confidence < ActivationThreshold {
			result.LowConfidenceNodes = append(result.LowConfidenceNodes, node)
		}
	}

	for _, rel := range extraction.Relationships {
		sourceID, sourceOK := labelToID[strings.TrimSpace(rel.SourceLabel)]
		targetID, targetOK := labelToID[strings.TrimSpace(rel.TargetLabel)]
		if !sourceOK || !targetOK {
			msg := fmt.Sprintf("relationship %q -> %q (%s) references unknown label, skipped",
				rel.SourceLabel, rel.TargetLabel, rel.RelationshipType)
			log.WithField("run_id", runID).Warn(msg)
			result.Warnings = append(result.Warnings, msg)
			continue
		}

		edge := &models.GraphEdge{
			ID:               uuid.New(),
			RunID:            runID,
			SourceNodeID:     sourceID,
			TargetNodeID:     targetID,
			RelationshipType: rel.RelationshipType,
			Properties:       rel.Properties,
			Confidence:       rel.Confidence,
		}

		if err := b.store.InsertEdge(ctx, edge); err != nil {
			return nil, fmt.Errorf("failed to insert graph edge: %w", err)
		}
		result.Edges = append(result.Edges, edge)
	}

	return result, nil
}

// embedEntity generates the node embedding over "{type}: {label} - {props}".
// Embedding calls run sequentially with a fixed delay to respect the shared
// rate limit. A failed embedding degrades to an unembedded node rather than
// failing the build.
func (b *GraphBuilder) embedEntity(ctx context.Context, entity models.ExtractedEntity) []float64 {
	if b.embedder == nil {
		return nil
	}

	propsJSON, _ := json.Marshal(entity.Properties)
	text := fmt.Sprintf("%s: %s - %s", entity.Type, entity.Label, string(propsJSON))

	vector, _, err := b.embedder.Embed(ctx, text)
	if err != nil {
		log.WithFields(log.Fields{
			"label": entity.Label,
			"error": err,
		}).Warn("entity embedding failed, inserting node without vector")
		return nil
	}

	if b.embedDelay > 0 {
		time.Sleep(b.embedDelay)
	}
	return vector
}

// associateSegment finds the segment containing the entity's source excerpt
// by substring match on normalized text.
func associateSegment(sourceText string, segments []models.DocumentSegment) *uuid.UUID {
	excerpt := normalizeText(sourceText)
	if excerpt == "" {
		return nil
	}
	for i := range segments {
		if strings.Contains(segments[i].NormalizedText, excerpt) {
			id := segments[i].ID
			return &id
		}
	}
	return nil
}
