package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractrules-backend/models"
)

func buildGraph(t *testing.T, store *fakeGraphStore, embedder *fakeEmbedder, extraction *models.ExtractionResult, segments []models.DocumentSegment) *GraphBuildResult {
	t.Helper()
	builder := NewGraphBuilder(store, embedder, GraphWithEmbedDelay(0))
	result, err := builder.Build(context.Background(), uuid.New(), uuid.New(), extraction, segments)
	require.NoError(t, err)
	return result
}

// TestBuild_NodesAndEdges verifies every entity becomes an embedded node and
// label-resolvable relationships become edges.
func TestBuild_NodesAndEdges(t *testing.T) {
	store := newFakeGraphStore()
	embedder := &fakeEmbedder{}

	result := buildGraph(t, store, embedder, extractionFixture(), nil)

	require.Len(t, result.Nodes, 2)
	require.Len(t, result.Edges, 1)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 2, embedder.calls)

	byLabel := make(map[string]*models.GraphNode)
	for _, node := range result.Nodes {
		byLabel[node.Label] = node
		assert.Len(t, node.Embedding, embedder.Dimensions())
		assert.NotEqual(t, uuid.Nil, node.ID)
	}

	edge := result.Edges[0]
	assert.Equal(t, byLabel["Acme Corp"].ID, edge.SourceNodeID)
	assert.Equal(t, byLabel["Standard Royalty"].ID, edge.TargetNodeID)
	assert.Equal(t, "receives", edge.RelationshipType)

	assert.Len(t, store.nodes, 2)
	assert.Len(t, store.edges, 1)
}

// TestBuild_UnresolvedRelationship verifies relationships naming unknown
// labels are skipped with a warning, never invented.
func TestBuild_UnresolvedRelationship(t *testing.T) {
	extraction := extractionFixture()
	extraction.Relationships = append(extraction.Relationships, models.ExtractedRelationship{
		SourceLabel:      "Acme Corp",
		TargetLabel:      "Ghost Entity",
		RelationshipType: "owns",
		Confidence:       0.8,
	})

	result := buildGraph(t, newFakeGraphStore(), &fakeEmbedder{}, extraction, nil)

	assert.Len(t, result.Edges, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Ghost Entity")
	assert.Contains(t, result.Warnings[0], "skipped")
}

// TestBuild_DuplicateAndEmptyLabels verifies the first occurrence of a label
// wins and unlabeled entities are dropped.
func TestBuild_DuplicateAndEmptyLabels(t *testing.T) {
	extraction := &models.ExtractionResult{
		Entities: []models.ExtractedEntity{
			{Type: "party", Label: "Acme Corp", Confidence: 0.9},
			{Type: "company", Label: "Acme Corp", Confidence: 0.5},
			{Type: "party", Label: "   ", Confidence: 0.9},
		},
	}

	result := buildGraph(t, newFakeGraphStore(), &fakeEmbedder{}, extraction, nil)

	require.Len(t, result.Nodes, 1)
	assert.Equal(t, "party", result.Nodes[0].NodeType)
	assert.Equal(t, 0.9, result.Nodes[0].Confidence)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "duplicate")
	assert.Contains(t, result.Warnings[1], "empty label")
}

// TestBuild_LowConfidenceNodes verifies sub-threshold nodes are still
// inserted but inactive and reported for review.
func TestBuild_LowConfidenceNodes(t *testing.T) {
	extraction := &models.ExtractionResult{
		Entities: []models.ExtractedEntity{
			{Type: "party", Label: "Strong", Confidence: 0.70},
			{Type: "party", Label: "Weak", Confidence: 0.69},
		},
	}

	store := newFakeGraphStore()
	result := buildGraph(t, store, &fakeEmbedder{}, extraction, nil)

	require.Len(t, result.Nodes, 2)
	assert.Len(t, store.nodes, 2)

	require.Len(t, result.LowConfidenceNodes, 1)
	assert.Equal(t, "Weak", result.LowConfidenceNodes[0].Label)
	assert.False(t, result.LowConfidenceNodes[0].IsActive)

	assert.True(t, result.Nodes[0].IsActive)
}

// TestBuild_EmbedFailureDegrades verifies a failed embedding produces an
// unembedded node instead of failing the build.
func TestBuild_EmbedFailureDegrades(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}

	result := buildGraph(t, newFakeGraphStore(), embedder, extractionFixture(), nil)

	require.Len(t, result.Nodes, 2)
	for _, node := range result.Nodes {
		assert.Nil(t, node.Embedding)
	}
}

// TestBuild_NilEmbedder verifies the builder works without an embedder at
// all.
func TestBuild_NilEmbedder(t *testing.T) {
	builder := NewGraphBuilder(newFakeGraphStore(), nil, GraphWithEmbedDelay(0))
	result, err := builder.Build(context.Background(), uuid.New(), uuid.New(), extractionFixture(), nil)
	require.NoError(t, err)
	require.Len(t, result.Nodes, 2)
	assert.Nil(t, result.Nodes[0].Embedding)
}

// TestBuild_SegmentAssociation verifies nodes link to the segment whose
// normalized text contains their source excerpt.
func TestBuild_SegmentAssociation(t *testing.T) {
	segments := []models.DocumentSegment{
		{ID: uuid.New(), Section: "parties", NormalizedText: "This agreement is between Acme Corp and Beta LLC."},
		{ID: uuid.New(), Section: "royalties", NormalizedText: "Licensee shall pay a royalty of 6.5% of net revenue."},
	}

	extraction := &models.ExtractionResult{
		Entities: []models.ExtractedEntity{
			{Type: "party", Label: "Acme Corp", Confidence: 0.9, SourceText: "between  Acme   Corp"},
			{Type: "royalty_term", Label: "Standard Royalty", Confidence: 0.9, SourceText: "a royalty of 6.5%"},
			{Type: "term", Label: "Unmatched", Confidence: 0.9, SourceText: "text that appears nowhere"},
			{Type: "term", Label: "No Source", Confidence: 0.9},
		},
	}

	result := buildGraph(t, newFakeGraphStore(), &fakeEmbedder{}, extraction, segments)
	require.Len(t, result.Nodes, 4)

	require.NotNil(t, result.Nodes[0].SegmentID)
	assert.Equal(t, segments[0].ID, *result.Nodes[0].SegmentID)

	require.NotNil(t, result.Nodes[1].SegmentID)
	assert.Equal(t, segments[1].ID, *result.Nodes[1].SegmentID)

	assert.Nil(t, result.Nodes[2].SegmentID)
	assert.Nil(t, result.Nodes[3].SegmentID)
}

// TestBuild_InsertErrorPropagates verifies a store failure aborts the build.
func TestBuild_InsertErrorPropagates(t *testing.T) {
	store := newFakeGraphStore()
	store.insertErr = errors.New("connection reset")

	builder := NewGraphBuilder(store, &fakeEmbedder{}, GraphWithEmbedDelay(0))
	_, err := builder.Build(context.Background(), uuid.New(), uuid.New(), extractionFixture(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
