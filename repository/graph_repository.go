package repository

import (
	"context"
	"fmt"
	"strings"

	"contractrules-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphRepository handles database operations for knowledge graph nodes and
// edges
type GraphRepository struct {
	db *pgxpool.Pool
}

// NewGraphRepository creates a new graph repository
func NewGraphRepository(db *pgxpool.Pool) *GraphRepository {
	return &GraphRepository{db: db}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// InsertNode inserts a graph node. A nil embedding is stored as NULL.
func (r *GraphRepository) InsertNode(ctx context.Context, node *models.GraphNode) error {
	query := `
		INSERT INTO graph_nodes (
			id, run_id, contract_id, node_type, label, properties,
			confidence, embedding, segment_id, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector, $9, $10)
		RETURNING created_at`

	var embedding *string
	if len(node.Embedding) > 0 {
		v := formatVector(node.Embedding)
		embedding = &v
	}

	return r.db.QueryRow(
		ctx, query,
		node.ID,
		node.RunID,
		node.ContractID,
		node.NodeType,
		node.Label,
		node.Properties,
		node.Confidence,
		embedding,
		node.SegmentID,
		node.IsActive,
	).Scan(&node.CreatedAt)
}

// InsertEdge inserts a graph edge
func (r *GraphRepository) InsertEdge(ctx context.Context, edge *models.GraphEdge) error {
	query := `
		INSERT INTO graph_edges (
			id, run_id, source_node_id, target_node_id,
			relationship_type, properties, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		edge.ID,
		edge.RunID,
		edge.SourceNodeID,
		edge.TargetNodeID,
		edge.RelationshipType,
		edge.Properties,
		edge.Confidence,
	).Scan(&edge.CreatedAt)
}

// ListNodesByRun retrieves all nodes of a run
func (r *GraphRepository) ListNodesByRun(ctx context.Context, runID uuid.UUID) ([]*models.GraphNode, error) {
	query := `
		SELECT id, run_id, contract_id, node_type, label, properties,
			confidence, segment_id, is_active, created_at
		FROM graph_nodes
		WHERE run_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []*models.GraphNode
	for rows.Next() {
		node := &models.GraphNode{}
		err := rows.Scan(
			&node.ID,
			&node.RunID,
			&node.ContractID,
			&node.NodeType,
			&node.Label,
			&node.Properties,
			&node.Confidence,
			&node.SegmentID,
			&node.IsActive,
			&node.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

// ListEdgesByRun retrieves all edges of a run
func (r *GraphRepository) ListEdgesByRun(ctx context.Context, runID uuid.UUID) ([]*models.GraphEdge, error) {
	query := `
		SELECT id, run_id, source_node_id, target_node_id,
			relationship_type, properties, confidence, created_at
		FROM graph_edges
		WHERE run_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []*models.GraphEdge
	for rows.Next() {
		edge := &models.GraphEdge{}
		err := rows.Scan(
			&edge.ID,
			&edge.RunID,
			&edge.SourceNodeID,
			&edge.TargetNodeID,
			&edge.RelationshipType,
			&edge.Properties,
			&edge.Confidence,
			&edge.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}

	return edges, rows.Err()
}

// SearchSimilarNodes finds the contract's closest nodes to a query embedding
func (r *GraphRepository) SearchSimilarNodes(
	ctx context.Context,
	contractID uuid.UUID,
	embedding []float64,
	limit int,
) ([]*models.GraphNode, error) {
	vectorStr := formatVector(embedding)

	query := `
		SELECT id, run_id, contract_id, node_type, label, properties,
			confidence, segment_id, is_active, created_at
		FROM graph_nodes
		WHERE contract_id = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, vectorStr, contractID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []*models.GraphNode
	for rows.Next() {
		node := &models.GraphNode{}
		err := rows.Scan(
			&node.ID,
			&node.RunID,
			&node.ContractID,
			&node.NodeType,
			&node.Label,
			&node.Properties,
			&node.Confidence,
			&node.SegmentID,
			&node.IsActive,
			&node.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

// UpdateEmbedding replaces a node's embedding vector
func (r *GraphRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float64) error {
	vectorStr := formatVector(embedding)
	_, err := r.db.Exec(ctx, `UPDATE graph_nodes SET embedding = $2::vector WHERE id = $1`, id, vectorStr)
	return err
}

// SetActive flips the active flag on a node
func (r *GraphRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.db.Exec(ctx, `UPDATE graph_nodes SET is_active = $2 WHERE id = $1`, id, active)
	return err
}

// DeleteByRun removes all nodes and edges of a run. Edges go first to keep
// the foreign keys happy.
func (r *GraphRepository) DeleteByRun(ctx context.Context, runID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM graph_edges WHERE run_id = $1`, runID); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `DELETE FROM graph_nodes WHERE run_id = $1`, runID)
	return err
}
