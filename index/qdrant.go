// Package index maintains the vector index of graph nodes and document
// segments in Qdrant for semantic retrieval.
package index

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	log "github.com/sirupsen/logrus"

	"contractrules-backend/llm"
	"contractrules-backend/models"
)

const (
	NodeCollection    = "contract_nodes"
	SegmentCollection = "contract_segments"
)

// SearchHit is one scored match from the index.
type SearchHit struct {
	ID         string  `json:"id"`
	Score      float32 `json:"score"`
	ContractID string  `json:"contractId"`
	Kind       string  `json:"kind"`
	Text       string  `json:"text"`
}

// QdrantIndex stores node and segment vectors in two fixed collections.
type QdrantIndex struct {
	client   *qdrant.Client
	embedder llm.Embedder
}

// NewQdrantIndex connects to Qdrant and makes sure both collections exist.
func NewQdrantIndex(host string, port int, apiKey string, useTLS bool, embedder llm.Embedder) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	idx := &QdrantIndex{client: client, embedder: embedder}
	for _, collection := range []string{NodeCollection, SegmentCollection} {
		if err := idx.ensureCollection(context.Background(), collection); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, collection string) error {
	info, err := q.client.GetCollectionInfo(ctx, collection)
	if err == nil && info != nil {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(q.embedder.Dimensions()),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}
	return nil
}

// IndexNodes upserts graph node vectors. Nodes without an embedding are
// skipped; the graph stays complete even when the index does not.
func (q *QdrantIndex) IndexNodes(ctx context.Context, nodes []*models.GraphNode) error {
	var points []*qdrant.PointStruct
	for _, node := range nodes {
		if len(node.Embedding) == 0 {
			continue
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(node.ID.String()),
			Vectors: qdrant.NewVectors(toFloat32(node.Embedding)...),
			Payload: qdrant.NewValueMap(map[string]any{
				"contractId": node.ContractID.String(),
				"runId":      node.RunID.String(),
				"nodeType":   node.NodeType,
				"label":      node.Label,
			}),
		})
	}
	return q.upsert(ctx, NodeCollection, points)
}

// IndexSegments chunks each segment's normalized text, embeds the chunks
// and upserts them. Chunk embedding failures skip the chunk.
func (q *QdrantIndex) IndexSegments(ctx context.Context, segments []models.DocumentSegment) error {
	var points []*qdrant.PointStruct
	for _, segment := range segments {
		chunks, err := splitIntoChunks(segment.NormalizedText)
		if err != nil {
			return fmt.Errorf("failed to split segment %s: %w", segment.ID, err)
		}

		for i, chunk := range chunks {
			vector, _, err := q.embedder.Embed(ctx, chunk)
			if err != nil {
				log.WithFields(log.Fields{
					"segment_id": segment.ID,
					"chunk":      i,
					"error":      err,
				}).Warn("failed to embed segment chunk")
				continue
			}

			pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(segment.ID.String()+strconv.Itoa(i)))
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID.String()),
				Vectors: qdrant.NewVectors(toFloat32(vector)...),
				Payload: qdrant.NewValueMap(map[string]any{
					"contractId": segment.ContractID.String(),
					"runId":      segment.RunID.String(),
					"section":    segment.Section,
					"chunkIndex": i,
					"content":    chunk,
				}),
			})
		}
	}
	return q.upsert(ctx, SegmentCollection, points)
}

func (q *QdrantIndex) upsert(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	if len(points) == 0 {
		return nil
	}
	waitUpsert := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &waitUpsert,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search embeds the query and returns the closest matches from one of the
// two collections.
func (q *QdrantIndex) Search(ctx context.Context, collection, query string, limit uint64) ([]SearchHit, error) {
	vector, _, err := q.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scoreThreshold := float32(0.3)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(toFloat32(vector)...),
		Limit:          &limit,
		ScoreThreshold: &scoreThreshold,
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", collection, err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, hit := range results {
		text := hit.Payload["content"].GetStringValue()
		if text == "" {
			text = hit.Payload["label"].GetStringValue()
		}
		hits = append(hits, SearchHit{
			ID:         hit.Id.GetUuid(),
			Score:      hit.Score,
			ContractID: hit.Payload["contractId"].GetStringValue(),
			Kind:       collection,
			Text:       text,
		})
	}
	return hits, nil
}

// DeleteRun removes all points belonging to one extraction run from both
// collections.
func (q *QdrantIndex) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	for _, collection := range []string{NodeCollection, SegmentCollection} {
		_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
					Filter: &qdrant.Filter{
						Must: []*qdrant.Condition{
							{
								ConditionOneOf: &qdrant.Condition_Field{
									Field: &qdrant.FieldCondition{
										Key: "runId",
										Match: &qdrant.Match{
											MatchValue: &qdrant.Match_Text{Text: runID.String()},
										},
									},
								},
							},
						},
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete run points from %s: %w", collection, err)
		}
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
