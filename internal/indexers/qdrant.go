// Package indexers implements the indexer component category: vector
// (ANN) backends and a Postgres tsvector-backed text index, plus the
// searchers that read from them.
package indexers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// payloadIDField stores the caller-supplied chunk ID in the point payload,
// since Qdrant point IDs must be UUIDs or unsigned integers.
const payloadIDField = "_original_id"

// QdrantConfig configures a Qdrant-backed indexer.
type QdrantConfig struct {
	Host       string `json:"host,omitempty"`
	Port       int    `json:"port,omitempty"`
	APIKey     string `json:"api_key,omitempty"`
	UseTLS     bool   `json:"use_tls,omitempty"`
	MetricType string `json:"metric_type,omitempty"` // cosine|l2|ip
}

// QdrantSchema is the JSON-Schema for QdrantConfig.
const QdrantSchema = `{
  "type": "object",
  "properties": {
    "host": {"type": "string", "default": "localhost"},
    "port": {"type": "integer", "default": 6334},
    "api_key": {"type": "string"},
    "use_tls": {"type": "boolean", "default": false},
    "metric_type": {"type": "string", "enum": ["cosine", "l2", "ip"], "default": "cosine"}
  }
}`

// Qdrant indexes chunk embeddings into Qdrant collections, one per
// tenant-namespaced collection name. Collections are created lazily on
// first EnsureCollection call.
type Qdrant struct {
	client *qdrant.Client
	metric string
}

var _ driven.Indexer = (*Qdrant)(nil)

// NewQdrant constructs a Qdrant indexer.
func NewQdrant(rawParams json.RawMessage) (interface{}, error) {
	cfg := QdrantConfig{Host: "localhost", Port: 6334, MetricType: "cosine"}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, fmt.Errorf("indexers: invalid qdrant config: %w", err)
		}
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("indexers: create qdrant client: %w", err)
	}

	return &Qdrant{client: client, metric: strings.ToLower(cfg.MetricType)}, nil
}

func (q *Qdrant) distance() qdrant.Distance {
	switch q.metric {
	case "l2", "euclidean":
		return qdrant.Distance_Euclid
	case "ip", "dot":
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

func (q *Qdrant) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("indexers: check qdrant collection: %w", err)
	}
	if exists {
		return nil
	}
	if dimension <= 0 {
		return fmt.Errorf("indexers: qdrant collection requires dimension > 0")
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: q.distance(),
		}),
	})
}

func pointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *Qdrant) IndexBatch(ctx context.Context, collection string, chunks []driven.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		uuidStr := pointID(c.ID)
		payload := make(map[string]any, len(c.Metadata)+2)
		for k, v := range c.Metadata {
			payload[k] = v
		}
		payload["content"] = c.Content
		if uuidStr != c.ID {
			payload[payloadIDField] = c.ID
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(c.Embedding),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("indexers: qdrant upsert: %w", err)
	}
	return nil
}

func (q *Qdrant) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(pointID(id)))
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	return err
}

func (q *Qdrant) Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]driven.VectorMatch, error) {
	if topK <= 0 {
		topK = 10
	}
	limit := uint64(topK)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(queryVector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("indexers: qdrant query: %w", err)
	}

	matches := make([]driven.VectorMatch, 0, len(hits))
	for _, hit := range hits {
		id := hit.Id.GetUuid()
		metadata := make(map[string]string)
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				if k == payloadIDField {
					id = v.GetStringValue()
					continue
				}
				metadata[k] = stringifyValue(v)
			}
		}
		matches = append(matches, driven.VectorMatch{
			ID:       id,
			Score:    float64(hit.Score),
			Metadata: metadata,
		})
	}
	return matches, nil
}

func stringifyValue(v *qdrant.Value) string {
	if s := v.GetStringValue(); s != "" {
		return s
	}
	if v.GetIntegerValue() != 0 {
		return strconv.FormatInt(v.GetIntegerValue(), 10)
	}
	return v.String()
}
