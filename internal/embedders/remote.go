// Package embedders implements the embedding component category: remote,
// HTTP-backed embedding models and a local, model-free fallback.
package embedders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// modelDimensions gives the known embedding width for common OpenAI-compatible
// models; unknown models default to 1536.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// RemoteConfig configures a Remote embedder.
type RemoteConfig struct {
	APIKey    string `json:"api_key"`
	Model     string `json:"model,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	BatchSize int    `json:"batch_size,omitempty"`
}

// RemoteSchema is the JSON-Schema for RemoteConfig.
const RemoteSchema = `{
  "type": "object",
  "required": ["api_key"],
  "properties": {
    "api_key": {"type": "string", "minLength": 1},
    "model": {"type": "string", "default": "text-embedding-3-small"},
    "base_url": {"type": "string", "default": "https://api.openai.com/v1"},
    "batch_size": {"type": "integer", "minimum": 1, "default": 100}
  }
}`

// Remote implements EmbeddingService against an OpenAI-compatible embeddings
// endpoint. Texts are embedded in batches of batch_size to stay under
// provider request-size limits.
type Remote struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	batchSize  int
	client     *http.Client
}

var _ driven.EmbeddingService = (*Remote)(nil)

// NewRemote constructs a Remote embedder. Returns an EmbedderConfigError
// when api_key is missing, since that is a caller mistake rather than a
// backend fault.
func NewRemote(rawParams json.RawMessage) (interface{}, error) {
	cfg := RemoteConfig{Model: "text-embedding-3-small", BaseURL: "https://api.openai.com/v1", BatchSize: 100}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, &driven.EmbedderConfigError{Message: err.Error()}
		}
	}
	if cfg.APIKey == "" {
		return nil, &driven.EmbedderConfigError{Message: "api_key is required"}
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	dimensions, ok := modelDimensions[cfg.Model]
	if !ok {
		dimensions = 1536
	}

	return &Remote{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		dimensions: dimensions,
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type embeddingRequest struct {
	Input          interface{} `json:"input"`
	Model          string      `json:"model"`
	EncodingFormat string      `json:"encoding_format,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (r *Remote) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += r.batchSize {
		end := min(start+r.batchSize, len(texts))
		batch, err := r.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

func (r *Remote) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := r.doRequest(ctx, embeddingRequest{Input: texts, Model: r.model, EncodingFormat: "float"})
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	return embeddings, nil
}

func (r *Remote) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := r.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, &driven.EmbedderBackendError{Cause: fmt.Errorf("no embedding returned for query")}
	}
	return embeddings[0], nil
}

func (r *Remote) Dimensions() int { return r.dimensions }

func (r *Remote) Model() string { return r.model }

func (r *Remote) HealthCheck(ctx context.Context) error {
	_, err := r.EmbedQuery(ctx, "health check")
	return err
}

func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *Remote) doRequest(ctx context.Context, reqBody embeddingRequest) (*embeddingResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &driven.EmbedderBackendError{Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &driven.EmbedderBackendError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &driven.EmbedderBackendError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &driven.EmbedderBackendError{Cause: err}
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, &driven.EmbedderBackendError{Cause: err}
	}

	if embResp.Error != nil {
		return nil, &driven.EmbedderBackendError{Cause: fmt.Errorf("%s: %s", embResp.Error.Type, embResp.Error.Message)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &driven.EmbedderBackendError{Cause: fmt.Errorf("embedding backend returned status %d", resp.StatusCode)}
	}

	return &embResp, nil
}
