// Package chunkers implements the chunker components: recursive, fixed,
// sentence, and semantic splitting of a document's full text into
// overlapping or disjoint spans.
package chunkers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// FixedConfig configures the fixed-size chunker.
type FixedConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

// FixedSchema is the JSON-Schema for FixedConfig.
const FixedSchema = `{
  "type": "object",
  "properties": {
    "chunk_size": {"type": "integer", "default": 512, "minimum": 1},
    "chunk_overlap": {"type": "integer", "default": 50, "minimum": 0}
  }
}`

// Fixed splits text into fixed-size spans with a fixed character overlap,
// advancing by chunk_size - chunk_overlap each step. This is the simplest
// chunker and the one exercised by the reference worked example (size=20,
// overlap=5, producing start_char offsets {0, 15, 30}).
type Fixed struct {
	cfg FixedConfig
}

var _ driven.Chunker = (*Fixed)(nil)

// NewFixed constructs a Fixed chunker, applying defaults for zero fields.
func NewFixed(rawParams json.RawMessage) (interface{}, error) {
	cfg := FixedConfig{ChunkSize: 512, ChunkOverlap: 50}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, fmt.Errorf("chunkers: fixed: %w", err)
		}
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunkers: fixed: chunk_size must be positive")
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunkers: fixed: chunk_overlap must be smaller than chunk_size")
	}
	return &Fixed{cfg: cfg}, nil
}

func (f *Fixed) Name() string { return "fixed" }

func (f *Fixed) Chunk(ctx context.Context, text string) ([]driven.TextSpan, error) {
	if text == "" {
		return nil, nil
	}

	step := f.cfg.ChunkSize - f.cfg.ChunkOverlap
	var spans []driven.TextSpan
	start := 0
	index := 0

	for start < len(text) {
		end := start + f.cfg.ChunkSize
		if end > len(text) {
			end = len(text)
		}
		spans = append(spans, driven.TextSpan{
			Content:   text[start:end],
			Index:     index,
			StartChar: start,
			EndChar:   end,
		})
		index++
		if end >= len(text) {
			break
		}
		start += step
	}

	return spans, nil
}
