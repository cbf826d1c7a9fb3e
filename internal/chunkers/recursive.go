package chunkers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// RecursiveConfig configures the recursive chunker.
type RecursiveConfig struct {
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
	Separators   []string `json:"separators,omitempty"`
	KeepSeparator bool    `json:"keep_separator"`
}

// RecursiveSchema is the JSON-Schema for RecursiveConfig.
const RecursiveSchema = `{
  "type": "object",
  "properties": {
    "chunk_size": {"type": "integer", "default": 512, "minimum": 50, "maximum": 8192},
    "chunk_overlap": {"type": "integer", "default": 50, "minimum": 0},
    "separators": {"type": "array", "items": {"type": "string"}},
    "keep_separator": {"type": "boolean", "default": true}
  }
}`

var defaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " ", ""}

// Recursive splits text using a hierarchy of separators (paragraph, line,
// sentence, word, character), falling back to the next separator whenever a
// split is still larger than chunk_size, then merges adjacent small splits
// back up to chunk_size with chunk_overlap trailing characters repeated
// into the next chunk.
type Recursive struct {
	cfg RecursiveConfig
}

var _ driven.Chunker = (*Recursive)(nil)

// NewRecursive constructs a Recursive chunker.
func NewRecursive(rawParams json.RawMessage) (interface{}, error) {
	cfg := RecursiveConfig{ChunkSize: 512, ChunkOverlap: 50, KeepSeparator: true}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, fmt.Errorf("chunkers: recursive: %w", err)
		}
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = defaultSeparators
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunkers: recursive: chunk_size must be positive")
	}
	return &Recursive{cfg: cfg}, nil
}

func (r *Recursive) Name() string { return "recursive" }

func (r *Recursive) Chunk(ctx context.Context, text string) ([]driven.TextSpan, error) {
	if text == "" {
		return nil, nil
	}

	splits := r.split(text, r.cfg.Separators)
	merged := r.merge(splits)

	spans := make([]driven.TextSpan, 0, len(merged))
	searchFrom := 0
	for i, chunk := range merged {
		start := indexFrom(text, chunk, searchFrom)
		if start < 0 {
			start = searchFrom
		}
		end := start + len(chunk)
		spans = append(spans, driven.TextSpan{
			Content:   chunk,
			Index:     i,
			StartChar: start,
			EndChar:   end,
		})
		next := end - r.cfg.ChunkOverlap
		if next <= searchFrom {
			next = searchFrom + 1
		}
		searchFrom = next
	}
	return spans, nil
}

// indexFrom finds needle in haystack starting no earlier than from, matching
// on at most the first 50 bytes of needle. It returns -1 when that prefix
// does not occur at or after from; it does not retry from the start.
func indexFrom(haystack, needle string, from int) int {
	if from > len(haystack) {
		from = len(haystack)
	}
	probe := needle
	if len(probe) > 50 {
		probe = probe[:50]
	}
	idx := strings.Index(haystack[from:], probe)
	if idx < 0 {
		return -1
	}
	return from + idx
}

func (r *Recursive) split(text string, separators []string) []string {
	var final []string

	separator := ""
	sepIndex := len(separators)
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			sepIndex = i
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			sepIndex = i
			break
		}
	}

	var splits []string
	if separator != "" {
		splits = strings.Split(text, separator)
	} else {
		splits = strings.Split(text, "")
	}

	for i, part := range splits {
		if r.cfg.KeepSeparator && separator != "" && i < len(splits)-1 {
			part += separator
		}
		if len(part) <= r.cfg.ChunkSize {
			if strings.TrimSpace(part) != "" {
				final = append(final, part)
			}
			continue
		}

		remaining := separators[min(sepIndex+1, len(separators)):]
		if len(remaining) > 0 {
			final = append(final, r.split(part, remaining)...)
			continue
		}
		for j := 0; j < len(part); j += r.cfg.ChunkSize {
			end := j + r.cfg.ChunkSize
			if end > len(part) {
				end = len(part)
			}
			piece := part[j:end]
			if strings.TrimSpace(piece) != "" {
				final = append(final, piece)
			}
		}
	}

	return final
}

func (r *Recursive) merge(splits []string) []string {
	if len(splits) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, split := range splits {
		if currentLen+len(split) > r.cfg.ChunkSize && current.Len() > 0 {
			chunks = append(chunks, current.String())

			if r.cfg.ChunkOverlap > 0 {
				prev := current.String()
				overlapStart := len(prev) - r.cfg.ChunkOverlap
				if overlapStart < 0 {
					overlapStart = 0
				}
				current.Reset()
				current.WriteString(prev[overlapStart:])
				currentLen = current.Len()
			} else {
				current.Reset()
				currentLen = 0
			}
		}
		current.WriteString(split)
		currentLen += len(split)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
