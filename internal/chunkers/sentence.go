package chunkers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// SentenceConfig configures the sentence chunker.
type SentenceConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"` // sentences to carry into the next chunk
	MinSentences int `json:"min_sentences"`
}

// SentenceSchema is the JSON-Schema for SentenceConfig.
const SentenceSchema = `{
  "type": "object",
  "properties": {
    "chunk_size": {"type": "integer", "default": 512, "minimum": 50, "maximum": 8192},
    "chunk_overlap": {"type": "integer", "default": 1, "minimum": 0},
    "min_sentences": {"type": "integer", "default": 1, "minimum": 1}
  }
}`

var sentenceEndRe = regexp.MustCompile(`(?:[.!?])\s+`)

// Sentence splits text into sentences, then groups consecutive sentences
// into chunks up to chunk_size characters, always keeping whole sentences
// together and repeating the last chunk_overlap sentences into the next.
type Sentence struct {
	cfg SentenceConfig
}

var _ driven.Chunker = (*Sentence)(nil)

// NewSentence constructs a Sentence chunker.
func NewSentence(rawParams json.RawMessage) (interface{}, error) {
	cfg := SentenceConfig{ChunkSize: 512, ChunkOverlap: 1, MinSentences: 1}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, fmt.Errorf("chunkers: sentence: %w", err)
		}
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunkers: sentence: chunk_size must be positive")
	}
	if cfg.MinSentences < 1 {
		cfg.MinSentences = 1
	}
	return &Sentence{cfg: cfg}, nil
}

func (s *Sentence) Name() string { return "sentence" }

func (s *Sentence) Chunk(ctx context.Context, text string) ([]driven.TextSpan, error) {
	if text == "" {
		return nil, nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return []driven.TextSpan{{Content: text, Index: 0, StartChar: 0, EndChar: len(text)}}, nil
	}

	var spans []driven.TextSpan
	var current []string
	currentLen := 0
	index := 0
	searchFrom := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunkText := strings.Join(current, " ")
		start := indexFrom(text, current[0], searchFrom)
		if start < 0 {
			start = searchFrom
		}
		end := start + len(chunkText)
		spans = append(spans, driven.TextSpan{Content: chunkText, Index: index, StartChar: start, EndChar: end})
		index++
		searchFrom = start + len(current[0])
	}

	for _, sentence := range sentences {
		if currentLen+len(sentence) > s.cfg.ChunkSize && len(current) >= s.cfg.MinSentences {
			flush()
			if s.cfg.ChunkOverlap > 0 && len(current) > s.cfg.ChunkOverlap {
				current = append([]string{}, current[len(current)-s.cfg.ChunkOverlap:]...)
				currentLen = 0
				for _, c := range current {
					currentLen += len(c)
				}
			} else {
				current = nil
				currentLen = 0
			}
		}
		current = append(current, sentence)
		currentLen += len(sentence)
	}
	flush()

	return spans, nil
}

// splitSentences splits text at '.', '!', '?' followed by whitespace.
func splitSentences(text string) []string {
	parts := sentenceEndRe.Split(text, -1)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
