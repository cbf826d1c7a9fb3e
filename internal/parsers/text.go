// Package parsers implements the parser components: text, markdown, html,
// csv/tsv, pdf, docx, xlsx, and an auto-detecting dispatcher.
package parsers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// Text is the plain-text parser: it normalizes line endings and trims
// surrounding whitespace, fabricating nothing.
type Text struct{}

var _ driven.Parser = (*Text)(nil)

// NewText constructs a Text parser; it takes no config.
func NewText(rawParams json.RawMessage) (interface{}, error) {
	return &Text{}, nil
}

func (t *Text) SupportedTypes() []string { return []string{"txt", "text"} }

func (t *Text) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	text := string(content)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return driven.ParsedDocument{
		Text:     strings.TrimSpace(text),
		Metadata: map[string]string{},
	}, nil
}
