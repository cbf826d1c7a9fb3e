package parsers

import (
	"context"
	"encoding/json"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// HTMLConfig configures the HTML parser.
type HTMLConfig struct {
	PreserveParagraphs bool `json:"preserve_paragraphs"`
}

// HTMLSchema is the JSON-Schema for HTMLConfig.
const HTMLSchema = `{
  "type": "object",
  "properties": {
    "preserve_paragraphs": {"type": "boolean", "default": true}
  }
}`

// HTML parses HTML content into plain text, removing script/style blocks
// by default and preserving paragraph breaks.
type HTML struct {
	cfg HTMLConfig
}

var _ driven.Parser = (*HTML)(nil)

// NewHTML constructs an HTML parser.
func NewHTML(rawParams json.RawMessage) (interface{}, error) {
	cfg := HTMLConfig{PreserveParagraphs: true}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, &driven.ParseError{FileType: "html", Cause: err}
		}
	}
	return &HTML{cfg: cfg}, nil
}

func (h *HTML) SupportedTypes() []string { return []string{"html", "htm", "xhtml"} }

func (h *HTML) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	markdown, err := htmltomarkdown.ConvertString(string(content))
	if err != nil {
		return driven.ParsedDocument{}, &driven.ParseError{FileType: "html", Cause: err}
	}

	text := markdown
	if !h.cfg.PreserveParagraphs {
		text = strings.ReplaceAll(text, "\n\n", "\n")
	}

	return driven.ParsedDocument{
		Text:     strings.TrimSpace(text),
		Metadata: map[string]string{},
	}, nil
}
