package parsers

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// MarkdownConfig configures the markdown parser.
type MarkdownConfig struct {
	StripFormatting bool `json:"strip_formatting"`
}

// MarkdownSchema is the JSON-Schema for MarkdownConfig.
const MarkdownSchema = `{
  "type": "object",
  "properties": {
    "strip_formatting": {"type": "boolean", "default": false}
  }
}`

// Markdown parses Markdown content, optionally stripping formatting markers
// (headings, emphasis, links) down to their underlying text.
type Markdown struct {
	cfg MarkdownConfig
}

var _ driven.Parser = (*Markdown)(nil)

// NewMarkdown constructs a Markdown parser.
func NewMarkdown(rawParams json.RawMessage) (interface{}, error) {
	cfg := MarkdownConfig{}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, &driven.ParseError{FileType: "markdown", Cause: err}
		}
	}
	return &Markdown{cfg: cfg}, nil
}

func (m *Markdown) SupportedTypes() []string { return []string{"md", "markdown", "mdown", "mkd"} }

func (m *Markdown) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	text := string(content)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	if m.cfg.StripFormatting {
		text = stripMarkdownFormatting(text)
	}

	return driven.ParsedDocument{
		Text:     strings.TrimSpace(text),
		Metadata: map[string]string{},
	}, nil
}

// stripMarkdownFormatting removes the common inline/block markers, leaving
// the underlying text.
func stripMarkdownFormatting(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, "#")
		if trimmed != line {
			line = strings.TrimSpace(trimmed)
		}
		line = strings.TrimPrefix(line, "> ")
		line = strings.TrimPrefix(strings.TrimSpace(line), "- ")
		lines[i] = line
	}
	text = strings.Join(lines, "\n")
	text = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`).ReplaceAllString(text, "$1")

	replacer := strings.NewReplacer("**", "", "__", "", "*", "", "_", "", "`", "")
	return replacer.Replace(text)
}
