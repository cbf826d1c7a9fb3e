package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-core/internal/registry"
)

// extensionMap mirrors the parser factory's registered names: the file
// extension a caller supplies resolves directly to a registered parser name.
var extensionMap = map[string]string{
	"txt":      "text",
	"text":     "text",
	"md":       "markdown",
	"markdown": "markdown",
	"mdown":    "markdown",
	"mkd":      "markdown",
	"pdf":      "pdf",
	"docx":     "docx",
	"xlsx":     "xlsx",
	"xls":      "xlsx",
	"html":     "html",
	"htm":      "html",
	"xhtml":    "html",
	"csv":      "csv",
	"tsv":      "csv",
}

// AutoConfig configures the auto-detecting parser.
type AutoConfig struct {
	FallbackParser string `json:"fallback_parser,omitempty"`
}

// AutoSchema is the JSON-Schema for AutoConfig.
const AutoSchema = `{
  "type": "object",
  "properties": {
    "fallback_parser": {"type": "string", "default": "text"}
  }
}`

// Auto resolves a parser by file extension and, failing that, by content
// magic bytes, delegating the actual parse to the resolved component. When
// neither detection succeeds it falls back to the configured fallback
// parser (default "text") rather than failing the ingestion run, recording
// which path was taken in the result metadata.
type Auto struct {
	cfg AutoConfig
	reg *registry.Registry
}

var _ driven.Parser = (*Auto)(nil)

// NewAutoFactory binds an Auto constructor to a registry, since delegated
// parsing requires building other registered components at parse time.
func NewAutoFactory(reg *registry.Registry) registry.Constructor {
	return func(rawParams json.RawMessage) (interface{}, error) {
		cfg := AutoConfig{FallbackParser: "text"}
		if len(rawParams) > 0 {
			if err := json.Unmarshal(rawParams, &cfg); err != nil {
				return nil, &driven.ParseError{FileType: "auto", Cause: err}
			}
		}
		if cfg.FallbackParser == "" {
			cfg.FallbackParser = "text"
		}
		return &Auto{cfg: cfg, reg: reg}, nil
	}
}

func (a *Auto) SupportedTypes() []string { return []string{"*"} }

func (a *Auto) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	detected := extensionMap[strings.ToLower(fileType)]
	detectedAs := "extension"

	if detected == "" {
		detected = detectFromContent(content)
		detectedAs = "content"
	}

	if detected == "" {
		detected = a.cfg.FallbackParser
		detectedAs = "fallback"
	}

	built, err := a.reg.Build(registry.CategoryParser, detected, nil)
	if err != nil {
		built, err = a.reg.Build(registry.CategoryParser, "text", nil)
		detected, detectedAs = "text", "fallback"
		if err != nil {
			return driven.ParsedDocument{}, &driven.ParseError{FileType: fileType, Cause: err}
		}
	}

	parser, ok := built.(driven.Parser)
	if !ok {
		return driven.ParsedDocument{}, &driven.ParseError{FileType: fileType, Cause: errNotAParser}
	}

	result, err := parser.Parse(ctx, content, fileType)
	if err != nil {
		return driven.ParsedDocument{}, err
	}

	if result.Metadata == nil {
		result.Metadata = map[string]string{}
	}
	result.Metadata["detected_parser"] = detected
	result.Metadata["detected_as"] = detectedAs

	return result, nil
}

// detectFromContent inspects magic bytes and early content to guess a
// parser name. Returns "" when nothing matches.
func detectFromContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	if bytes.HasPrefix(content, []byte("%PDF")) {
		return "pdf"
	}

	if bytes.HasPrefix(content, []byte("PK\x03\x04")) {
		probe := content
		if len(probe) > 2000 {
			probe = probe[:2000]
		}
		if bytes.Contains(probe, []byte("word/")) {
			return "docx"
		}
		if bytes.Contains(probe, []byte("xl/")) {
			return "xlsx"
		}
	}

	lowerPrefix := bytes.ToLower(content[:min(len(content), 15)])
	if bytes.HasPrefix(lowerPrefix, []byte("<!doctype html")) || bytes.HasPrefix(lowerPrefix, []byte("<html")) {
		return "html"
	}

	if bytes.HasPrefix(content, []byte("<?xml")) || bytes.HasPrefix(content, []byte("<")) {
		probe := content
		if len(probe) > 1000 {
			probe = probe[:1000]
		}
		lower := bytes.ToLower(probe)
		if bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<body")) {
			return "html"
		}
	}

	probe := content
	if len(probe) > 500 {
		probe = probe[:500]
	}
	if bytes.HasPrefix(content, []byte("#")) || bytes.Contains(probe, []byte("\n#")) {
		return "markdown"
	}

	return ""
}

type parseErrNotAParser struct{}

func (parseErrNotAParser) Error() string { return "registered component is not a Parser" }

var errNotAParser = parseErrNotAParser{}
