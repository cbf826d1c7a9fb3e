package parsers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// CSVConfig configures the CSV/TSV parser.
type CSVConfig struct {
	Delimiter string `json:"delimiter,omitempty"` // auto-detected by fileType if empty
	HasHeader bool   `json:"has_header"`
}

// CSVSchema is the JSON-Schema for CSVConfig.
const CSVSchema = `{
  "type": "object",
  "properties": {
    "delimiter": {"type": "string", "maxLength": 1},
    "has_header": {"type": "boolean", "default": true}
  }
}`

// CSV parses CSV/TSV content, rendering each row as a pipe-joined line and,
// when has_header is set, prefixing each cell with its column name.
type CSV struct {
	cfg CSVConfig
}

var _ driven.Parser = (*CSV)(nil)

// NewCSV constructs a CSV parser. Delimiter auto-detects by extension when
// not explicitly set: "," for csv, tab for tsv.
func NewCSV(rawParams json.RawMessage) (interface{}, error) {
	cfg := CSVConfig{HasHeader: true}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, &driven.ParseError{FileType: "csv", Cause: err}
		}
	}
	return &CSV{cfg: cfg}, nil
}

func (c *CSV) SupportedTypes() []string { return []string{"csv", "tsv"} }

func (c *CSV) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	delimiter := c.cfg.Delimiter
	if delimiter == "" {
		if fileType == "tsv" {
			delimiter = "\t"
		} else {
			delimiter = sniffDelimiter(content)
		}
	}

	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.Comma = rune(delimiter[0])
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return driven.ParsedDocument{}, &driven.ParseError{FileType: "csv", Cause: err}
	}

	var sb strings.Builder
	var header []string
	start := 0
	if c.cfg.HasHeader && len(rows) > 0 {
		header = rows[0]
		start = 1
	}

	for _, row := range rows[start:] {
		if header != nil {
			parts := make([]string, 0, len(row))
			for i, cell := range row {
				if i < len(header) {
					parts = append(parts, header[i]+": "+cell)
				} else {
					parts = append(parts, cell)
				}
			}
			sb.WriteString(strings.Join(parts, " | "))
		} else {
			sb.WriteString(strings.Join(row, " | "))
		}
		sb.WriteString("\n")
	}

	return driven.ParsedDocument{
		Text: strings.TrimSpace(sb.String()),
		Metadata: map[string]string{
			"row_count": strconv.Itoa(len(rows) - start),
		},
	}, nil
}

// sniffDelimiter inspects the first line for the most common separator.
func sniffDelimiter(content []byte) string {
	firstLine := string(content)
	if idx := strings.IndexByte(firstLine, '\n'); idx != -1 {
		firstLine = firstLine[:idx]
	}
	counts := map[string]int{
		",": strings.Count(firstLine, ","),
		";": strings.Count(firstLine, ";"),
		"\t": strings.Count(firstLine, "\t"),
	}
	best, bestCount := ",", -1
	for d, n := range counts {
		if n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
