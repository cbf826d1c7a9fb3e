package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// XLSX parses Excel workbooks, rendering each sheet's rows as pipe-joined
// lines prefixed by a sheet heading.
type XLSX struct{}

var _ driven.Parser = (*XLSX)(nil)

// NewXLSX constructs an XLSX parser; it takes no config.
func NewXLSX(rawParams json.RawMessage) (interface{}, error) {
	return &XLSX{}, nil
}

func (x *XLSX) SupportedTypes() []string { return []string{"xlsx", "xls"} }

func (x *XLSX) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return driven.ParsedDocument{}, &driven.ParseError{FileType: "xlsx", Cause: err}
	}
	defer f.Close()

	var sb strings.Builder
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		sb.WriteString("# " + sheet + "\n")
		for _, row := range rows {
			sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		sb.WriteString("\n")
	}

	return driven.ParsedDocument{
		Text: strings.TrimSpace(sb.String()),
		Metadata: map[string]string{
			"sheet_count": strconv.Itoa(len(sheets)),
		},
	}, nil
}
