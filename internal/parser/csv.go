package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// csvBatchSize is the number of data rows per "## Rows a-b" section.
const csvBatchSize = 20

// CSVParser handles CSV files. The first record is the header row; data rows
// are grouped into level-2 sections under a level-1 title.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &Document{Title: titleFromFilename(filename)}
	if len(records) == 0 {
		return doc, nil
	}

	headers := records[0]
	dataRows := records[1:]

	var b builder
	b.block(heading(1, doc.Title))
	b.block("Columns: " + strings.Join(headers, ", "))

	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		var text strings.Builder
		for _, row := range dataRows[i:end] {
			cells := make([]string, len(row))
			for j, cell := range row {
				if j < len(headers) {
					cells[j] = headers[j] + ": " + cell
				} else {
					cells[j] = cell
				}
			}
			text.WriteString("- " + strings.Join(cells, ", ") + "\n")
		}

		// Row numbers are 1-indexed and count the header row.
		b.block(heading(2, fmt.Sprintf("Rows %d-%d", i+2, end+1)))
		b.block(text.String())
	}

	doc.Markdown = b.String()
	return doc, nil
}
