package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser handles CSV record lists. Each data row becomes one section
// headed by its first cell, with the remaining cells as "header: value"
// lines.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &Document{Title: trimExt(filename)}
	if len(rows) == 0 {
		return doc, nil
	}

	headers := rows[0]
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		var text strings.Builder
		for j, cell := range row[1:] {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			if j+1 < len(headers) {
				text.WriteString(headers[j+1] + ": ")
			}
			text.WriteString(cell)
		}
		doc.Sections = append(doc.Sections, &Section{
			Heading: row[0],
			Text:    text.String(),
			Page:    i + 2, // line number, header is line 1
		})
	}

	return doc, nil
}
