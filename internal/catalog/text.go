package catalog

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles plain text target documents. Blank lines separate
// paragraphs; there are no headings.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &Document{Title: trimExt(filename)}
	var para strings.Builder
	flush := func() {
		if para.Len() > 0 {
			doc.Sections = append(doc.Sections, &Section{Text: para.String()})
			para.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if para.Len() > 0 {
			para.WriteString("\n")
		}
		para.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return doc, nil
}
