package catalog

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/dgallion1/mdtrace/internal/config"
)

// DefaultRecordPattern matches ids such as REQ-12 or ID-1.2.3.
const DefaultRecordPattern = `\b[A-Z][A-Z0-9]*-[0-9]+(?:\.[0-9]+)*\b`

// Entry is a record id found in a target document.
type Entry struct {
	ID         string
	Breadcrumb []string // headings enclosing the first occurrence
	Page       int
}

// Records lists the ids matching pattern in document order, each once, at
// its first occurrence.
func Records(doc *Document, pattern *regexp.Regexp) []Entry {
	var out []Entry
	seen := make(map[string]bool)

	var walk func(sections []*Section, breadcrumb []string)
	walk = func(sections []*Section, breadcrumb []string) {
		for _, s := range sections {
			bc := breadcrumb
			if s.Heading != "" {
				bc = append(bc[:len(bc):len(bc)], s.Heading)
			}
			for _, text := range []string{s.Heading, s.Text} {
				for _, id := range pattern.FindAllString(text, -1) {
					if seen[id] {
						continue
					}
					seen[id] = true
					out = append(out, Entry{ID: id, Breadcrumb: bc, Page: s.Page})
				}
			}
			walk(s.Children, bc)
		}
	}
	walk(doc.Sections, nil)
	return out
}

// LoadTarget parses the source document of a target, resolved against root,
// and lists its records.
func LoadTarget(root string, tc config.TargetConfig) ([]Entry, error) {
	if tc.Source == "" {
		return nil, fmt.Errorf("target %q has no source document", tc.ID)
	}
	expr := tc.RecordPattern
	if expr == "" {
		expr = DefaultRecordPattern
	}
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("target %q: record-pattern: %w", tc.ID, err)
	}

	src := filepath.FromSlash(tc.Source)
	if !filepath.IsAbs(src) {
		src = filepath.Join(root, src)
	}
	doc, err := ParseFile(src)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", tc.ID, err)
	}
	return Records(doc, pattern), nil
}
