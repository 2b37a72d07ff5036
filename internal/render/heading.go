package render

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/mdtrace/internal/scan"
)

// titleOffset finds where the text of the page's first level-1 heading
// starts. Headings that a trace or matrix marker straddles are not titles:
// the marker's replacement decides what that text becomes.
func titleOffset(src string, markers []scan.Marker) (int, bool) {
	doc := goldmark.New().Parser().Parse(text.NewReader([]byte(src)))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			continue
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			continue
		}
		start, stop := lines.At(0).Start, lines.At(lines.Len()-1).Stop
		if straddled(markers, start, stop) {
			continue
		}
		return start, true
	}
	return 0, false
}

// straddled reports whether a marker overlaps [start, stop) without lying
// entirely inside it.
func straddled(markers []scan.Marker, start, stop int) bool {
	for _, m := range markers {
		if m.Kind == scan.KindEscaped {
			continue
		}
		overlaps := m.Start < stop && m.End > start
		inside := m.Start >= start && m.End <= stop
		if overlaps && !inside {
			return true
		}
	}
	return false
}
