// Package render produces the final text of a page from its scanned markers
// and the frozen trace registry.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/mdtrace/internal/book"
	"github.com/dgallion1/mdtrace/internal/config"
	"github.com/dgallion1/mdtrace/internal/registry"
	"github.com/dgallion1/mdtrace/internal/scan"
)

// Page is a chapter together with what the first pass found in it.
type Page struct {
	Chapter *book.Chapter
	Markers []scan.Marker
	// Traces holds one entry per trace marker, in marker order.
	Traces []*registry.Trace
}

// Renderer renders pages. It never mutates the registry or the chapters and
// is safe for concurrent use.
type Renderer struct {
	cfg config.Config
	reg *registry.Snapshot
}

func New(cfg config.Config, reg *registry.Snapshot) *Renderer {
	return &Renderer{cfg: cfg, reg: reg}
}

type edit struct {
	start, end int
	text       string
}

// Page returns the transformed text of p.Chapter.
func (r *Renderer) Page(p Page) (string, error) {
	src := p.Chapter.Content

	var edits []edit
	if r.cfg.ChapterNumbers && len(p.Chapter.Number) > 0 {
		if off, ok := titleOffset(src, p.Markers); ok {
			edits = append(edits, edit{off, off, p.Chapter.Number.String() + " "})
		}
	}

	var notes []string
	traceIdx := 0
	for _, m := range p.Markers {
		switch m.Kind {
		case scan.KindEscaped:
			edits = append(edits, edit{m.Start, m.End, ""})
		case scan.KindTrace:
			if traceIdx >= len(p.Traces) {
				return "", fmt.Errorf("page %s: trace marker %q has no registered trace", p.Chapter.Label(), m.Text)
			}
			tr := p.Traces[traceIdx]
			traceIdx++
			label := strconv.Itoa(traceIdx)
			if r.cfg.QualifiedFootnotes {
				label = tr.Qualified()
			}
			ref, note, err := r.Footnote(tr, label)
			if err != nil {
				return "", err
			}
			edits = append(edits, edit{m.Start, m.End, ref})
			notes = append(notes, note)
		case scan.KindMatrix:
			table, err := r.Matrix(m.Target, p.Chapter.Path)
			if err != nil {
				return "", err
			}
			edits = append(edits, edit{m.Start, m.End, table})
		}
	}

	out, err := apply(src, edits)
	if err != nil {
		return "", fmt.Errorf("page %s: %w", p.Chapter.Label(), err)
	}
	if len(notes) == 0 {
		return out, nil
	}
	sep := "\n\n"
	if r.cfg.FootnoteDivider {
		sep = "\n\n---\n\n"
	}
	return out + sep + strings.Join(notes, "\n\n"), nil
}

// Footnote returns the in-text reference and the footnote definition of tr,
// both showing label.
func (r *Renderer) Footnote(tr *registry.Trace, label string) (ref, note string, err error) {
	target, err := r.reg.Target(tr.Target)
	if err != nil {
		return "", "", err
	}
	ref = fmt.Sprintf(`<a name="%s"></a><a href="#%s"><sup>%s</sup></a>`, tr.Anchor(), tr.NoteAnchor(), label)
	note = fmt.Sprintf(`<a name="%s"></a><sup>%s</sup> %s %s`, tr.NoteAnchor(), label, target.Name, tr.Record)
	return ref, note, nil
}

// apply performs non-overlapping edits in order of position. Insertions at
// the same offset as a replacement go first. Overlapping edits are an error.
func apply(src string, edits []edit) (string, error) {
	if len(edits) == 0 {
		return src, nil
	}
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var b strings.Builder
	b.Grow(len(src))
	prev := 0
	for _, e := range edits {
		if e.start < prev || e.end < e.start || e.end > len(src) {
			return "", fmt.Errorf("overlapping edit at offset %d", e.start)
		}
		b.WriteString(src[prev:e.start])
		b.WriteString(e.text)
		prev = e.end
	}
	b.WriteString(src[prev:])
	return b.String(), nil
}
