package render

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mdtrace/internal/registry"
)

// Matrix renders the trace matrix of target as a markdown table, for a page
// at fromPath. A target without traces renders the header rows only.
func (r *Renderer) Matrix(target, fromPath string) (string, error) {
	records, err := r.reg.TracesFor(target)
	if err != nil {
		return "", err
	}

	rows := []string{
		"| " + escapeCell(r.cfg.RecordHeading) + " | " + escapeCell(r.cfg.TraceHeading) + " |",
		"|--------|--------|",
	}
	for _, rec := range records {
		refs := make([]string, len(rec.Traces))
		for i, tr := range rec.Traces {
			refs[i] = TraceLink(tr, fromPath)
		}
		rows = append(rows, "| "+escapeCell(rec.ID)+" | "+strings.Join(refs, ", ")+" |")
	}
	return strings.Join(rows, "\n"), nil
}

// TraceLink is a markdown link to tr's anchor, labelled with its qualified
// number. Traces in draft chapters have nowhere to link to.
func TraceLink(tr *registry.Trace, fromPath string) string {
	if tr.ChapterPath == "" {
		return tr.Qualified()
	}
	return "[" + tr.Qualified() + "](" + RelativePath(fromPath, tr.ChapterPath) + "#" + tr.Anchor() + ")"
}

// RelativePath returns the URL path of to as seen from the page at from.
// Both are slash-separated paths relative to the book source directory.
func RelativePath(from, to string) string {
	dir := "."
	if from != "" {
		dir = path.Dir(from)
	}
	rel := to
	if r, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(to)); err == nil {
		rel = filepath.ToSlash(r)
	}
	return (&url.URL{Path: rel}).EscapedPath()
}

// escapeCell keeps s inside one table cell.
func escapeCell(s string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(s), " "), "|", `\|`)
}
