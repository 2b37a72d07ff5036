// Package scan locates trace markers in raw page text.
//
// Recognised markers:
//
//	{{#trace <target>:<record>}}      (alias {{#tr ...}})
//	{{#tracematrix <target>}}         (alias {{#trace_matrix ...}})
//
// Markers inside fenced, indented or inline code are left alone, as is any
// other {{#...}} directive. A marker preceded by a backslash is escaped: the
// scanner reports the backslash so it can be dropped and the marker kept as
// literal text.
package scan

import (
	"fmt"
	"strings"

	"github.com/dgallion1/mdtrace/internal/config"
)

// Kind tells what a marker asks for.
type Kind int

const (
	KindTrace Kind = iota + 1
	KindMatrix
	// KindEscaped covers only the escaping backslash in front of a marker.
	KindEscaped
)

func (k Kind) String() string {
	switch k {
	case KindTrace:
		return "trace"
	case KindMatrix:
		return "tracematrix"
	case KindEscaped:
		return "escaped"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var directives = map[string]Kind{
	"trace":        KindTrace,
	"tr":           KindTrace,
	"tracematrix":  KindMatrix,
	"trace_matrix": KindMatrix,
}

const (
	openDelim  = "{{#"
	closeDelim = "}}"
)

// Marker is one located marker. Start and End are byte offsets into the
// scanned text, End exclusive.
type Marker struct {
	Kind   Kind
	Target string
	Record string // empty for matrix markers
	Start  int
	End    int
	Text   string
}

// MalformedMarkerError reports marker syntax with missing or invalid fields.
type MalformedMarkerError struct {
	Text   string
	Line   int
	Reason string
}

func (e *MalformedMarkerError) Error() string {
	return fmt.Sprintf("malformed marker %q on line %d: %s", e.Text, e.Line, e.Reason)
}

// Scan returns the markers of src in text order.
func Scan(src string) ([]Marker, error) {
	code := codeRanges([]byte(src))

	var out []Marker
	i := 0
	for {
		j := strings.Index(src[i:], openDelim)
		if j < 0 {
			break
		}
		pos := i + j
		i = pos + len(openDelim)
		if code.contains(pos) {
			continue
		}

		nameEnd := i
		for nameEnd < len(src) && isNameByte(src[nameEnd]) {
			nameEnd++
		}
		kind, ok := directives[src[i:nameEnd]]
		if !ok {
			continue
		}
		if nameEnd < len(src) && !isSpace(src[nameEnd]) && !strings.HasPrefix(src[nameEnd:], closeDelim) {
			// {{#trace-foo ...}} and the like belong to someone else.
			continue
		}

		if pos > 0 && src[pos-1] == '\\' {
			out = append(out, Marker{Kind: KindEscaped, Start: pos - 1, End: pos, Text: `\`})
			continue
		}

		k := strings.Index(src[nameEnd:], closeDelim)
		if k < 0 {
			lineEnd := len(src)
			if nl := strings.IndexByte(src[pos:], '\n'); nl >= 0 {
				lineEnd = pos + nl
			}
			return nil, malformed(src, pos, lineEnd, "missing closing }}")
		}
		end := nameEnd + k + len(closeDelim)
		body := src[nameEnd : nameEnd+k]

		m := Marker{Kind: kind, Start: pos, End: end, Text: src[pos:end]}
		switch kind {
		case KindTrace:
			target, record, found := strings.Cut(strings.TrimSpace(body), ":")
			if !found {
				return nil, malformed(src, pos, end, "expected <target>:<record>")
			}
			m.Target = strings.TrimSpace(target)
			// A record may wrap across lines; it is rendered on one.
			m.Record = strings.Join(strings.Fields(record), " ")
			if m.Target == "" {
				return nil, malformed(src, pos, end, "missing target id")
			}
			if m.Record == "" {
				return nil, malformed(src, pos, end, "missing record id")
			}
		case KindMatrix:
			m.Target = strings.TrimSpace(body)
			if m.Target == "" {
				return nil, malformed(src, pos, end, "missing target id")
			}
		}
		if !config.ValidTargetID(m.Target) {
			return nil, malformed(src, pos, end, fmt.Sprintf("invalid target id %q", m.Target))
		}

		out = append(out, m)
		i = end
	}
	return out, nil
}

func malformed(src string, start, end int, reason string) error {
	return &MalformedMarkerError{
		Text:   src[start:end],
		Line:   strings.Count(src[:start], "\n") + 1,
		Reason: reason,
	}
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
