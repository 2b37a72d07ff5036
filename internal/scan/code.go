package scan

import (
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type span struct {
	start, stop int
}

// ranges are sorted, non-overlapping byte spans.
type ranges []span

func (r ranges) contains(pos int) bool {
	i := sort.Search(len(r), func(i int) bool { return r[i].stop > pos })
	return i < len(r) && r[i].start <= pos
}

// codeRanges returns the spans of src covered by code blocks and code spans.
func codeRanges(src []byte) ranges {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out ranges
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			if lines.Len() > 0 {
				out = append(out, span{lines.At(0).Start, lines.At(lines.Len() - 1).Stop})
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			s := span{start: -1}
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				t, ok := c.(*ast.Text)
				if !ok {
					continue
				}
				if s.start < 0 {
					s.start = t.Segment.Start
				}
				s.stop = t.Segment.Stop
			}
			if s.start >= 0 {
				out = append(out, s)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}
