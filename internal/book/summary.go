package book

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SummaryFile is the table of contents read by LoadDir.
const SummaryFile = "SUMMARY.md"

// LoadDir builds a book from an mdbook source directory: the chapter tree
// comes from SUMMARY.md and each chapter's content from the file it links.
func LoadDir(src string) (*Book, error) {
	summary, err := os.ReadFile(filepath.Join(src, SummaryFile))
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	b, err := ParseSummary(summary)
	if err != nil {
		return nil, err
	}
	err = b.Walk(func(ch *Chapter, _ []*Chapter) error {
		if ch.Draft() {
			return nil
		}
		data, err := os.ReadFile(filepath.Join(src, filepath.FromSlash(ch.Path)))
		if err != nil {
			return fmt.Errorf("read chapter %q: %w", ch.Name, err)
		}
		ch.Content = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ParseSummary parses an mdbook SUMMARY.md into a chapter tree without
// contents. Links before the first list are prefix chapters and links after
// it suffix chapters; both are unnumbered. Nested list items are numbered
// chapters. Headings and separators do not produce chapters.
func ParseSummary(src []byte) (*Book, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	b := &Book{}
	seenList := false
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if b.Title == "" && len(b.Chapters) == 0 && !seenList {
				b.Title = inlineText(node, src)
			}
		case *ast.List:
			seenList = true
			chapters, err := listChapters(node, src)
			if err != nil {
				return nil, err
			}
			b.Chapters = append(b.Chapters, chapters...)
		case *ast.Paragraph:
			for _, link := range links(node) {
				ch, err := linkChapter(link, src)
				if err != nil {
					return nil, err
				}
				ch.Unnumbered = true
				b.Chapters = append(b.Chapters, ch)
			}
		}
	}
	return b, nil
}

func listChapters(list *ast.List, src []byte) ([]*Chapter, error) {
	var out []*Chapter
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var ch *Chapter
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.TextBlock, *ast.Paragraph:
				if ch != nil {
					continue
				}
				found := links(node)
				if len(found) == 0 {
					return nil, fmt.Errorf("summary entry %q is not a link", inlineText(node, src))
				}
				var err error
				if ch, err = linkChapter(found[0], src); err != nil {
					return nil, err
				}
			case *ast.List:
				if ch == nil {
					return nil, fmt.Errorf("nested summary list without a parent chapter")
				}
				children, err := listChapters(node, src)
				if err != nil {
					return nil, err
				}
				ch.Children = append(ch.Children, children...)
			}
		}
		if ch != nil {
			out = append(out, ch)
		}
	}
	return out, nil
}

func links(n ast.Node) []*ast.Link {
	var out []*ast.Link
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if link, ok := n.(*ast.Link); ok && entering {
			out = append(out, link)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

func linkChapter(link *ast.Link, src []byte) (*Chapter, error) {
	ch := &Chapter{Name: inlineText(link, src)}
	dest := strings.TrimSpace(string(link.Destination))
	if dest == "" {
		return ch, nil
	}
	p, err := url.PathUnescape(dest)
	if err != nil {
		return nil, fmt.Errorf("chapter %q: bad path %q: %w", ch.Name, dest, err)
	}
	ch.Path = path.Clean(strings.TrimPrefix(p, "./"))
	return ch, nil
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
