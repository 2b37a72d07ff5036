// Package catalog reads target documents and lists the record ids they
// define, for the coverage report.
package catalog

import "strings"

// Document is a parsed target document.
type Document struct {
	Title    string
	Sections []*Section
}

// Section is a headed part of a document. Text holds the section's own
// body; nested sections are in Children.
type Section struct {
	Heading  string
	Text     string
	Page     int // 1-based source page, 0 if the format has none
	Children []*Section
}

// builder assembles a section tree from a flat stream of headings and text.
type builder struct {
	root  *Section
	stack []level
	text  strings.Builder
}

type level struct {
	section *Section
	depth   int
}

func newBuilder() *builder {
	root := &Section{}
	return &builder{root: root, stack: []level{{section: root}}}
}

// heading opens a section at the given depth (1 = top level).
func (b *builder) heading(title string, depth, page int) {
	b.flush()
	s := &Section{Heading: title, Page: page}
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].depth >= depth {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].section
	parent.Children = append(parent.Children, s)
	b.stack = append(b.stack, level{section: s, depth: depth})
}

// body adds a block of text to the current section.
func (b *builder) body(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

func (b *builder) flush() {
	t := b.text.String()
	b.text.Reset()
	if t == "" {
		return
	}
	top := b.stack[len(b.stack)-1].section
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// document finishes the tree. Text before the first heading becomes an
// untitled leading section.
func (b *builder) document(title string) *Document {
	b.flush()
	doc := &Document{Title: title, Sections: b.root.Children}
	if b.root.Text != "" {
		doc.Sections = append([]*Section{{Text: b.root.Text}}, doc.Sections...)
	}
	return doc
}
