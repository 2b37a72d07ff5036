package book

import (
	"fmt"
	"strconv"
	"strings"
)

// Book is the ordered tree of pages processed by one run.
type Book struct {
	Title    string     `json:"title,omitempty"`
	Chapters []*Chapter `json:"chapters"`
}

// Chapter is one page in the book.
type Chapter struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	// Path is the page's source path relative to the book source directory.
	// Empty for draft chapters.
	Path string `json:"path,omitempty"`
	// Unnumbered marks prefix and suffix chapters. Their descendants are
	// unnumbered too.
	Unnumbered bool       `json:"unnumbered,omitempty"`
	Children   []*Chapter `json:"children,omitempty"`

	// Number is assigned during numbering; nil for unnumbered chapters.
	Number Number `json:"number,omitempty"`
}

// Subchapters is the number of direct children.
func (c *Chapter) Subchapters() int {
	return len(c.Children)
}

// Draft reports whether the chapter has no backing file.
func (c *Chapter) Draft() bool {
	return c.Path == ""
}

// Label identifies the chapter in errors and logs.
func (c *Chapter) Label() string {
	switch {
	case c.Path != "":
		return c.Path
	case len(c.Number) > 0:
		return c.Number.String() + " " + c.Name
	}
	return c.Name
}

// Validate rejects null chapter entries, which decoded JSON can contain.
func (b *Book) Validate() error {
	return validateChapters(b.Chapters, "chapters")
}

func validateChapters(chapters []*Chapter, at string) error {
	for i, ch := range chapters {
		where := fmt.Sprintf("%s[%d]", at, i)
		if ch == nil {
			return fmt.Errorf("%s is null", where)
		}
		if err := validateChapters(ch.Children, where+".children"); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits every chapter depth-first in document order, parents before
// children. Returning an error stops the walk.
func (b *Book) Walk(fn func(ch *Chapter, parents []*Chapter) error) error {
	var walk func(chapters []*Chapter, parents []*Chapter) error
	walk = func(chapters []*Chapter, parents []*Chapter) error {
		for _, ch := range chapters {
			if err := fn(ch, parents); err != nil {
				return err
			}
			if len(ch.Children) > 0 {
				if err := walk(ch.Children, append(parents[:len(parents):len(parents)], ch)); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(b.Chapters, nil)
}

// All returns every chapter in walk order.
func (b *Book) All() []*Chapter {
	var out []*Chapter
	_ = b.Walk(func(ch *Chapter, _ []*Chapter) error {
		out = append(out, ch)
		return nil
	})
	return out
}

// Number is a hierarchical chapter or trace number, e.g. [1 2] for "1.2".
type Number []int

// String renders the number with dots: "1.2.1".
func (n Number) String() string {
	return n.join(".")
}

// Anchor renders the number for use in HTML anchor names: "1_2_1".
func (n Number) Anchor() string {
	return n.join("_")
}

// Child returns a copy of n extended with the given segments.
func (n Number) Child(segments ...int) Number {
	out := make(Number, 0, len(n)+len(segments))
	out = append(out, n...)
	return append(out, segments...)
}

func (n Number) join(sep string) string {
	parts := make([]string, len(n))
	for i, v := range n {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

// Clone returns a deep copy of b. Numbers are copied too.
func (b *Book) Clone() *Book {
	return &Book{Title: b.Title, Chapters: cloneChapters(b.Chapters)}
}

func cloneChapters(chapters []*Chapter) []*Chapter {
	if chapters == nil {
		return nil
	}
	out := make([]*Chapter, len(chapters))
	for i, ch := range chapters {
		c := *ch
		if ch.Number != nil {
			c.Number = ch.Number.Child()
		}
		c.Children = cloneChapters(ch.Children)
		out[i] = &c
	}
	return out
}
