// Package numbering assigns chapter numbers and trace numbers.
//
// Chapter numbers come from depth-first sibling enumeration and do not
// depend on the parent-numbering policy. The policy only decides where the
// numbering of a chapter's own traces starts.
package numbering

import (
	"github.com/dgallion1/mdtrace/internal/book"
	"github.com/dgallion1/mdtrace/internal/config"
)

// Assign sets Number on every chapter of b. Numbered siblings are counted
// from 1; unnumbered chapters and everything below them get nil.
func Assign(b *book.Book) {
	assign(b.Chapters, nil, false)
}

func assign(chapters []*book.Chapter, parent book.Number, unnumbered bool) {
	next := 1
	for _, ch := range chapters {
		if unnumbered || ch.Unnumbered {
			ch.Number = nil
			assign(ch.Children, nil, true)
			continue
		}
		ch.Number = parent.Child(next)
		next++
		assign(ch.Children, ch.Number, false)
	}
}

// Sequencer hands out trace numbers for one chapter in the order its traces
// are encountered in the text.
type Sequencer struct {
	prefix book.Number
	next   int
}

// NewSequencer prepares numbering for the traces found directly in ch.
func NewSequencer(policy config.ParentNumbering, ch *book.Chapter) *Sequencer {
	subs := numberedSubchapters(ch.Number, ch.Subchapters())
	s := &Sequencer{
		prefix: ch.Number.Child(),
		next:   StartSequence(policy, subs),
	}
	if policy == config.Zero && subs > 0 {
		s.prefix = ch.Number.Child(0)
	}
	return s
}

// numberedSubchapters is the subchapter count the policies see. Subchapters
// of an unnumbered chapter carry no number to collide with.
func numberedSubchapters(chapter book.Number, subchapters int) int {
	if len(chapter) == 0 {
		return 0
	}
	return subchapters
}

// Next returns the local sequence and fully qualified number of the next
// trace.
func (s *Sequencer) Next() (seq int, number book.Number) {
	seq = s.next
	s.next++
	return seq, s.prefix.Child(seq)
}

// StartSequence is the local sequence of the first trace in a chapter with
// the given number of direct subchapters.
func StartSequence(policy config.ParentNumbering, subchapters int) int {
	if policy == config.Offset {
		return 1 + subchapters
	}
	return 1
}

// TraceNumber is the qualified number of the seq-th trace (1-based, in text
// order) of a chapter.
func TraceNumber(policy config.ParentNumbering, chapter book.Number, subchapters, seq int) book.Number {
	subchapters = numberedSubchapters(chapter, subchapters)
	local := StartSequence(policy, subchapters) + seq - 1
	if policy == config.Zero && subchapters > 0 {
		return chapter.Child(0, local)
	}
	return chapter.Child(local)
}
