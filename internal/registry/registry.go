// Package registry stores every trace of a run, grouped by target and
// record in discovery order.
//
// A Registry is filled during the first pass and then frozen. The frozen
// Snapshot only exposes read accessors, so rendering can share it between
// goroutines.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dgallion1/mdtrace/internal/book"
	"github.com/dgallion1/mdtrace/internal/config"
)

// ErrFrozen is returned when recording into a frozen registry.
var ErrFrozen = errors.New("registry is frozen")

// UnknownTargetError reports a marker naming a target that is not declared
// in the configuration.
type UnknownTargetError struct {
	ID       string
	Declared []string
}

func (e *UnknownTargetError) Error() string {
	if len(e.Declared) == 0 {
		return fmt.Sprintf("no target defined with id %q (no targets are configured)", e.ID)
	}
	return fmt.Sprintf("no target defined with id %q (declared: %v)", e.ID, e.Declared)
}

// Trace is one trace marker occurrence.
type Trace struct {
	Target string
	Record string

	// Owning chapter.
	ChapterName string
	ChapterPath string // empty for draft chapters

	// Seq is the local sequence within the chapter.
	Seq int
	// Number is the fully qualified number, chapter number included.
	Number book.Number
}

// Qualified renders the qualified number, e.g. "1.2.1".
func (t *Trace) Qualified() string {
	return t.Number.String()
}

// Anchor is the name of the HTML anchor placed where the trace occurs.
func (t *Trace) Anchor() string {
	return "trace" + t.Number.Anchor()
}

// NoteAnchor is the name of the HTML anchor on the trace's footnote.
func (t *Trace) NoteAnchor() string {
	return "note" + t.Number.Anchor()
}

// Record groups the traces pointing at one record id.
type Record struct {
	ID     string
	Traces []*Trace
}

// Target is one declared target document.
type Target struct {
	ID   string
	Name string

	records []*Record
	index   map[string]*Record
}

// Records returns the target's records in first-seen order.
func (t *Target) Records() []*Record {
	out := make([]*Record, len(t.records))
	copy(out, t.records)
	return out
}

// Record returns the record with the given id, if any trace referenced it.
func (t *Target) Record(id string) (*Record, bool) {
	r, ok := t.index[id]
	return r, ok
}

// TraceCount is the number of traces across all records.
func (t *Target) TraceCount() int {
	n := 0
	for _, r := range t.records {
		n += len(r.Traces)
	}
	return n
}

func (t *Target) add(record string, tr *Trace) {
	r, ok := t.index[record]
	if !ok {
		r = &Record{ID: record}
		t.index[record] = r
		t.records = append(t.records, r)
	}
	r.Traces = append(r.Traces, tr)
}

// Registry is the append-only trace store of one run.
type Registry struct {
	targets map[string]*Target
	order   []string
	frozen  bool
}

// New pre-creates one Target per declared target.
func New(targets config.Targets) (*Registry, error) {
	r := &Registry{targets: make(map[string]*Target, len(targets))}
	for _, tc := range targets {
		if _, dup := r.targets[tc.ID]; dup {
			return nil, &config.DuplicateTargetError{ID: tc.ID}
		}
		r.targets[tc.ID] = &Target{
			ID:    tc.ID,
			Name:  tc.DisplayName(),
			index: make(map[string]*Record),
		}
		r.order = append(r.order, tc.ID)
	}
	return r, nil
}

// Lookup returns the declared target with the given id.
func (r *Registry) Lookup(id string) (*Target, error) {
	t, ok := r.targets[id]
	if !ok {
		declared := make([]string, len(r.order))
		copy(declared, r.order)
		sort.Strings(declared)
		return nil, &UnknownTargetError{ID: id, Declared: declared}
	}
	return t, nil
}

// RecordTrace appends tr under target and record.
func (r *Registry) RecordTrace(target, record string, tr *Trace) error {
	if r.frozen {
		return ErrFrozen
	}
	t, err := r.Lookup(target)
	if err != nil {
		return err
	}
	t.add(record, tr)
	return nil
}

// Freeze ends the recording phase and returns the read-only view.
func (r *Registry) Freeze() *Snapshot {
	r.frozen = true
	return &Snapshot{reg: r}
}

// Snapshot is a read-only view of a frozen registry.
type Snapshot struct {
	reg *Registry
}

// Target returns the declared target with the given id.
func (s *Snapshot) Target(id string) (*Target, error) {
	return s.reg.Lookup(id)
}

// Targets returns every declared target in declaration order.
func (s *Snapshot) Targets() []*Target {
	out := make([]*Target, len(s.reg.order))
	for i, id := range s.reg.order {
		out[i] = s.reg.targets[id]
	}
	return out
}

// TracesFor returns the records of target in first-seen order, each with
// its traces in first-seen order.
func (s *Snapshot) TracesFor(target string) ([]*Record, error) {
	t, err := s.reg.Lookup(target)
	if err != nil {
		return nil, err
	}
	return t.Records(), nil
}

// TraceCount is the number of traces across all targets.
func (s *Snapshot) TraceCount() int {
	n := 0
	for _, t := range s.reg.targets {
		n += t.TraceCount()
	}
	return n
}
