package pipeline

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle state of a run.
type State string

const (
	StateUninitialized    State = "uninitialized"
	StatePass1Numbering   State = "pass1_numbering"
	StatePass1Registering State = "pass1_registering"
	StatePass2Rendering   State = "pass2_rendering"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Run tracks the progress of one processing run for status queries.
type Run struct {
	mu sync.Mutex

	ID    string `json:"run_id"`
	Title string `json:"title"`

	State State  `json:"state"`
	Phase string `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	errors []string
}

// Progress counts what a run has seen so far.
type Progress struct {
	Chapters int      `json:"chapters"`
	Traces   int      `json:"traces"`
	Matrices int      `json:"matrices"`
	Rendered int      `json:"rendered"`
	Errors   []string `json:"errors"`
}

// NewRun creates a run with a fresh id.
func NewRun(title string) *Run {
	now := time.Now()
	return &Run{
		ID:        NewID(),
		Title:     title,
		State:     StateUninitialized,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Len is the number of stored runs.
func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Cleanup removes runs that finished more than ttl ago. Runs still in
// progress are kept.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		expired := run.State.Terminal() && now.Sub(run.UpdatedAt) > s.ttl
		run.mu.Unlock()
		if expired {
			delete(s.runs, id)
		}
	}
}

// Janitor calls Cleanup every interval until ctx is done.
func (s *RunStore) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// SetState updates the run state atomically.
func (r *Run) SetState(state State, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = state
	r.Phase = phase
	r.UpdatedAt = time.Now()
}

// AddError records an error.
func (r *Run) AddError(err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	r.Progress.Errors = r.errors
	r.UpdatedAt = time.Now()
}

// SetChapters records the number of chapters in the book.
func (r *Run) SetChapters(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.Chapters = n
	r.UpdatedAt = time.Now()
}

// AddMarkers adds to the trace and matrix counts.
func (r *Run) AddMarkers(traces, matrices int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.Traces += traces
	r.Progress.Matrices += matrices
	r.UpdatedAt = time.Now()
}

// IncrRendered atomically increments the rendered page count.
func (r *Run) IncrRendered() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.Rendered++
	r.UpdatedAt = time.Now()
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string    `json:"run_id"`
	Title     string    `json:"title"`
	State     State     `json:"state"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	errs := make([]string, len(r.errors))
	copy(errs, r.errors)
	p := r.Progress
	p.Errors = errs
	return RunSnapshot{
		ID:        r.ID,
		Title:     r.Title,
		State:     r.State,
		Phase:     r.Phase,
		Progress:  p,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
