// Package pipeline runs the two passes over a book.
//
// Pass 1 numbers the chapters, scans every page and records every trace in
// the registry. The registry is then frozen and pass 2 renders every page
// from it, possibly in parallel. Rendered pages are staged and only written
// back into the output book once every page has succeeded.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/mdtrace/internal/book"
	"github.com/dgallion1/mdtrace/internal/catalog"
	"github.com/dgallion1/mdtrace/internal/config"
	"github.com/dgallion1/mdtrace/internal/linkcheck"
	"github.com/dgallion1/mdtrace/internal/numbering"
	"github.com/dgallion1/mdtrace/internal/registry"
	"github.com/dgallion1/mdtrace/internal/render"
	"github.com/dgallion1/mdtrace/internal/scan"
)

// Result is the outcome of a successful run.
type Result struct {
	// Book is the transformed copy of the input book.
	Book     *book.Book
	Registry *registry.Snapshot
	// Coverage holds one report per target that declares a source
	// document and could be read.
	Coverage []catalog.Coverage
	Duration time.Duration
}

// Orchestrator runs one book through both passes. It is single use.
type Orchestrator struct {
	cfg        config.Config
	log        *slog.Logger
	workers    int
	sourceRoot string
	run        *Run

	mu      sync.Mutex
	started bool
	state   State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds the number of pages rendered concurrently.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithSourceRoot sets the directory target sources are resolved against.
// Without it no coverage report is produced.
func WithSourceRoot(dir string) Option {
	return func(o *Orchestrator) { o.sourceRoot = dir }
}

// WithRun mirrors state changes and counts into run.
func WithRun(run *Run) Option {
	return func(o *Orchestrator) { o.run = run }
}

func NewOrchestrator(cfg config.Config, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		log:     log,
		workers: 1,
		state:   StateUninitialized,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.run != nil {
		o.log = o.log.With("run_id", o.run.ID)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State, phase string) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if o.run != nil {
		o.run.SetState(s, phase)
	}
}

func (o *Orchestrator) fail(err error) error {
	o.setState(StateFailed, "failed")
	if o.run != nil {
		o.run.AddError(err.Error())
	}
	o.log.Error("run failed", "error", err)
	return err
}

// Run processes b. The input book is not modified; on error no output is
// produced.
func (o *Orchestrator) Run(ctx context.Context, b *book.Book) (*Result, error) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	o.started = true
	o.mu.Unlock()

	// Setup: nothing is numbered or scanned until the configuration and the
	// book are known to be usable.
	start := time.Now()
	if err := o.cfg.Validate(); err != nil {
		return nil, o.fail(fmt.Errorf("invalid configuration: %w", err))
	}
	reg, err := registry.New(o.cfg.Targets)
	if err != nil {
		return nil, o.fail(err)
	}
	if err := b.Validate(); err != nil {
		return nil, o.fail(fmt.Errorf("invalid book: %w", err))
	}

	// Pass 1: numbering.
	o.setState(StatePass1Numbering, "numbering chapters")
	out := b.Clone()
	numbering.Assign(out)
	chapters := out.All()
	if o.run != nil {
		o.run.SetChapters(len(chapters))
	}
	o.log.Info("pass 1 started", "chapters", len(chapters), "policy", string(o.cfg.ParentNumbering))

	// Pass 1: registering.
	o.setState(StatePass1Registering, "registering traces")
	pages := make([]render.Page, len(chapters))
	for i, ch := range chapters {
		if err := ctx.Err(); err != nil {
			return nil, o.fail(err)
		}
		page, err := o.register(reg, ch)
		if err != nil {
			return nil, o.fail(err)
		}
		pages[i] = page
	}
	snap := reg.Freeze()
	o.log.Info("pass 1 complete", "traces", snap.TraceCount())

	// Pass 2: rendering.
	o.setState(StatePass2Rendering, "rendering pages")
	staged, err := o.renderAll(ctx, render.New(o.cfg, snap), pages)
	if err != nil {
		return nil, o.fail(err)
	}

	if o.cfg.CheckLinks {
		if err := o.checkLinks(chapters, staged); err != nil {
			return nil, o.fail(err)
		}
	}

	for i, ch := range chapters {
		ch.Content = staged[i]
	}
	res := &Result{Book: out, Registry: snap}
	res.Coverage = o.coverage(snap)
	res.Duration = time.Since(start)

	o.setState(StateDone, "done")
	o.log.Info("run complete", "pages", len(chapters), "traces", snap.TraceCount(), "duration", res.Duration)
	return res, nil
}

// register scans one chapter and records its traces in text order.
func (o *Orchestrator) register(reg *registry.Registry, ch *book.Chapter) (render.Page, error) {
	page := render.Page{Chapter: ch}
	markers, err := scan.Scan(ch.Content)
	if err != nil {
		return page, &ChapterError{Chapter: ch.Name, Path: ch.Path, Err: err}
	}
	page.Markers = markers

	seq := numbering.NewSequencer(o.cfg.ParentNumbering, ch)
	matrices := 0
	for _, m := range markers {
		switch m.Kind {
		case scan.KindTrace:
			n, number := seq.Next()
			tr := &registry.Trace{
				Target:      m.Target,
				Record:      m.Record,
				ChapterName: ch.Name,
				ChapterPath: ch.Path,
				Seq:         n,
				Number:      number,
			}
			if err := reg.RecordTrace(m.Target, m.Record, tr); err != nil {
				return page, &ChapterError{Chapter: ch.Name, Path: ch.Path, Marker: m.Text, Err: err}
			}
			page.Traces = append(page.Traces, tr)
		case scan.KindMatrix:
			if _, err := reg.Lookup(m.Target); err != nil {
				return page, &ChapterError{Chapter: ch.Name, Path: ch.Path, Marker: m.Text, Err: err}
			}
			matrices++
		}
	}

	if o.run != nil {
		o.run.AddMarkers(len(page.Traces), matrices)
	}
	if len(markers) > 0 {
		o.log.Debug("chapter scanned", "chapter", ch.Label(), "traces", len(page.Traces), "matrices", matrices)
	}
	return page, nil
}

func (o *Orchestrator) renderAll(ctx context.Context, r *render.Renderer, pages []render.Page) ([]string, error) {
	staged := make([]string, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, p := range pages {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := r.Page(p)
			if err != nil {
				return &ChapterError{Chapter: p.Chapter.Name, Path: p.Chapter.Path, Err: err}
			}
			staged[i] = text
			if o.run != nil {
				o.run.IncrRendered()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return staged, nil
}

func (o *Orchestrator) checkLinks(chapters []*book.Chapter, staged []string) error {
	pages := make([]linkcheck.Page, len(chapters))
	for i, ch := range chapters {
		pages[i] = linkcheck.Page{Path: ch.Path, Content: staged[i]}
	}
	broken, err := linkcheck.Check(pages)
	if err != nil {
		return fmt.Errorf("link check: %w", err)
	}
	if len(broken) > 0 {
		return &BrokenLinksError{Links: broken}
	}
	o.log.Debug("link check passed", "pages", len(pages))
	return nil
}

// coverage compares every target that names a source document with the
// registry. Unreadable sources are logged and skipped.
func (o *Orchestrator) coverage(snap *registry.Snapshot) []catalog.Coverage {
	if o.sourceRoot == "" {
		return nil
	}
	var out []catalog.Coverage
	for _, tc := range o.cfg.Targets {
		if tc.Source == "" {
			continue
		}
		entries, err := catalog.LoadTarget(o.sourceRoot, tc)
		if err != nil {
			o.log.Warn("skipping coverage report", "target", tc.ID, "error", err)
			continue
		}
		target, err := snap.Target(tc.ID)
		if err != nil {
			continue
		}
		cov := catalog.Compare(target, tc.Source, entries)
		if !cov.Complete() {
			o.log.Warn("target records without traces", "target", tc.ID, "uncovered", len(cov.Uncovered), "records", cov.Records)
		}
		out = append(out, cov)
	}
	return out
}
