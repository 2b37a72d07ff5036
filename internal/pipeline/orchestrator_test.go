package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/mdtrace/internal/book"
	"github.com/dgallion1/mdtrace/internal/config"
	"github.com/dgallion1/mdtrace/internal/registry"
	"github.com/dgallion1/mdtrace/internal/scan"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(targets ...config.TargetConfig) config.Config {
	cfg := config.Default()
	cfg.Targets = targets
	return cfg
}

func mydocBook() *book.Book {
	return &book.Book{Chapters: []*book.Chapter{
		{Name: "Intro", Path: "intro.md", Content: "Some traceable text {{#trace mydoc:ID-1.2 }}"},
		{Name: "My Document", Path: "mydoc.md", Content: "{{#tracematrix mydoc }}"},
	}}
}

func TestRun_MydocScenario(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "mydoc", Name: "My Document"})
	res, err := NewOrchestrator(cfg, testLogger()).Run(context.Background(), mydocBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intro := res.Book.Chapters[0].Content
	wantIntro := `Some traceable text <a name="trace1_1"></a><a href="#note1_1"><sup>1</sup></a>` +
		"\n\n" + `<a name="note1_1"></a><sup>1</sup> My Document ID-1.2`
	if intro != wantIntro {
		t.Errorf("intro mismatch:\n got %q\nwant %q", intro, wantIntro)
	}

	matrix := res.Book.Chapters[1].Content
	wantMatrix := "| Record | Traces |\n|--------|--------|\n| ID-1.2 | [1.1](intro.md#trace1_1) |"
	if matrix != wantMatrix {
		t.Errorf("matrix mismatch:\n got %q\nwant %q", matrix, wantMatrix)
	}
}

func TestRun_QualifiedFootnotes(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "mydoc", Name: "My Document"})
	cfg.QualifiedFootnotes = true
	res, err := NewOrchestrator(cfg, testLogger()).Run(context.Background(), mydocBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Book.Chapters[0].Content, "<sup>1.1</sup> My Document ID-1.2") {
		t.Errorf("expected qualified footnote, got %q", res.Book.Chapters[0].Content)
	}
}

func TestRun_MatrixBeforeItsTraces(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "reqs"})
	b := &book.Book{Chapters: []*book.Chapter{
		{Name: "Matrix", Path: "matrix.md", Content: "# Matrix\n\n{{#tracematrix reqs}}\n"},
		{Name: "A", Path: "a.md", Content: "{{#trace reqs:R-1}}"},
		{Name: "B", Path: "sub/b.md", Content: "{{#tr reqs:R-2}} and {{#tr reqs:R-1}}"},
	}}

	res, err := NewOrchestrator(cfg, testLogger(), WithWorkers(3)).Run(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "# Matrix\n\n" +
		"| Record | Traces |\n|--------|--------|\n" +
		"| R-1 | [2.1](a.md#trace2_1), [3.2](sub/b.md#trace3_2) |\n" +
		"| R-2 | [3.1](sub/b.md#trace3_1) |\n"
	if got := res.Book.Chapters[0].Content; got != want {
		t.Errorf("matrix mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestRun_Deterministic(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "reqs", Name: "Requirements"})
	build := func() *book.Book {
		b := &book.Book{}
		for i, name := range []string{"one", "two", "three", "four", "five", "six"} {
			b.Chapters = append(b.Chapters, &book.Chapter{
				Name:    name,
				Path:    name + ".md",
				Content: "# " + name + "\n\n{{#trace reqs:R-" + string(rune('1'+i%3)) + "}}\n\n{{#tracematrix reqs}}\n",
				Children: []*book.Chapter{
					{Name: name + " child", Path: name + "/child.md", Content: "{{#trace reqs:R-9}}"},
				},
			})
		}
		return b
	}

	first, err := NewOrchestrator(cfg, testLogger(), WithWorkers(8)).Run(context.Background(), build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for n := 0; n < 5; n++ {
		again, err := NewOrchestrator(cfg, testLogger(), WithWorkers(8)).Run(context.Background(), build())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(first.Book, again.Book); diff != "" {
			t.Fatalf("output differs between runs (-first +again):\n%s", diff)
		}
	}
}

func TestRun_ParentNumberingPolicies(t *testing.T) {
	tests := []struct {
		policy config.ParentNumbering
		want   string
	}{
		{config.AllowDuplicates, "trace1_1"},
		{config.Offset, "trace1_3"},
		{config.Zero, "trace1_0_1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			cfg := testConfig(config.TargetConfig{ID: "reqs"})
			cfg.ParentNumbering = tt.policy
			b := &book.Book{Chapters: []*book.Chapter{{
				Name:    "Parent",
				Path:    "parent.md",
				Content: "{{#trace reqs:R-1}}",
				Children: []*book.Chapter{
					{Name: "A", Path: "a.md"},
					{Name: "B", Path: "b.md"},
				},
			}}}
			res, err := NewOrchestrator(cfg, testLogger()).Run(context.Background(), b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(res.Book.Chapters[0].Content, `name="`+tt.want+`"`) {
				t.Errorf("expected anchor %s, got %q", tt.want, res.Book.Chapters[0].Content)
			}
		})
	}
}

func TestRun_ChapterNumbersWithQualifiedZero(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "reqs", Name: "Reqs"})
	cfg.ChapterNumbers = true
	cfg.QualifiedFootnotes = true
	cfg.ParentNumbering = config.Zero
	b := &book.Book{Chapters: []*book.Chapter{{
		Name:     "Title",
		Path:     "title.md",
		Content:  "# Title\n\nText {{#trace reqs:R-1}}\n",
		Children: []*book.Chapter{{Name: "Sub", Path: "sub.md", Content: "# Sub\n"}},
	}}}

	res, err := NewOrchestrator(cfg, testLogger()).Run(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := res.Book.Chapters[0].Content
	want := "# 1 Title\n\nText " +
		`<a name="trace1_0_1"></a><a href="#note1_0_1"><sup>1.0.1</sup></a>` + "\n" +
		"\n\n" + `<a name="note1_0_1"></a><sup>1.0.1</sup> Reqs R-1`
	if got != want {
		t.Errorf("mismatch:\n got %q\nwant %q", got, want)
	}
	if sub := res.Book.Chapters[0].Children[0].Content; sub != "# 1.1 Sub\n" {
		t.Errorf("expected numbered subchapter title, got %q", sub)
	}
}

func TestRun_UnknownTargetProducesNoOutput(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "mydoc"})
	b := &book.Book{Chapters: []*book.Chapter{
		{Name: "Intro", Path: "intro.md", Content: "{{#trace mydoc:A-1}}"},
		{Name: "Bad", Path: "bad.md", Content: "line\n{{#trace other:A-1}}"},
	}}
	orig := b.Clone()

	o := NewOrchestrator(cfg, testLogger())
	res, err := o.Run(context.Background(), b)
	if res != nil {
		t.Fatal("expected no result")
	}
	var unknown *registry.UnknownTargetError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTargetError, got %v", err)
	}
	if unknown.ID != "other" {
		t.Errorf("expected id %q, got %q", "other", unknown.ID)
	}
	var chErr *ChapterError
	if !errors.As(err, &chErr) || chErr.Path != "bad.md" || chErr.Marker != "{{#trace other:A-1}}" {
		t.Errorf("expected chapter error locating the marker, got %v", err)
	}
	if o.State() != StateFailed {
		t.Errorf("expected state %q, got %q", StateFailed, o.State())
	}
	if diff := cmp.Diff(orig, b); diff != "" {
		t.Errorf("input book was modified (-want +got):\n%s", diff)
	}
	if got := ErrorKind(err); got != "unknown_target" {
		t.Errorf("expected kind unknown_target, got %q", got)
	}
}

func TestRun_UnknownMatrixTarget(t *testing.T) {
	b := &book.Book{Chapters: []*book.Chapter{{Name: "M", Path: "m.md", Content: "{{#tracematrix nope}}"}}}
	_, err := NewOrchestrator(testConfig(), testLogger()).Run(context.Background(), b)
	var unknown *registry.UnknownTargetError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTargetError, got %v", err)
	}
}

func TestRun_MalformedMarker(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "reqs"})
	b := &book.Book{Chapters: []*book.Chapter{{Name: "M", Path: "m.md", Content: "ok\n{{#trace reqs}}"}}}
	_, err := NewOrchestrator(cfg, testLogger()).Run(context.Background(), b)
	var malformed *scan.MalformedMarkerError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedMarkerError, got %v", err)
	}
	if malformed.Line != 2 {
		t.Errorf("expected line 2, got %d", malformed.Line)
	}
	if got := ErrorKind(err); got != "malformed_marker" {
		t.Errorf("expected kind malformed_marker, got %q", got)
	}
}

func TestRun_DuplicateTargets(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "a"}, config.TargetConfig{ID: "a"})
	run := NewRun("dup")
	o := NewOrchestrator(cfg, testLogger(), WithRun(run))
	_, err := o.Run(context.Background(), mydocBook())
	var dup *config.DuplicateTargetError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateTargetError, got %v", err)
	}
	if o.State() != StateFailed {
		t.Errorf("expected state %q, got %q", StateFailed, o.State())
	}
	// Setup fails before pass 1 numbers any chapter.
	snap := run.Snapshot()
	if snap.Phase != "failed" || snap.Progress.Chapters != 0 || snap.Progress.Traces != 0 {
		t.Errorf("expected failure before pass 1, got %+v", snap)
	}
	if _, err := o.Run(context.Background(), mydocBook()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("expected ErrAlreadyRun after a failed run, got %v", err)
	}
}

func TestRun_NullChapter(t *testing.T) {
	b := &book.Book{Chapters: []*book.Chapter{
		{Name: "Intro", Path: "intro.md", Children: []*book.Chapter{nil}},
	}}
	run := NewRun("null")
	o := NewOrchestrator(testConfig(), testLogger(), WithRun(run))
	_, err := o.Run(context.Background(), b)
	if err == nil || !strings.Contains(err.Error(), "chapters[0].children[0] is null") {
		t.Fatalf("expected null chapter error, got %v", err)
	}
	if o.State() != StateFailed || run.Snapshot().Progress.Chapters != 0 {
		t.Errorf("expected failure before pass 1, got %q %+v", o.State(), run.Snapshot())
	}
}

func TestRun_HeadingInsideMultiLineMarker(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "r", Name: "R"})
	cfg.ChapterNumbers = true
	b := &book.Book{Chapters: []*book.Chapter{
		{Name: "A", Path: "a.md", Content: "{{#trace r:\n# X }}\n"},
		{Name: "B", Path: "b.md", Content: "{{#trace r:X\n===\n}}\n\n# Title\n"},
		{Name: "M", Path: "m.md", Content: "{{#tracematrix r}}"},
	}}
	res, err := NewOrchestrator(cfg, testLogger(), WithWorkers(3)).Run(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := []string{res.Book.Chapters[0].Content, res.Book.Chapters[1].Content, res.Book.Chapters[2].Content}
	want := []string{
		`<a name="trace1_1"></a><a href="#note1_1"><sup>1</sup></a>` + "\n" +
			"\n\n" + `<a name="note1_1"></a><sup>1</sup> R # X`,
		`<a name="trace2_1"></a><a href="#note2_1"><sup>1</sup></a>` + "\n\n# 2 Title\n" +
			"\n\n" + `<a name="note2_1"></a><sup>1</sup> R X ===`,
		"| Record | Traces |\n|--------|--------|\n| # X | [1.1](a.md#trace1_1) |\n| X === | [2.1](b.md#trace2_1) |",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_UnnumberedParentWithSubchapters(t *testing.T) {
	for _, policy := range []config.ParentNumbering{config.AllowDuplicates, config.Offset, config.Zero} {
		t.Run(string(policy), func(t *testing.T) {
			cfg := testConfig(config.TargetConfig{ID: "reqs"})
			cfg.ParentNumbering = policy
			b := &book.Book{Chapters: []*book.Chapter{{
				Name:       "Preface",
				Path:       "preface.md",
				Unnumbered: true,
				Content:    "{{#trace reqs:R-1}} {{#trace reqs:R-2}}",
				Children: []*book.Chapter{
					{Name: "A", Path: "a.md", Content: "{{#trace reqs:R-3}}"},
					{Name: "B", Path: "b.md"},
				},
			}}}
			res, err := NewOrchestrator(cfg, testLogger()).Run(context.Background(), b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			preface := res.Book.Chapters[0]
			for _, anchor := range []string{"trace1", "trace2"} {
				if !strings.Contains(preface.Content, `name="`+anchor+`"`) {
					t.Errorf("expected anchor %s, got %q", anchor, preface.Content)
				}
			}
			if !strings.Contains(preface.Children[0].Content, `name="trace1"`) {
				t.Errorf("expected subchapter anchor trace1, got %q", preface.Children[0].Content)
			}
		})
	}
}

func TestRun_ZeroMarkersRoundTrip(t *testing.T) {
	content := "# Plain\n\nNothing {{#include other.md}} here.\n\n```\n{{#trace a:b}}\n```\n"
	b := &book.Book{Chapters: []*book.Chapter{{Name: "Plain", Path: "plain.md", Content: content}}}
	res, err := NewOrchestrator(testConfig(), testLogger()).Run(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Book.Chapters[0].Content; got != content {
		t.Errorf("expected unchanged content, got %q", got)
	}
}

func TestRun_AlreadyRun(t *testing.T) {
	o := NewOrchestrator(testConfig(config.TargetConfig{ID: "mydoc"}), testLogger())
	if _, err := o.Run(context.Background(), mydocBook()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State() != StateDone {
		t.Errorf("expected state %q, got %q", StateDone, o.State())
	}
	if _, err := o.Run(context.Background(), mydocBook()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("expected ErrAlreadyRun, got %v", err)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewOrchestrator(testConfig(config.TargetConfig{ID: "mydoc"}), testLogger()).Run(ctx, mydocBook())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRun_CheckLinks(t *testing.T) {
	cfg := testConfig(config.TargetConfig{ID: "mydoc", Name: "My Document"})
	cfg.CheckLinks = true
	if _, err := NewOrchestrator(cfg, testLogger()).Run(context.Background(), mydocBook()); err != nil {
		t.Fatalf("expected generated links to resolve, got %v", err)
	}

	b := mydocBook()
	b.Chapters[1].Content += "\n\nSee [the old trace](intro.md#trace9_9).\n"
	_, err := NewOrchestrator(cfg, testLogger()).Run(context.Background(), b)
	var broken *BrokenLinksError
	if !errors.As(err, &broken) {
		t.Fatalf("expected BrokenLinksError, got %v", err)
	}
	if len(broken.Links) != 1 || broken.Links[0].Href != "intro.md#trace9_9" {
		t.Errorf("unexpected broken links %+v", broken.Links)
	}
}

func TestRun_Coverage(t *testing.T) {
	dir := t.TempDir()
	src := "# Requirements\n\n- ID-1.1 first\n- ID-1.2 second\n"
	if err := os.WriteFile(filepath.Join(dir, "reqs.md"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(config.TargetConfig{ID: "mydoc", Name: "My Document", Source: "reqs.md"})

	run := NewRun("test")
	res, err := NewOrchestrator(cfg, testLogger(), WithSourceRoot(dir), WithRun(run)).Run(context.Background(), mydocBook())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Coverage) != 1 {
		t.Fatalf("expected 1 coverage report, got %d", len(res.Coverage))
	}
	cov := res.Coverage[0]
	if cov.Records != 2 || cov.Covered != 1 || len(cov.Uncovered) != 1 || cov.Uncovered[0].ID != "ID-1.1" {
		t.Errorf("unexpected coverage %+v", cov)
	}

	snap := run.Snapshot()
	if snap.State != StateDone || snap.Progress.Chapters != 2 || snap.Progress.Traces != 1 ||
		snap.Progress.Matrices != 1 || snap.Progress.Rendered != 2 {
		t.Errorf("unexpected run snapshot %+v", snap)
	}
}
