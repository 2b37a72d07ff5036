package pipeline

import (
	"testing"
	"time"
)

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for n := 0; n < 1000; n++ {
		id := NewID()
		if len(id) != 26 {
			t.Fatalf("expected 26-char ULID, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		if id <= prev {
			t.Fatalf("expected increasing ids, got %q after %q", id, prev)
		}
		seen[id] = true
		prev = id
	}
}

func TestRun_StateTransitions(t *testing.T) {
	run := NewRun("book")
	if run.State != StateUninitialized {
		t.Fatalf("expected %q, got %q", StateUninitialized, run.State)
	}

	transitions := []struct {
		state State
		phase string
	}{
		{StatePass1Numbering, "numbering chapters"},
		{StatePass1Registering, "registering traces"},
		{StatePass2Rendering, "rendering pages"},
		{StateDone, "done"},
	}

	for _, tr := range transitions {
		before := run.UpdatedAt
		time.Sleep(time.Millisecond)
		run.SetState(tr.state, tr.phase)

		snap := run.Snapshot()
		if snap.State != tr.state {
			t.Errorf("expected state %q, got %q", tr.state, snap.State)
		}
		if snap.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, snap.Phase)
		}
		if !snap.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetState(%q)", tr.state)
		}
	}
	if !run.State.Terminal() {
		t.Error("expected done to be terminal")
	}
}

func TestRun_Progress(t *testing.T) {
	run := NewRun("book")
	run.SetChapters(3)
	run.AddMarkers(2, 1)
	run.AddMarkers(1, 0)
	run.IncrRendered()
	run.IncrRendered()
	run.AddError("chapter intro: boom")

	snap := run.Snapshot()
	want := Progress{Chapters: 3, Traces: 3, Matrices: 1, Rendered: 2}
	if snap.Progress.Chapters != want.Chapters || snap.Progress.Traces != want.Traces ||
		snap.Progress.Matrices != want.Matrices || snap.Progress.Rendered != want.Rendered {
		t.Errorf("expected progress %+v, got %+v", want, snap.Progress)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "chapter intro: boom" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
}

func TestRun_SnapshotErrorsNotNil(t *testing.T) {
	snap := NewRun("book").Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
}

func TestRunStore_PutGet(t *testing.T) {
	store := NewRunStore(time.Hour)
	run := NewRun("book")
	store.Put(run)

	if got := store.Get(run.ID); got != run {
		t.Fatal("expected to get run back")
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing run")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 run, got %d", store.Len())
	}
}

func TestRunStore_TTLCleanup(t *testing.T) {
	store := NewRunStore(50 * time.Millisecond)

	finished := NewRun("old")
	finished.SetState(StateDone, "done")
	active := NewRun("active")
	active.SetState(StatePass2Rendering, "rendering pages")
	store.Put(finished)
	store.Put(active)

	time.Sleep(100 * time.Millisecond)

	fresh := NewRun("new")
	fresh.SetState(StateFailed, "failed")
	store.Put(fresh)

	store.Cleanup()

	if store.Get(finished.ID) != nil {
		t.Error("expected expired run to be cleaned up")
	}
	if store.Get(active.ID) == nil {
		t.Error("expected in-progress run to survive cleanup")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh run to survive cleanup")
	}
}
