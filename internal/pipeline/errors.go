package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/mdtrace/internal/config"
	"github.com/dgallion1/mdtrace/internal/linkcheck"
	"github.com/dgallion1/mdtrace/internal/registry"
	"github.com/dgallion1/mdtrace/internal/scan"
)

// ErrAlreadyRun is returned when Run is called twice on one Orchestrator.
var ErrAlreadyRun = errors.New("orchestrator has already run")

// ChapterError locates a trace error in the book.
type ChapterError struct {
	Chapter string // name
	Path    string // empty for draft chapters
	Marker  string // offending marker text, if any
	Err     error
}

func (e *ChapterError) Error() string {
	where := e.Chapter
	if e.Path != "" {
		where = fmt.Sprintf("%s (%s)", e.Chapter, e.Path)
	}
	if e.Marker != "" {
		return fmt.Sprintf("chapter %s: marker %s: %v", where, e.Marker, e.Err)
	}
	return fmt.Sprintf("chapter %s: %v", where, e.Err)
}

func (e *ChapterError) Unwrap() error { return e.Err }

// BrokenLinksError fails a run whose rendered pages contain trace or note
// links that do not resolve.
type BrokenLinksError struct {
	Links []linkcheck.Broken
}

func (e *BrokenLinksError) Error() string {
	lines := make([]string, len(e.Links))
	for i, b := range e.Links {
		lines[i] = b.String()
	}
	return fmt.Sprintf("%d broken trace links:\n  %s", len(e.Links), strings.Join(lines, "\n  "))
}

// ErrorKind classifies a run error for API clients.
func ErrorKind(err error) string {
	var (
		unknown   *registry.UnknownTargetError
		malformed *scan.MalformedMarkerError
		dup       *config.DuplicateTargetError
		broken    *BrokenLinksError
	)
	switch {
	case errors.As(err, &unknown):
		return "unknown_target"
	case errors.As(err, &malformed):
		return "malformed_marker"
	case errors.As(err, &dup):
		return "duplicate_target"
	case errors.As(err, &broken):
		return "broken_links"
	case errors.Is(err, ErrAlreadyRun):
		return "already_run"
	}
	return "internal"
}
