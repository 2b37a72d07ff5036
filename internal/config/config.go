package config

import (
	"fmt"
	"strings"
)

// ParentNumbering selects how a chapter's own traces are numbered when the
// chapter also has subchapters.
type ParentNumbering string

const (
	// AllowDuplicates numbers traces from 1, so the first trace and the first
	// subchapter of chapter 1 are both "1.1".
	AllowDuplicates ParentNumbering = "allow-duplicates"
	// Offset numbers traces after the last subchapter: with 2 subchapters
	// the first trace of chapter 1 is "1.3".
	Offset ParentNumbering = "offset"
	// Zero inserts a ".0" segment in chapters that have subchapters: "1.0.1".
	Zero ParentNumbering = "zero"
)

// UnmarshalText validates the policy name for every config format.
func (p *ParentNumbering) UnmarshalText(b []byte) error {
	v := ParentNumbering(strings.TrimSpace(string(b)))
	switch v {
	case AllowDuplicates, Offset, Zero:
		*p = v
		return nil
	}
	return fmt.Errorf("unknown parent-numbering %q (want allow-duplicates, offset or zero)", string(b))
}

func (p ParentNumbering) MarshalText() ([]byte, error) {
	return []byte(p), nil
}

// Config is the trace configuration for one run. It is immutable once a run
// starts.
type Config struct {
	// Use the fully qualified trace number as the in-page footnote number.
	QualifiedFootnotes bool `json:"qualified-footnotes" yaml:"qualified-footnotes" toml:"qualified-footnotes"`
	// Prefix each page title with its chapter number.
	ChapterNumbers bool `json:"chapter-numbers" yaml:"chapter-numbers" toml:"chapter-numbers"`
	// Insert a horizontal rule between the page body and its footnotes.
	FootnoteDivider bool `json:"footnote-divider" yaml:"footnote-divider" toml:"footnote-divider"`

	ParentNumbering ParentNumbering `json:"parent-numbering" yaml:"parent-numbering" toml:"parent-numbering"`

	// Trace matrix column headings.
	RecordHeading string `json:"record-heading" yaml:"record-heading" toml:"record-heading"`
	TraceHeading  string `json:"trace-heading" yaml:"trace-heading" toml:"trace-heading"`

	// Verify generated trace and footnote links after rendering.
	CheckLinks bool `json:"check-links" yaml:"check-links" toml:"check-links"`

	Targets Targets `json:"targets" yaml:"targets" toml:"targets"`
}

// Default returns the configuration used when a key is absent.
func Default() Config {
	return Config{
		ParentNumbering: Zero,
		RecordHeading:   "Record",
		TraceHeading:    "Traces",
	}
}

// Validate checks values that decoding alone cannot reject.
func (c Config) Validate() error {
	switch c.ParentNumbering {
	case AllowDuplicates, Offset, Zero:
	default:
		return fmt.Errorf("unknown parent-numbering %q", c.ParentNumbering)
	}
	if err := c.Targets.Validate(); err != nil {
		return err
	}
	return nil
}

// Target returns the configured target with the given id.
func (c Config) Target(id string) (TargetConfig, bool) {
	for _, t := range c.Targets {
		if t.ID == id {
			return t, true
		}
	}
	return TargetConfig{}, false
}
