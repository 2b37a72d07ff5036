package catalog

import "github.com/dgallion1/mdtrace/internal/registry"

// Coverage compares the records a target document defines with the records
// the book traces. It is informational only.
type Coverage struct {
	Target  string `json:"target"`
	Source  string `json:"source"`
	Records int    `json:"records"`
	Covered int    `json:"covered"`

	// Uncovered are records of the source that no trace references, in
	// document order.
	Uncovered []Entry `json:"uncovered"`
	// Unlisted are traced record ids that the source does not mention, in
	// first-seen order.
	Unlisted []string `json:"unlisted"`
}

// Complete reports whether every source record is traced.
func (c Coverage) Complete() bool {
	return len(c.Uncovered) == 0
}

// Compare builds the coverage of target against the entries of its source.
func Compare(target *registry.Target, source string, entries []Entry) Coverage {
	cov := Coverage{
		Target:    target.ID,
		Source:    source,
		Records:   len(entries),
		Uncovered: []Entry{},
		Unlisted:  []string{},
	}

	listed := make(map[string]bool, len(entries))
	for _, e := range entries {
		listed[e.ID] = true
		if _, ok := target.Record(e.ID); ok {
			cov.Covered++
		} else {
			cov.Uncovered = append(cov.Uncovered, e)
		}
	}
	for _, rec := range target.Records() {
		if !listed[rec.ID] {
			cov.Unlisted = append(cov.Unlisted, rec.ID)
		}
	}
	return cov
}
