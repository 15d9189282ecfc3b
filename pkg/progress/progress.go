// Package progress defines the observer interface and run summaries
// shared by the merge and split engines.
package progress

import (
	"fmt"
	"strings"
)

// Event describes one unit of engine progress. Warning carries a
// recoverable per-file problem; it is empty for normal advancement.
type Event struct {
	Total   int    // Total number of items in this run
	Done    int    // Items completed so far
	Path    string // Relative path currently being processed
	Warning string // Non-fatal problem, if any
}

// Observer receives progress events. Implementations must return
// quickly; the engines invoke the observer synchronously between file
// operations.
type Observer func(Event)

// Notify invokes the observer if one is set.
func (o Observer) Notify(ev Event) {
	if o != nil {
		o(ev)
	}
}

// Summary accumulates the outcome of one merge or split run. Per-file
// recoverable errors are collected here and surfaced once at the end;
// fatal errors abort the run and never appear in the summary.
type Summary struct {
	Written  int      // Files successfully merged or reconstructed
	Skipped  int      // Files skipped for recoverable reasons
	Warnings []string // One reason per skipped or degraded file
}

// Warn records a recoverable per-file problem.
func (s *Summary) Warn(reason string) {
	s.Skipped++
	s.Warnings = append(s.Warnings, reason)
}

// String renders the summary in a single human-readable line, with
// warning details on following lines when present.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d files processed, %d skipped", s.Written, s.Skipped)
	for _, w := range s.Warnings {
		b.WriteString("\n  - ")
		b.WriteString(w)
	}
	return b.String()
}
