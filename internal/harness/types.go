package harness

import (
	"github.com/rewindable/rewind/internal/action"
)

// Result holds the outcome of a scenario run: the final stack state plus
// any assertion failures.
type Result struct {
	// Scenario is the name of the scenario that produced this result.
	Scenario string

	// UndoCount and RedoCount are the final group counts.
	UndoCount int
	RedoCount int

	// Undo and Redo are the final stacks in listing order (top last).
	Undo []action.Group
	Redo []action.Group

	// Errors lists assertion failures. Empty means the scenario passed.
	Errors []string
}

// NewResult creates an empty result for the named scenario.
func NewResult(name string) *Result {
	return &Result{Scenario: name}
}

// AddError records an assertion failure.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Passed reports whether the scenario ran without assertion failures.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}
