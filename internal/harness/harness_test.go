package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewindable/rewind/internal/action"
)

// documentsSchema is the live schema most harness tests run against.
var documentsSchema = []string{`
CREATE TABLE documents (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    name     TEXT    NOT NULL,
    revision INTEGER NOT NULL DEFAULT 1
)`}

func baseScenario() *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline test scenario",
		Schema:      documentsSchema,
		Entity:      EntityRef{Type: "document", ID: 1},
		Tokens:      []string{"cap-0001", "cap-0002"},
		Steps: []Step{
			{Capture: []Mutation{{
				Op:     "insert",
				Table:  "documents",
				Values: map[string]any{"name": "doc", "revision": 1},
			}}},
			{Capture: []Mutation{{
				Op:       "update",
				Table:    "documents",
				Identity: map[string]any{"id": 1},
				Values:   map[string]any{"name": "doc-v2"},
			}}},
		},
		Assertions: []Assertion{
			{Type: AssertStackCounts, Undo: 2, Redo: 0},
			{Type: AssertRowValues, Table: "documents",
				Where:  map[string]any{"id": 1},
				Expect: map[string]any{"name": "doc-v2"}},
		},
	}
}

func TestRun_CapturesPass(t *testing.T) {
	result, err := Run(baseScenario(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Passed(), "failures: %v", result.Errors)
	assert.Equal(t, 2, result.UndoCount)
	assert.Equal(t, 0, result.RedoCount)
	require.Len(t, result.Undo, 2)
	assert.Equal(t, "cap-0001", result.Undo[0].Token)
}

func TestRun_UndoRedoRoundTrip(t *testing.T) {
	s := baseScenario()
	s.Steps = append(s.Steps, Step{Undo: 2}, Step{Redo: 2})

	result, err := Run(s, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Passed(), "failures: %v", result.Errors)
	assert.Equal(t, 2, result.UndoCount)
	assert.Equal(t, 0, result.RedoCount)
}

func TestRun_UndoMovesGroupToRedo(t *testing.T) {
	s := baseScenario()
	s.Steps = append(s.Steps, Step{Undo: 1})
	s.Assertions = []Assertion{
		{Type: AssertStackCounts, Undo: 1, Redo: 1},
		{Type: AssertRowValues, Table: "documents",
			Where:  map[string]any{"id": 1},
			Expect: map[string]any{"name": "doc"}},
	}

	result, err := Run(s, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Passed(), "failures: %v", result.Errors)

	require.Len(t, result.Redo, 1)
	require.Len(t, result.Redo[0].Ops, 1)
	// The redo stack holds the inverse: executing it re-applies the rename.
	op := result.Redo[0].Ops[0]
	assert.Equal(t, action.KindUpdate, op.Kind)
	old, _ := op.Old.Get("name")
	assert.Equal(t, "doc-v2", old)
}

func TestRun_SetupRowsLeaveNoHistory(t *testing.T) {
	s := baseScenario()
	s.Setup = []SetupRow{{
		Table:  "documents",
		Values: map[string]any{"id": 9, "name": "fixture", "revision": 3},
	}}
	s.Tokens = []string{"cap-0001"}
	s.Steps = []Step{
		{Capture: []Mutation{{
			Op:     "insert",
			Table:  "documents",
			Values: map[string]any{"name": "doc", "revision": 1},
		}}},
		{Undo: 1},
	}
	s.Assertions = []Assertion{
		{Type: AssertStackCounts, Undo: 0, Redo: 1},
		// Setup rows survive a full unwind.
		{Type: AssertRowExists, Table: "documents", Where: map[string]any{"id": 9}},
		{Type: AssertRowAbsent, Table: "documents", Where: map[string]any{"name": "doc"}},
	}

	result, err := Run(s, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Passed(), "failures: %v", result.Errors)
}

func TestRun_AssertionFailuresAreCollected(t *testing.T) {
	s := baseScenario()
	s.Assertions = []Assertion{
		{Type: AssertStackCounts, Undo: 5, Redo: 5},
		{Type: AssertRowAbsent, Table: "documents", Where: map[string]any{"id": 1}},
	}

	result, err := Run(s, t.TempDir())
	require.NoError(t, err, "assertion mismatches are not run errors")
	assert.False(t, result.Passed())
	require.Len(t, result.Errors, 2, "evaluation does not stop at the first failure")
	assert.Contains(t, result.Errors[0], "expected undo=5 redo=5")
	assert.Contains(t, result.Errors[1], "expected none")
}

func TestRun_BadSchemaFails(t *testing.T) {
	s := baseScenario()
	s.Schema = []string{"CREATE TABEL broken"}

	_, err := Run(s, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema[0]")
}

func TestRun_MultiMutationCaptureIsOneGroup(t *testing.T) {
	s := baseScenario()
	s.Steps = []Step{{Capture: []Mutation{
		{Op: "insert", Table: "documents",
			Values: map[string]any{"name": "a", "revision": 1}},
		{Op: "update", Table: "documents",
			Identity: map[string]any{"id": 1},
			Values:   map[string]any{"name": "b"}},
	}}}
	s.Tokens = []string{"cap-0001"}
	s.Assertions = []Assertion{{Type: AssertStackCounts, Undo: 1, Redo: 0}}

	result, err := Run(s, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Passed(), "failures: %v", result.Errors)
	require.Len(t, result.Undo, 1)
	assert.Len(t, result.Undo[0].Ops, 2)
}

func TestRowFromMap_SortsKeys(t *testing.T) {
	row := rowFromMap(map[string]any{"b": 2, "a": 1, "c": 3})
	assert.Equal(t, []string{"a", "b", "c"}, row.Columns())
}
