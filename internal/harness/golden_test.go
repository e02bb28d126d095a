package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRenameScenarioGolden(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "document_rename.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario, t.TempDir())
	require.NoError(t, err)
	require.True(t, result.Passed(), "failures: %v", result.Errors)

	AssertGolden(t, "document_rename", result)
}

func TestSnapshot(t *testing.T) {
	result, err := Run(baseScenario(), t.TempDir())
	require.NoError(t, err)

	snap := Snapshot(result)
	assert.Equal(t, "inline", snap.Scenario)
	assert.Equal(t, 2, snap.UndoCount)
	require.Len(t, snap.Undo, 2)
	assert.Equal(t, "cap-0002", snap.Undo[1].Token)
	assert.Empty(t, snap.Redo)

	// Insert ops carry only identity and new values.
	op := snap.Undo[0].Ops[0]
	assert.Equal(t, "insert", op.Kind)
	assert.Nil(t, op.Old)
	assert.NotNil(t, op.New)
}
