package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/rewindable/rewind/internal/action"
)

// HistorySnapshot is the golden-file shape of a scenario's final history.
// Row values serialize in their stored order and every capture token is
// fixed by the scenario, so the bytes are fully deterministic.
type HistorySnapshot struct {
	Scenario  string          `json:"scenario"`
	UndoCount int             `json:"undo_count"`
	RedoCount int             `json:"redo_count"`
	Undo      []snapshotGroup `json:"undo"`
	Redo      []snapshotGroup `json:"redo"`
}

type snapshotGroup struct {
	Seq   int64        `json:"seq"`
	Token string       `json:"token"`
	Ops   []snapshotOp `json:"ops"`
}

type snapshotOp struct {
	Kind     string           `json:"kind"`
	Target   string           `json:"target"`
	Identity action.RowValues `json:"identity,omitempty"`
	Old      action.RowValues `json:"old,omitempty"`
	New      action.RowValues `json:"new,omitempty"`
}

// Snapshot converts a result's final history into its golden-file shape.
func Snapshot(result *Result) HistorySnapshot {
	return HistorySnapshot{
		Scenario:  result.Scenario,
		UndoCount: result.UndoCount,
		RedoCount: result.RedoCount,
		Undo:      snapshotGroups(result.Undo),
		Redo:      snapshotGroups(result.Redo),
	}
}

func snapshotGroups(groups []action.Group) []snapshotGroup {
	out := make([]snapshotGroup, 0, len(groups))
	for _, g := range groups {
		sg := snapshotGroup{Seq: g.Seq, Token: g.Token, Ops: make([]snapshotOp, 0, len(g.Ops))}
		for _, op := range g.Ops {
			sg.Ops = append(sg.Ops, snapshotOp{
				Kind:     string(op.Kind),
				Target:   op.Target,
				Identity: op.Identity,
				Old:      op.Old,
				New:      op.New,
			})
		}
		out = append(out, sg)
	}
	return out
}

// AssertGolden compares a result's history snapshot against the golden
// file testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := json.MarshalIndent(Snapshot(result), "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
