// Package harness runs declarative undo/redo scenarios.
//
// A scenario describes a live schema, a sequence of captured mutation
// groups and undo/redo calls against one entity, and assertions on the
// resulting stacks and row state. Each scenario runs in a fresh live
// database and a fresh action log for isolation; fixed capture tokens keep
// the persisted history byte-deterministic so it can be compared against
// golden files.
package harness

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rewindable/rewind/internal/action"
	"github.com/rewindable/rewind/internal/actionlog"
	"github.com/rewindable/rewind/internal/engine"
	"github.com/rewindable/rewind/internal/sqlexec"
)

// Run executes a scenario inside dir (a scratch directory, typically the
// test's temp dir) and returns the result.
//
// Execution flow:
//  1. Create a fresh live database and apply the scenario schema
//  2. Open a fresh action log
//  3. Insert setup rows outside any capture
//  4. Execute steps in order: capture groups, undo calls, redo calls
//  5. Snapshot final counts and stacks, evaluate assertions
//
// Infrastructure failures (bad schema, a mutation the engine cannot
// capture, a replay failure) return an error. Assertion mismatches do not:
// they land in the result's Errors list.
func Run(scenario *Scenario, dir string) (*Result, error) {
	ctx := context.Background()

	db, err := sql.Open("sqlite3", filepath.Join(dir, "live.db"))
	if err != nil {
		return nil, fmt.Errorf("open live database: %w", err)
	}
	defer db.Close()

	for i, ddl := range scenario.Schema {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("schema[%d]: %w", i, err)
		}
	}

	log, err := actionlog.Open(filepath.Join(dir, "actions.db"))
	if err != nil {
		return nil, fmt.Errorf("open action log: %w", err)
	}
	defer log.Close()

	var tokens engine.TokenGenerator
	if len(scenario.Tokens) > 0 {
		tokens = engine.NewFixedGenerator(scenario.Tokens...)
	}
	eng := engine.New(log, tokens)
	exec := sqlexec.NewExecutor(db)

	h := &runner{
		scenario: scenario,
		db:       db,
		log:      log,
		engine:   eng,
		exec:     exec,
	}

	result := NewResult(scenario.Name)

	if err := h.executeSetup(ctx); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeSteps(ctx); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}
	if err := h.snapshot(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to snapshot history: %w", err)
	}

	for _, msg := range EvaluateAssertions(ctx, db, result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// runner holds the per-scenario execution state.
type runner struct {
	scenario *Scenario
	db       *sql.DB
	log      *actionlog.Log
	engine   *engine.Engine
	exec     *sqlexec.Executor
}

// executeSetup inserts the setup rows outside any capture: they leave no
// trace in the action log.
func (h *runner) executeSetup(ctx context.Context) error {
	for i, row := range h.scenario.Setup {
		op := action.Operation{
			Kind:   action.KindInsert,
			Target: row.Table,
			New:    rowFromMap(row.Values),
		}
		if err := h.exec.ExecOperation(ctx, op); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	return nil
}

// executeSteps runs the main sequence in order.
func (h *runner) executeSteps(ctx context.Context) error {
	key := h.scenario.Entity
	for i, step := range h.scenario.Steps {
		switch {
		case len(step.Capture) > 0:
			if err := h.executeCapture(ctx, step.Capture); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		case step.Undo > 0:
			for n := 0; n < step.Undo; n++ {
				if _, _, err := h.engine.Undo(ctx, h.exec, key.Type, key.ID); err != nil {
					return fmt.Errorf("steps[%d]: undo %d: %w", i, n+1, err)
				}
			}
		case step.Redo > 0:
			for n := 0; n < step.Redo; n++ {
				if _, _, err := h.engine.Redo(ctx, h.exec, key.Type, key.ID); err != nil {
					return fmt.Errorf("steps[%d]: redo %d: %w", i, n+1, err)
				}
			}
		}
	}
	return nil
}

// executeCapture runs one capture step: all mutations inside a single
// session, committed as one group.
func (h *runner) executeCapture(ctx context.Context, muts []Mutation) error {
	sess, err := h.engine.Capture(ctx, h.scenario.Entity.Type, h.scenario.Entity.ID)
	if err != nil {
		return err
	}
	defer sess.Abort()

	m := sqlexec.NewMutator(h.db, sess)
	for j, mut := range muts {
		switch mut.Op {
		case "insert":
			_, err = m.Insert(ctx, mut.Table, rowFromMap(mut.Values))
		case "update":
			err = m.Update(ctx, mut.Table, rowFromMap(mut.Identity), rowFromMap(mut.Values))
		case "delete":
			err = m.Delete(ctx, mut.Table, rowFromMap(mut.Identity))
		}
		if err != nil {
			return fmt.Errorf("capture[%d] %s %s: %w", j, mut.Op, mut.Table, err)
		}
	}

	return sess.Commit(ctx)
}

// snapshot records the final counts and both stacks into the result.
func (h *runner) snapshot(ctx context.Context, result *Result) error {
	key := action.EntityKey{ObjectType: h.scenario.Entity.Type, ObjectID: h.scenario.Entity.ID}

	undoCount, redoCount, err := h.engine.Counts(ctx, key.ObjectType, key.ObjectID)
	if err != nil {
		return err
	}
	result.UndoCount = undoCount
	result.RedoCount = redoCount

	if result.Undo, err = h.log.ListUndo(ctx, key); err != nil {
		return err
	}
	if result.Redo, err = h.log.ListRedo(ctx, key); err != nil {
		return err
	}
	return nil
}

// rowFromMap converts a YAML mapping into ordered row values. Keys are
// sorted so compiled statements and persisted snapshots are deterministic
// regardless of map iteration order.
func rowFromMap(m map[string]any) action.RowValues {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]any, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return action.Row(pairs...)
}
