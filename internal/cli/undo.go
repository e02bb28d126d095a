package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewindable/rewind/internal/actionlog"
	"github.com/rewindable/rewind/internal/engine"
	"github.com/rewindable/rewind/internal/sqlexec"
)

// UndoOptions holds flags for the undo command.
type UndoOptions struct {
	*RootOptions
	Database   string
	ObjectType string
	ObjectID   int64
	Steps      int
}

// RewindResult holds the outcome of an undo or redo run.
type RewindResult struct {
	ObjectType string `json:"object_type"`
	ObjectID   int64  `json:"object_id"`
	Direction  string `json:"direction"`
	Requested  int    `json:"steps_requested"`
	Applied    int    `json:"steps_applied"`
	UndoCount  int    `json:"undo_count"`
	RedoCount  int    `json:"redo_count"`
}

// NewUndoCommand creates the undo command.
func NewUndoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UndoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Unwind captured groups for an entity",
		Long: `Pop groups off an entity's undo stack and execute their inverses
against the live database. Each applied group moves to the redo stack.

Undoing with an empty stack is not an error: the command reports zero
steps applied.

Exit codes:
  0 - All requested steps applied (or the stack ran out)
  1 - A statement failed during replay; both stacks are left unchanged
  2 - Command error (missing databases, bad flags, etc.)

Examples:
  rewind undo --log ./actions.db --db ./app.db --type document --id 42
  rewind undo --log ./actions.db --db ./app.db --type document --id 42 --steps 3
  rewind undo --config ./rewind.yaml --type document --id 42 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewind(opts, cmd, "undo")
		},
	}

	addRewindFlags(cmd, opts)
	return cmd
}

// addRewindFlags registers the flags shared by undo and redo.
func addRewindFlags(cmd *cobra.Command, opts *UndoOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the live SQLite database")
	cmd.Flags().StringVar(&opts.ObjectType, "type", "", "entity type, e.g. document (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().Int64Var(&opts.ObjectID, "id", 0, "entity id (required)")
	_ = cmd.MarkFlagRequired("id")
	cmd.Flags().IntVar(&opts.Steps, "steps", 1, "number of groups to apply")
}

func runRewind(opts *UndoOptions, cmd *cobra.Command, direction string) error {
	ctx := context.Background()

	if err := requireLog(opts.RootOptions); err != nil {
		return err
	}
	if opts.Database == "" && opts.fileConfig != nil {
		opts.Database = opts.fileConfig.Database
	}
	if opts.Database == "" {
		return NewExitError(ExitCommandError, "no live database: pass --db or set it in the config file")
	}
	if opts.ObjectType == "" {
		return NewExitError(ExitCommandError, "entity type must not be empty")
	}
	if opts.Steps < 1 {
		return NewExitError(ExitCommandError, "steps must be at least 1")
	}

	log, err := actionlog.Open(opts.Log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open action log", err)
	}
	defer log.Close()

	db, err := openLiveDatabase(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open live database", err)
	}
	defer db.Close()

	eng := engine.New(log, nil)
	exec := sqlexec.NewExecutor(db)

	undoCount, redoCount, err := eng.Counts(ctx, opts.ObjectType, opts.ObjectID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history counts", err)
	}

	result := RewindResult{
		ObjectType: opts.ObjectType,
		ObjectID:   opts.ObjectID,
		Direction:  direction,
		Requested:  opts.Steps,
		UndoCount:  undoCount,
		RedoCount:  redoCount,
	}

	for result.Applied < opts.Steps {
		remaining := result.UndoCount
		if direction == "redo" {
			remaining = result.RedoCount
		}
		if remaining == 0 {
			break
		}

		if direction == "undo" {
			undoCount, redoCount, err = eng.Undo(ctx, exec, opts.ObjectType, opts.ObjectID)
		} else {
			undoCount, redoCount, err = eng.Redo(ctx, exec, opts.ObjectType, opts.ObjectID)
		}
		if err != nil {
			return outputRewindError(cmd, opts, result, err)
		}

		result.Applied++
		result.UndoCount = undoCount
		result.RedoCount = redoCount
	}

	if opts.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), result)
	}
	return outputRewindText(cmd, opts, result)
}

// openLiveDatabase opens the live database undo and redo execute against.
// The file must already exist: sql.Open would silently create an empty one,
// and every replayed statement would then fail confusingly.
func openLiveDatabase(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// outputRewindError reports a replay failure. Steps applied before the
// failing one remain applied; the failing group is back on its stack.
func outputRewindError(cmd *cobra.Command, opts *UndoOptions, result RewindResult, err error) error {
	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeReplayFailed,
				Message: err.Error(),
			},
		})
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✗ %s %s/%d failed after %d step(s): %v\n",
			result.Direction, result.ObjectType, result.ObjectID, result.Applied, err)
	}
	return WrapExitError(ExitFailure, fmt.Sprintf("%s failed", result.Direction), err)
}

// outputRewindText prints the rewind outcome as text.
func outputRewindText(cmd *cobra.Command, opts *UndoOptions, result RewindResult) error {
	w := cmd.OutOrStdout()

	if result.Applied == 0 {
		fmt.Fprintf(w, "Nothing to %s for %s/%d\n", result.Direction, result.ObjectType, result.ObjectID)
	} else {
		fmt.Fprintf(w, "✓ %s %s/%d: applied %d step(s)\n",
			result.Direction, result.ObjectType, result.ObjectID, result.Applied)
	}
	fmt.Fprintf(w, "  Undo stack: %d  Redo stack: %d\n", result.UndoCount, result.RedoCount)

	if opts.Verbose && result.Applied < result.Requested {
		fmt.Fprintf(w, "  Requested %d step(s), stack ran out after %d\n", result.Requested, result.Applied)
	}
	return nil
}
