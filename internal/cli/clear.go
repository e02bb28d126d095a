package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewindable/rewind/internal/action"
	"github.com/rewindable/rewind/internal/actionlog"
)

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	ObjectType string
	ObjectID   int64
}

// ClearResult holds the outcome of a clear run.
type ClearResult struct {
	ObjectType string `json:"object_type"`
	ObjectID   int64  `json:"object_id"`
	Cleared    int    `json:"groups_cleared"`
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop both stacks for an entity",
		Long: `Drop an entity's undo and redo stacks in one atomic step.

Live data is not touched: whatever state the entity is in stays, it just
can no longer be rewound. Other entities' histories are unaffected.

Examples:
  rewind clear --log ./actions.db --type document --id 42
  rewind clear --config ./rewind.yaml --type document --id 42 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ObjectType, "type", "", "entity type, e.g. document (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().Int64Var(&opts.ObjectID, "id", 0, "entity id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runClear(opts *ClearOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if err := requireLog(opts.RootOptions); err != nil {
		return err
	}
	if opts.ObjectType == "" {
		return NewExitError(ExitCommandError, "entity type must not be empty")
	}

	log, err := actionlog.Open(opts.Log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open action log", err)
	}
	defer log.Close()

	key := action.EntityKey{ObjectType: opts.ObjectType, ObjectID: opts.ObjectID}

	undoCount, redoCount, err := log.Count(ctx, key)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history counts", err)
	}

	if err := log.ClearHistory(ctx, key); err != nil {
		return WrapExitError(ExitCommandError, "failed to clear history", err)
	}

	result := ClearResult{
		ObjectType: opts.ObjectType,
		ObjectID:   opts.ObjectID,
		Cleared:    undoCount + redoCount,
	}

	if opts.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), result)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %d group(s) for %s/%d\n",
		result.Cleared, result.ObjectType, result.ObjectID)
	return nil
}
