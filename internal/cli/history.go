package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rewindable/rewind/internal/action"
	"github.com/rewindable/rewind/internal/actionlog"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	ObjectType string
	ObjectID   int64
}

// HistoryOp is one operation within a listed group.
type HistoryOp struct {
	Kind     string           `json:"kind"`
	Target   string           `json:"target"`
	Identity action.RowValues `json:"identity,omitempty"`
	Old      action.RowValues `json:"old,omitempty"`
	New      action.RowValues `json:"new,omitempty"`
}

// HistoryGroup is one captured group in a stack listing.
type HistoryGroup struct {
	Seq   int64       `json:"seq"`
	Token string      `json:"token"`
	Ops   []HistoryOp `json:"ops"`
}

// HistoryResult holds both stacks for an entity, each in stack order with
// the top (the group the next undo or redo would pop) listed last.
type HistoryResult struct {
	ObjectType string         `json:"object_type"`
	ObjectID   int64          `json:"object_id"`
	Undo       []HistoryGroup `json:"undo"`
	Redo       []HistoryGroup `json:"redo"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List both stacks for an entity",
		Long: `List an entity's undo and redo stacks without touching them.

Groups are shown in stack order: the last group listed is the one the
next undo (or redo) would pop. Verbose mode expands each group into its
recorded operations.

Examples:
  rewind history --log ./actions.db --type document --id 42
  rewind history --log ./actions.db --type document --id 42 --verbose
  rewind history --log ./actions.db --type document --id 42 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ObjectType, "type", "", "entity type, e.g. document (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().Int64Var(&opts.ObjectID, "id", 0, "entity id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
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

	undo, err := log.ListUndo(ctx, key)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list undo stack", err)
	}
	redo, err := log.ListRedo(ctx, key)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list redo stack", err)
	}

	result := HistoryResult{
		ObjectType: opts.ObjectType,
		ObjectID:   opts.ObjectID,
		Undo:       historyGroups(undo),
		Redo:       historyGroups(redo),
	}

	if opts.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), result)
	}
	return outputHistoryText(cmd, result, opts.Verbose)
}

// historyGroups converts stored groups to the listing shape.
func historyGroups(groups []action.Group) []HistoryGroup {
	out := make([]HistoryGroup, 0, len(groups))
	for _, g := range groups {
		hg := HistoryGroup{Seq: g.Seq, Token: g.Token, Ops: make([]HistoryOp, 0, len(g.Ops))}
		for _, op := range g.Ops {
			hg.Ops = append(hg.Ops, HistoryOp{
				Kind:     string(op.Kind),
				Target:   op.Target,
				Identity: op.Identity,
				Old:      op.Old,
				New:      op.New,
			})
		}
		out = append(out, hg)
	}
	return out
}

// outputHistoryText outputs both stacks as text.
func outputHistoryText(cmd *cobra.Command, result HistoryResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "History for %s/%d\n", result.ObjectType, result.ObjectID)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Undo Stack ===")
	formatStack(w, result.Undo, verbose)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Redo Stack ===")
	formatStack(w, result.Redo, verbose)

	return nil
}

// formatStack prints one stack's groups, top last.
func formatStack(w io.Writer, groups []HistoryGroup, verbose bool) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "  (empty)")
		return
	}
	for _, g := range groups {
		fmt.Fprintf(w, "  [%d] %s (%d op(s))\n", g.Seq, truncateToken(g.Token), len(g.Ops))
		if !verbose {
			continue
		}
		for _, op := range g.Ops {
			formatHistoryOp(w, op)
		}
	}
}

// formatHistoryOp prints one operation in a compact single-line form.
func formatHistoryOp(w io.Writer, op HistoryOp) {
	switch op.Kind {
	case "insert":
		fmt.Fprintf(w, "       INSERT %s %s\n", op.Target, formatRow(op.New))
	case "update":
		fmt.Fprintf(w, "       UPDATE %s %s: %s -> %s\n",
			op.Target, formatRow(op.Identity), formatRow(op.Old), formatRow(op.New))
	case "delete":
		fmt.Fprintf(w, "       DELETE %s %s was %s\n",
			op.Target, formatRow(op.Identity), formatRow(op.Old))
	default:
		fmt.Fprintf(w, "       %s %s\n", strings.ToUpper(op.Kind), op.Target)
	}
}

// formatRow formats row values for display. Column order follows the stored
// order, so output is deterministic.
func formatRow(values action.RowValues) string {
	if len(values) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(values))
	for _, cv := range values {
		parts = append(parts, fmt.Sprintf("%s=%v", cv.Column, cv.Value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
