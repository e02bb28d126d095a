package cli

import (
	"github.com/spf13/cobra"
)

// NewRedoCommand creates the redo command. Redo shares all of undo's
// plumbing: it pops from the other stack and executes the stored inverses,
// which reproduce the originally captured changes.
func NewRedoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UndoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "redo",
		Short: "Reapply undone groups for an entity",
		Long: `Pop groups off an entity's redo stack and execute them against the
live database, reproducing the changes a previous undo unwound. Each
applied group moves back to the undo stack.

Redoing with an empty stack is not an error: the command reports zero
steps applied. Note that capturing new changes clears the redo stack.

Exit codes:
  0 - All requested steps applied (or the stack ran out)
  1 - A statement failed during replay; both stacks are left unchanged
  2 - Command error (missing databases, bad flags, etc.)

Examples:
  rewind redo --log ./actions.db --db ./app.db --type document --id 42
  rewind redo --log ./actions.db --db ./app.db --type document --id 42 --steps 2
  rewind redo --config ./rewind.yaml --type document --id 42 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRewind(opts, cmd, "redo")
		},
	}

	addRewindFlags(cmd, opts)
	return cmd
}
