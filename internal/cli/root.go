package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // optional path to a YAML config file
	Log     string // path to the action log database

	// fileConfig is the parsed config file, if --config was given.
	// Subcommands consult it for their own defaults (e.g. the live
	// database path).
	fileConfig *Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rewind CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rewind",
		Short: "Rewind - row-level undo and redo",
		Long:  "Inspect and drive per-entity undo/redo history stored in an action log.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config != "" {
				cfg, err := LoadConfig(opts.Config)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to load config", err)
				}
				opts.fileConfig = cfg
				applyConfig(cmd, opts, cfg)
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Log, "log", "", "path to the action log database")

	// Add subcommands
	cmd.AddCommand(NewUndoCommand(opts))
	cmd.AddCommand(NewRedoCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))

	return cmd
}

// applyConfig fills options from the config file without overriding flags
// the user set explicitly.
func applyConfig(cmd *cobra.Command, opts *RootOptions, cfg *Config) {
	if cfg.Log != "" && !cmd.Flags().Changed("log") {
		opts.Log = cfg.Log
	}
	if cfg.Format != "" && !cmd.Flags().Changed("format") {
		opts.Format = cfg.Format
	}
}

// requireLog validates that an action log path was supplied by flag or
// config.
func requireLog(opts *RootOptions) error {
	if opts.Log == "" {
		return NewExitError(ExitCommandError, "no action log: pass --log or set it in the config file")
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
