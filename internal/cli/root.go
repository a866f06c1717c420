package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/dealbook/internal/config"
	"github.com/roach88/dealbook/internal/ir"
)

// RootOptions holds global flags for all commands, plus the configuration
// resolved before any subcommand runs.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	ConfigDir string
	DB        string

	// Config is loaded in PersistentPreRunE. Commands built directly in
	// tests see the zero value and fall back to defaults.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dealbook CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dealbook",
		Short: "dealbook - audited deal pipeline records",
		Long: `dealbook edits venture deal records with a full audit trail and
assembles point-in-time views of companies and everything linked to them.`,
		Version:       ir.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/dealbook)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "database path (overrides config)")

	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewViewCommand(opts))
	cmd.AddCommand(NewSnapshotsCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewActorCommand(opts))
	cmd.AddCommand(NewRelationsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load resolves configuration and builds the logger. Flags win over
// config and environment.
func (o *RootOptions) load(stderr io.Writer) error {
	dir, err := config.ResolveDir(o.ConfigDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "config", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "config", err)
	}
	if o.DB != "" {
		cfg.DB = o.DB
	}
	o.Config = cfg

	level := cfg.LogLevel
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
