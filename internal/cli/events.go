package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/dealbook/internal/engine"
	"github.com/roach88/dealbook/internal/ledger"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Filter ledger.Filter
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List audit ledger entries, newest first",
		Long: `List audit ledger entries, newest first.

Time bounds accept YYYY-MM-DD or RFC 3339; --since is inclusive and
--until exclusive. --limit is clamped to 1..1000 (default 200, or
events.default_limit from the config file).

Examples:
  dealbook events --table Companies --record c1
  dealbook events --since 2024-01-01 --until 2024-02-01 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
				changes, err := eng.ListEvents(context.Background(), opts.Filter)
				if err != nil {
					return err
				}
				return writeChanges(opts.RootOptions, cmd, f, changes)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Filter.Table, "table", "", "only changes to this table")
	cmd.Flags().StringVar(&opts.Filter.RecordID, "record", "", "only changes to this record id")
	cmd.Flags().StringVar(&opts.Filter.ActorID, "actor", "", "only changes by this actor id")
	cmd.Flags().StringVar(&opts.Filter.Since, "since", "", "changes at or after this time")
	cmd.Flags().StringVar(&opts.Filter.Until, "until", "", "changes before this time")
	cmd.Flags().IntVar(&opts.Filter.Limit, "limit", 0, "maximum number of entries")

	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <table> <record-id>",
		Short: "Show the change history of one record",
		Example: `  dealbook history Opportunities o1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
				changes, err := eng.RecordHistory(context.Background(), args[0], args[1])
				if err != nil {
					return err
				}
				return writeChanges(rootOpts, cmd, f, changes)
			})
		},
	}
}

func writeChanges(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter, changes []ledger.FieldChange) error {
	if opts.Format == "json" {
		return f.Success(changes)
	}
	w := cmd.OutOrStdout()
	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANGED AT\tTABLE\tRECORD\tFIELD\tOLD\tNEW\tBY")
	for _, c := range changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ChangedAt, c.TableName, c.RecordID, c.FieldName,
			nullText(c.OldValue), nullText(c.NewValue), c.ActorLabel)
	}
	return tw.Flush()
}

func nullText(s *string) string {
	if s == nil {
		return "NULL"
	}
	return fmt.Sprintf("%q", *s)
}
