package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/dealbook/internal/engine"
	"github.com/roach88/dealbook/internal/view"
)

// ViewOptions holds flags for the view command.
type ViewOptions struct {
	*RootOptions
	Rows bool
}

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ViewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "view <company-id>",
		Short: "Show the assembled view of a company",
		Long: `Show the assembled view of a company: its round or fund, primary
contact, projects, tasks and artifacts, plus summary counts.

Editable fields are marked with *. With --rows, the flattened row
projection is printed instead.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
				v, err := eng.GetView(context.Background(), args[0])
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return f.Success(v)
				}
				if opts.Rows {
					return writeRows(cmd.OutOrStdout(), v)
				}
				return writeFields(cmd.OutOrStdout(), v)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Rows, "rows", false, "print the row projection")
	return cmd
}

// writeFields prints fields grouped by section, in view order.
func writeFields(w io.Writer, v *view.View) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, section := range v.Sections() {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\n", section)
		for _, fld := range v.Fields {
			if fld.Section != section {
				continue
			}
			mark := " "
			if fld.Editable {
				mark = "*"
			}
			fmt.Fprintf(tw, " %s %s\t%s\n", mark, fld.Label, fld.Value)
		}
	}
	return tw.Flush()
}

// writeRows prints the row projection as a table. Columns are sorted by
// key so every row lines up.
func writeRows(w io.Writer, v *view.View) error {
	if len(v.Rows) == 0 {
		fmt.Fprintln(w, "No rows.")
		return nil
	}
	var keys []string
	for k := range v.Rows[0] {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(keys, "\t"))
	for _, row := range v.Rows {
		vals := make([]string, len(keys))
		for i, k := range keys {
			vals[i] = row[k]
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	return tw.Flush()
}
