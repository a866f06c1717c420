package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/dealbook/internal/engine"
)

// RelationGroup is the JSON form of one relation's linked ids.
type RelationGroup struct {
	Name    string   `json:"name"`
	Table   string   `json:"table"`
	Role    string   `json:"role"`
	Present bool     `json:"present"`
	IDs     []string `json:"ids"`
}

// NewRelationsCommand creates the relations command.
func NewRelationsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relations <company-id>",
		Short: "List the records linked to a company, per relationship",
		Long: `List the records linked to a company, per relationship.

Every relationship in the registry is looked up in both directions.
Relationships whose edge table is missing from the database are shown
as absent.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
				groups, err := eng.Relations(context.Background(), args[0])
				if err != nil {
					return err
				}

				out := make([]RelationGroup, len(groups))
				for i, g := range groups {
					out[i] = RelationGroup{
						Name:    g.Relation.Name,
						Table:   g.Relation.Table,
						Role:    string(g.Relation.Role),
						Present: g.Present,
						IDs:     g.IDs,
					}
				}
				if rootOpts.Format == "json" {
					return f.Success(out)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RELATION\tTABLE\tIDS")
				for _, g := range out {
					ids := strings.Join(g.IDs, ", ")
					if !g.Present {
						ids = "(table absent)"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Name, g.Table, ids)
				}
				return tw.Flush()
			})
		},
	}
}
