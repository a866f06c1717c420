package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dealbook/internal/actor"
	"github.com/roach88/dealbook/internal/engine"
)

// NewActorCommand creates the actor command group.
func NewActorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor",
		Short: "Show or name the local user that changes are attributed to",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Show the local actor",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
				a, err := eng.GetActor(context.Background())
				if err != nil {
					return err
				}
				return writeActor(rootOpts, cmd, f, a)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "set-label <name>",
		Short:         "Set the name recorded on every change",
		Example:       `  dealbook actor set-label "Dana Reyes"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
				a, err := eng.SetActorLabel(context.Background(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return writeActor(rootOpts, cmd, f, a)
			})
		},
	})

	return cmd
}

func writeActor(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter, a actor.Actor) error {
	if opts.Format == "json" {
		return f.Success(a)
	}
	label := a.LabelOrEmpty()
	if !a.HasLabel() {
		label = "(not set)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Actor %s\nLabel: %s\n", a.ID, label)
	return nil
}
