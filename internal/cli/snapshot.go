package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/dealbook/internal/engine"
)

// NewSnapshotsCommand creates the snapshots command.
func NewSnapshotsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "snapshots <company-id>",
		Short:         "List snapshots of a company, newest first",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
				list, err := eng.ListSnapshots(context.Background(), args[0])
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return f.Success(list)
				}
				w := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(w, "No snapshots.")
					return nil
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCREATED AT\tSOURCE\tBY")
				for _, s := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.CreatedAt, s.SourceTag, s.ActorLabel)
				}
				return tw.Flush()
			})
		},
	}
}

// SnapshotCreateOptions holds flags for snapshot create.
type SnapshotCreateOptions struct {
	*RootOptions
	Tag string
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Read or capture a single snapshot",
	}
	cmd.AddCommand(newSnapshotGetCommand(rootOpts))
	cmd.AddCommand(newSnapshotCreateCommand(rootOpts))
	return cmd
}

func newSnapshotGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <snapshot-id>",
		Short: "Show a snapshot and verify its digest",
		Long: `Show a snapshot and verify its digest.

A snapshot whose payload no longer matches its digest is reported as
damaged (DIGEST_MISMATCH). Snapshots written before digests existed are
shown as unverified.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
				snap, err := eng.GetSnapshot(context.Background(), args[0])
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return f.Success(snap)
				}
				w := cmd.OutOrStdout()
				verified := "verified"
				if !snap.Verified {
					verified = "unverified"
				}
				fmt.Fprintf(w, "Snapshot %s of %s (%s, %s)\n", snap.ID, snap.RootID, snap.SourceTag, verified)
				fmt.Fprintf(w, "Captured %s by %s\n\n", snap.CreatedAt, snap.ActorLabel)
				if snap.View == nil {
					return nil
				}
				return writeFields(w, snap.View)
			})
		},
	}
}

func newSnapshotCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "create <company-id>",
		Short:         "Capture the current view of a company",
		Example:       `  dealbook snapshot create c1 --tag board-review`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
				id, err := eng.CreateSnapshot(context.Background(), args[0], opts.Tag)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return f.Success(map[string]string{"snapshot_id": id})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Snapshot %s\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Tag, "tag", "", "source tag (default: manual)")
	return cmd
}
