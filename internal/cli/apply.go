package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dealbook/internal/engine"
	"github.com/roach88/dealbook/internal/mutation"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	File     string
	Snapshot string

	// Single-edit flags.
	Table    string
	Record   string
	Field    string
	IDColumn string
	Value    string
	Clear    bool
}

// Batch is the edit file format. JSON is accepted as well, being valid
// YAML.
type Batch struct {
	SnapshotRoot string          `yaml:"snapshot_root,omitempty" json:"snapshot_root,omitempty"`
	Edits        []mutation.Edit `yaml:"edits" json:"edits"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply field edits as one audited batch",
		Long: `Apply field edits as one audited batch.

Every edit in the batch commits together or not at all. Each changed
field writes one ledger row attributed to the local actor, who must have
a label (see "dealbook actor set-label").

Edit file (YAML or JSON, "-" reads stdin):

  snapshot_root: c1
  edits:
    - table: Opportunities
      record_id: o1
      field: Round_Amount
      new_value: 2.5K

Examples:
  dealbook apply --file edits.yaml
  dealbook apply --table Companies --record c1 --field Pax --value 20
  dealbook apply --table Companies --record c1 --field One_Liner --clear --snapshot c1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "edit batch file (YAML or JSON, - for stdin)")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "capture a snapshot of this company after the edits")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table of a single edit")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record id of a single edit")
	cmd.Flags().StringVar(&opts.Field, "field", "", "field of a single edit")
	cmd.Flags().StringVar(&opts.IDColumn, "id-column", "", "id column of a single edit (default: primary key)")
	cmd.Flags().StringVar(&opts.Value, "value", "", "new value of a single edit")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "clear the field of a single edit")

	return cmd
}

func runApply(opts *ApplyOptions, cmd *cobra.Command) error {
	batch, err := opts.batch(cmd)
	if err != nil {
		return err
	}

	return opts.withEngine(cmd, func(eng *engine.Engine, f *OutputFormatter) error {
		f.VerboseLog("applying %d edit(s) to %s", len(batch.Edits), opts.dbPath())
		res, err := eng.ApplyChanges(context.Background(), batch.Edits, batch.SnapshotRoot)
		if err != nil {
			return err
		}

		if opts.Format == "json" {
			return f.Success(res)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ Updated %d field(s), %d ledger event(s), as %s\n",
			res.Updated, res.EventsCreated, res.Actor.LabelOrEmpty())
		if res.SnapshotID != nil {
			fmt.Fprintf(w, "Snapshot: %s\n", *res.SnapshotID)
		}
		return nil
	})
}

// batch builds the edit batch from --file or the single-edit flags.
func (o *ApplyOptions) batch(cmd *cobra.Command) (Batch, error) {
	single := o.Table != "" || o.Record != "" || o.Field != "" || cmd.Flags().Changed("value") || o.Clear

	switch {
	case o.File != "" && single:
		return Batch{}, NewExitError(ExitCommandError, "use either --file or the single-edit flags, not both")
	case o.File != "":
		b, err := readBatch(o.File, cmd.InOrStdin())
		if err != nil {
			return Batch{}, err
		}
		if o.Snapshot != "" {
			b.SnapshotRoot = o.Snapshot
		}
		return b, nil
	case single:
		if o.Table == "" || o.Record == "" || o.Field == "" {
			return Batch{}, NewExitError(ExitCommandError, "--table, --record and --field are required for a single edit")
		}
		if o.Clear == cmd.Flags().Changed("value") {
			return Batch{}, NewExitError(ExitCommandError, "exactly one of --value or --clear is required")
		}
		e := mutation.Edit{Table: o.Table, RecordID: o.Record, Field: o.Field, IDColumn: o.IDColumn}
		if !o.Clear {
			v := o.Value
			e.NewValue = &v
		}
		return Batch{Edits: []mutation.Edit{e}, SnapshotRoot: o.Snapshot}, nil
	default:
		return Batch{}, NewExitError(ExitCommandError, "nothing to apply: pass --file or --table/--record/--field")
	}
}

// readBatch parses an edit file strictly; unknown keys are errors.
func readBatch(path string, stdin io.Reader) (Batch, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return Batch{}, WrapExitError(ExitCommandError, "failed to read edit file", err)
	}

	var b Batch
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if err == io.EOF {
			return Batch{}, nil
		}
		return Batch{}, WrapExitError(ExitCommandError, "failed to parse edit file", err)
	}
	return b, nil
}
