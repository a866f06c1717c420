package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/config"
	"github.com/roach88/dealbook/internal/engine"
	"github.com/roach88/dealbook/internal/store"
)

// dbPath returns --db, then the configured path, then the default.
func (o *RootOptions) dbPath() string {
	switch {
	case o.DB != "":
		return o.DB
	case o.Config.DB != "":
		return o.Config.DB
	default:
		return config.DefaultDB
	}
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openEngine opens the database and wraps it in an engine. The caller
// must call the returned close function.
func (o *RootOptions) openEngine() (*engine.Engine, func(), error) {
	st, err := store.Open(o.dbPath())
	if err != nil {
		return nil, nil, apperr.Storage("open", err)
	}

	opts := []engine.Option{engine.WithLogger(o.logger())}
	if o.Config.DefaultEventLimit > 0 {
		opts = append(opts, engine.WithDefaultEventLimit(o.Config.DefaultEventLimit))
	}
	eng, err := engine.New(st, opts...)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return eng, func() { st.Close() }, nil
}

// withEngine opens the engine, runs fn, and reports fn's error through
// the formatter.
func (o *RootOptions) withEngine(cmd *cobra.Command, fn func(*engine.Engine, *OutputFormatter) error) error {
	f := o.formatter(cmd)
	eng, closeFn, err := o.openEngine()
	if err != nil {
		return f.Fail(err)
	}
	defer closeFn()

	if err := fn(eng, f); err != nil {
		return f.Fail(err)
	}
	return nil
}
