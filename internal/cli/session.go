package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/buildgov/internal/engine"
	"github.com/roach88/buildgov/internal/store"
)

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openStore opens the configured database.
func openStore(opts *RootOptions) (*store.Store, error) {
	st, err := store.Open(opts.Config.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// openEngine opens the project held by st. An empty store is a command
// error.
func openEngine(ctx context.Context, st *store.Store, extra ...engine.Option) (*engine.Engine, error) {
	eng, err := engine.Open(ctx, st, extra...)
	switch {
	case err == nil:
		return eng, nil
	case errors.Is(err, store.ErrNoProject):
		return nil, WrapExitError(ExitCommandError, "no project in database (run 'buildgov create' first)", err)
	case engine.IsSpecMismatch(err):
		return nil, WrapExitError(ExitCommandError, "database was created with a different concept", err)
	default:
		return nil, WrapExitError(ExitCommandError, "failed to open project", err)
	}
}

// closeStore closes st, logging failures.
func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// exportMetrics writes the engine's metrics to the configured textfile, if
// any.
func exportMetrics(opts *RootOptions, eng *engine.Engine) {
	path := opts.Config.MetricsFile
	if path == "" {
		return
	}
	if err := eng.Metrics().WriteTextfile(path); err != nil {
		slog.Warn("failed to write metrics textfile", "path", path, "error", err)
		return
	}
	slog.Debug("metrics written", "path", path)
}
