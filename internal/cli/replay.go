package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/buildgov/internal/engine"
	"github.com/roach88/buildgov/internal/project"
)

// ReplayResult reports whether the log reproduces the stored project.
type ReplayResult struct {
	Invocations   int                 `json:"invocations"`
	Seq           int64               `json:"seq"`
	Deterministic bool                `json:"deterministic"`
	Divergences   []engine.Divergence `json:"divergences"`
	State         project.State       `json:"state"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Replay the log and verify it reproduces the project",
		Long: `Rebuild the project from its initial snapshot by re-running every logged
invocation, without writing to the database.

Every invocation, completion, notification and transfer id must be
reproduced at the same seq, and the final state must equal the latest
snapshot.

Exit codes:
  0 - Replay reproduced the log
  1 - Replay diverged from the log
  2 - Command error (no project, etc.)

Examples:
  buildgov replay --db ./site.db
  buildgov replay --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(st)

	// Surfaces a missing project or foreign concept as a command error.
	if _, err := openEngine(ctx, st); err != nil {
		return err
	}

	report, err := engine.Replay(ctx, st)
	if err != nil && !engine.IsReplayDiverged(err) {
		return WrapExitError(ExitCommandError, "failed to replay log", err)
	}

	result := ReplayResult{
		Invocations:   report.Invocations,
		Seq:           report.Seq,
		Deterministic: len(report.Divergences) == 0,
		Divergences:   report.Divergences,
		State:         report.State,
	}
	if result.Divergences == nil {
		result.Divergences = []engine.Divergence{}
	}

	if result.Deterministic {
		return out.Render(result, func(w io.Writer) {
			fmt.Fprintf(w, "✓ Replayed %d invocation(s) to seq %d\n", result.Invocations, result.Seq)
		})
	}

	if opts.Format == "json" {
		_ = out.Error(CodeReplayDiverged, err.Error(), result)
	} else {
		w := out.Writer
		fmt.Fprintf(w, "✗ Replay diverged after %d invocation(s)\n", result.Invocations)
		for _, d := range result.Divergences {
			fmt.Fprintf(w, "  [%d] %s %s\n", d.Seq, d.Action, d.Field)
			if opts.Verbose {
				fmt.Fprintf(w, "    recorded: %s\n", d.Recorded)
				fmt.Fprintf(w, "    replayed: %s\n", d.Replayed)
			}
		}
	}
	return WrapExitError(ExitFailure, "replay diverged", err)
}
