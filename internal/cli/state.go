package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/buildgov/internal/project"
)

// StateResult is the project state with its position in the log.
type StateResult struct {
	Seq   int64         `json:"seq"`
	State project.State `json:"state"`
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the current project state",
		Long: `Show the project state as of the last committed operation.

Examples:
  buildgov state --db ./site.db
  buildgov state --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(rootOpts, cmd)
		},
	}
}

func runState(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(st)

	eng, err := openEngine(ctx, st)
	if err != nil {
		return err
	}

	result := StateResult{Seq: eng.Seq(), State: eng.State()}
	return out.Render(result, func(w io.Writer) {
		writeState(w, result)
	})
}

func writeState(w io.Writer, r StateResult) {
	s := r.State
	fmt.Fprintf(w, "Project (seq %d)\n", r.Seq)
	fmt.Fprintf(w, "  Administrator: %s\n", s.Administrator)
	if !s.Initialized {
		fmt.Fprintln(w, "  Not initialized")
		return
	}
	fmt.Fprintf(w, "  Contractor:    %s\n", s.Contractor)
	fmt.Fprintf(w, "  Regulator:     %s\n", s.Regulator)
	fmt.Fprintf(w, "  Phase:         %s\n", s.Phase)
	fmt.Fprintf(w, "  Budget:        %d (approved: %t)\n", s.Budget, s.BudgetApproved)
	fmt.Fprintf(w, "  Safety:        %t\n", s.SafetyCompliant)

	fmt.Fprintln(w, "  Milestones:")
	for _, m := range project.Milestones() {
		mark := " "
		if s.Milestones[m.String()] {
			mark = "x"
		}
		fmt.Fprintf(w, "    [%s] %s\n", mark, m)
	}
	fmt.Fprintf(w, "  Pending:       %s\n", joinIdentities(s.Pending))
	fmt.Fprintf(w, "  Approved:      %s\n", joinIdentities(s.Approved))

	if len(s.Disputes) == 0 {
		return
	}
	fmt.Fprintln(w, "  Disputes:")
	for _, d := range s.Disputes {
		fmt.Fprintf(w, "    #%d %-8s %s\n", d.ID, d.Status, d.Reason)
	}
}

func joinIdentities(ids []project.Identity) string {
	if len(ids) == 0 {
		return "-"
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return strings.Join(names, ", ")
}
