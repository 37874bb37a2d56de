package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/store"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Name  string
	After int64
	Limit int
}

// EventView is a notification read back from the log.
type EventView struct {
	Seq          int64       `json:"seq"`
	InvocationID string      `json:"invocation_id"`
	Name         string      `json:"name"`
	Payload      ir.IRObject `json:"payload"`
}

// EventsResult lists notifications in emission order.
type EventsResult struct {
	Events []EventView `json:"events"`
	Count  int         `json:"count"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List emitted notifications",
		Long: `List the notifications emitted by successful operations, in the order
they were emitted.

Examples:
  buildgov events
  buildgov events --name PaymentMade
  buildgov events --after 12 --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "only notifications with this name")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only notifications after this seq")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of notifications (0 for all)")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--limit must not be negative, got %d", opts.Limit))
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	if _, err := openEngine(ctx, st); err != nil {
		return err
	}

	notifications, err := st.ReadNotifications(ctx, store.NotificationFilter{
		Name:     opts.Name,
		AfterSeq: opts.After,
		Limit:    opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read notifications", err)
	}

	result := EventsResult{Events: make([]EventView, 0, len(notifications))}
	for _, n := range notifications {
		result.Events = append(result.Events, EventView{
			Seq:          n.Seq,
			InvocationID: n.InvocationID,
			Name:         n.Name,
			Payload:      n.Payload,
		})
	}
	result.Count = len(result.Events)

	return out.Render(result, func(w io.Writer) {
		if result.Count == 0 {
			fmt.Fprintln(w, "No notifications")
			return
		}
		for _, e := range result.Events {
			fmt.Fprintf(w, "[%d] %s %v\n", e.Seq, e.Name, ir.ToAny(e.Payload))
		}
	})
}
