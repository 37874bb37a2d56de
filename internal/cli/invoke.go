package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/buildgov/internal/engine"
	"github.com/roach88/buildgov/internal/ir"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args   string
	Caller string
	Flow   string
}

// NotificationView is a notification as printed by the CLI.
type NotificationView struct {
	Name    string      `json:"name"`
	Payload ir.IRObject `json:"payload"`
}

// TransferView is a payout as printed by the CLI.
type TransferView struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// CompletionView is the committed outcome of one invocation.
type CompletionView struct {
	InvocationID  string             `json:"invocation_id"`
	FlowToken     string             `json:"flow_token"`
	Seq           int64              `json:"seq"`
	Action        string             `json:"action"`
	Caller        string             `json:"caller"`
	OutputCase    string             `json:"output_case"`
	Result        ir.IRObject        `json:"result"`
	Notifications []NotificationView `json:"notifications"`
	Transfers     []TransferView     `json:"transfers"`
}

func newCompletionView(res engine.Result) CompletionView {
	view := CompletionView{
		InvocationID:  res.Invocation.ID,
		FlowToken:     res.Invocation.FlowToken,
		Seq:           res.Completion.Seq,
		Action:        string(res.Invocation.ActionURI),
		Caller:        res.Invocation.SecurityContext.UserID,
		OutputCase:    res.Completion.OutputCase,
		Result:        res.Completion.Result,
		Notifications: []NotificationView{},
		Transfers:     []TransferView{},
	}
	for _, n := range res.Notifications {
		view.Notifications = append(view.Notifications, NotificationView{Name: n.Name, Payload: n.Payload})
	}
	for _, t := range res.Transfers {
		view.Transfers = append(view.Transfers, TransferView{To: t.To, Amount: t.Amount})
	}
	return view
}

func (v CompletionView) writeText(w io.Writer) {
	fmt.Fprintf(w, "%s as %s -> %s (seq %d)\n", v.Action, v.Caller, v.OutputCase, v.Seq)
	if len(v.Result) > 0 {
		fmt.Fprintf(w, "  Result: %v\n", ir.ToAny(v.Result))
	}
	for _, n := range v.Notifications {
		fmt.Fprintf(w, "  ! %s %v\n", n.Name, ir.ToAny(n.Payload))
	}
	for _, t := range v.Transfers {
		fmt.Fprintf(w, "  $ %d -> %s\n", t.Amount, t.To)
	}
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action>",
		Short: "Invoke an action on the project",
		Long: `Invoke an action on behalf of a caller and commit its outcome.

The action may be bare ("approveBudget") or qualified
("Project.approveBudget"). Rejected operations are still recorded; the
command then exits with code 1.

Examples:
  buildgov invoke initialize --as alice --args '{"contractor":"bob","regulator":"carol","budget":5000}'
  buildgov invoke makePayment --as alice --args '{"to":"dave","amount":1200}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeAction(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "action arguments as JSON")
	cmd.Flags().StringVar(&opts.Caller, "as", "", "caller identity (required)")
	cmd.Flags().StringVar(&opts.Flow, "flow", "", "flow token (generated when empty)")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func invokeAction(opts *InvokeOptions, action string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	args, err := ir.ParseObject([]byte(opts.Args))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	eng, err := openEngine(ctx, st)
	if err != nil {
		return err
	}

	res, err := eng.Process(ctx, engine.Request{
		FlowToken:       opts.Flow,
		Action:          action,
		Args:            args,
		SecurityContext: ir.SecurityContext{UserID: opts.Caller},
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to process invocation", err)
	}
	exportMetrics(opts.RootOptions, eng)

	view := newCompletionView(res)
	if !res.Completion.Succeeded() {
		msg, _ := res.Completion.Result.GetString("message")
		if opts.Format == "json" {
			_ = out.Error(CodeRejected, msg, view)
		} else {
			view.writeText(out.Writer)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s rejected: %s", view.Action, res.Completion.OutputCase))
	}
	return out.Render(view, view.writeText)
}
