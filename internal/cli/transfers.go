package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/buildgov/internal/store"
)

// TransfersOptions holds flags for the transfers command.
type TransfersOptions struct {
	*RootOptions
	To    string
	After int64
	Limit int
}

// TransfersResult lists payouts and the total of those listed.
type TransfersResult struct {
	Transfers []TransferRecord `json:"transfers"`
	Total     int64            `json:"total"`
}

// TransferRecord is a payout read back from the log.
type TransferRecord struct {
	Seq          int64  `json:"seq"`
	InvocationID string `json:"invocation_id"`
	To           string `json:"to"`
	Amount       int64  `json:"amount"`
}

// NewTransfersCommand creates the transfers command.
func NewTransfersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransfersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "List payouts from budget custody",
		Long: `List every transfer of value out of the project budget, in seq order.

Examples:
  buildgov transfers
  buildgov transfers --to dave --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfers(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "only transfers to this recipient")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only transfers after this seq")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of transfers (0 for all)")

	return cmd
}

func runTransfers(opts *TransfersOptions, cmd *cobra.Command) error {
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

	transfers, err := st.ReadTransfers(ctx, store.TransferFilter{
		To:       opts.To,
		AfterSeq: opts.After,
		Limit:    opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read transfers", err)
	}

	result := TransfersResult{Transfers: make([]TransferRecord, 0, len(transfers))}
	for _, t := range transfers {
		result.Transfers = append(result.Transfers, TransferRecord{
			Seq:          t.Seq,
			InvocationID: t.InvocationID,
			To:           t.To,
			Amount:       t.Amount,
		})
		result.Total += t.Amount
	}

	return out.Render(result, func(w io.Writer) {
		if len(result.Transfers) == 0 {
			fmt.Fprintln(w, "No transfers")
			return
		}
		for _, t := range result.Transfers {
			fmt.Fprintf(w, "[%d] %d -> %s\n", t.Seq, t.Amount, t.To)
		}
		fmt.Fprintf(w, "Total: %d\n", result.Total)
	})
}
