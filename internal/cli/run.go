package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/buildgov/internal/engine"
	"github.com/roach88/buildgov/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// FlowGenerator overrides the flow token generator (for testing).
	FlowGenerator engine.FlowTokenGenerator
}

// SessionRequest is one line of a run session's input.
type SessionRequest struct {
	Action string          `json:"action"`
	As     string          `json:"as"`
	Args   json.RawMessage `json:"args,omitempty"`
	Flow   string          `json:"flow,omitempty"`
}

// SessionReply is one line of a run session's output. Exactly one of
// Completion and Error is set.
type SessionReply struct {
	Line       int             `json:"line"`
	Completion *CompletionView `json:"completion,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:   "run",
		Short: "Process requests from stdin through the engine loop",
		Long: `Start the single-writer engine loop and feed it requests read from
stdin, one JSON object per line:

  {"action":"makePayment","as":"alice","args":{"to":"dave","amount":100}}

Each request produces one JSON line on stdout carrying its completion, or
an error if the engine could not process it. Rejected operations are
completions, not errors. The session ends at end of input or on SIGINT
and SIGTERM; requests already queued are finished first.

Examples:
  buildgov run --db ./site.db < requests.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	var engOpts []engine.Option
	if opts.FlowGenerator != nil {
		engOpts = append(engOpts, engine.WithFlowGenerator(opts.FlowGenerator))
	}
	eng, err := openEngine(ctx, st, engOpts...)
	if err != nil {
		return err
	}
	defer exportMetrics(opts.RootOptions, eng)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := make(chan error, 1)
	go func() {
		runErr <- eng.Run(ctx)
	}()

	slog.Info("session started", "db", opts.Config.Database, "seq", eng.Seq())
	processed, readErr := feed(ctx, eng, cmd.InOrStdin(), cmd.OutOrStdout())

	eng.Stop()
	err = <-runErr
	slog.Info("session ended", "requests", processed, "seq", eng.Seq())
	logOperations(eng)

	if readErr != nil {
		return WrapExitError(ExitCommandError, "failed to read requests", readErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	return nil
}

// feed submits each input line and writes one reply per line. It returns
// the number of requests read.
func feed(ctx context.Context, eng *engine.Engine, in io.Reader, out io.Writer) (int, error) {
	enc := json.NewEncoder(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line, processed := 0, 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		processed++

		reply := SessionReply{Line: line}
		req, err := parseSessionRequest(scanner.Bytes())
		if err == nil {
			var res engine.Result
			res, err = eng.Submit(ctx, req)
			if err == nil {
				view := newCompletionView(res)
				reply.Completion = &view
			}
		}
		if err != nil {
			reply.Error = err.Error()
		}
		if err := enc.Encode(reply); err != nil {
			return processed, fmt.Errorf("write reply: %w", err)
		}
	}
	return processed, scanner.Err()
}

// logOperations logs the session's operation counts by action and outcome.
func logOperations(eng *engine.Engine) {
	ops, err := eng.Metrics().Operations()
	if err != nil {
		slog.Warn("failed to gather operation counts", "error", err)
		return
	}
	for _, op := range ops {
		slog.Info("operations", "action", op.Action, "outcome", op.Outcome, "count", op.Count)
	}
}

func parseSessionRequest(data []byte) (engine.Request, error) {
	var sr SessionRequest
	if err := json.Unmarshal(data, &sr); err != nil {
		return engine.Request{}, fmt.Errorf("invalid request: %w", err)
	}
	if sr.Action == "" {
		return engine.Request{}, fmt.Errorf("invalid request: action is required")
	}
	args := ir.IRObject{}
	if len(sr.Args) > 0 {
		var err error
		if args, err = ir.ParseObject(sr.Args); err != nil {
			return engine.Request{}, fmt.Errorf("invalid request args: %w", err)
		}
	}
	return engine.Request{
		FlowToken:       sr.Flow,
		Action:          sr.Action,
		Args:            args,
		SecurityContext: ir.SecurityContext{UserID: sr.As},
	}, nil
}
