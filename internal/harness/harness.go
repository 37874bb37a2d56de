package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/buildgov/internal/engine"
	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/project"
	"github.com/roach88/buildgov/internal/store"
	"github.com/roach88/buildgov/internal/testutil"
)

// Harness runs one scenario against a real engine with a fixed flow token.
type Harness struct {
	engine   *engine.Engine
	scenario *Scenario
	logger   *slog.Logger

	// Nested payment attempts made by reentrant recipients during the
	// current step.
	reentries []TraceEvent
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the harness logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory store. Setup steps run first and
// must succeed; a failing setup step is an error, not a failed result. Flow
// steps are checked against their expect clauses, then assertions are
// evaluated against the trace and final state.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	admin := scenario.Administrator
	if admin == "" {
		admin = DefaultAdministrator
	}
	h.engine, err = engine.Create(ctx, st, admin,
		engine.WithFlowGenerator(testutil.NewFixedFlowGenerator(scenario.FlowToken)),
		engine.WithRecipientHook(h.recipientHook),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	result := NewResult()
	if err := h.executeSetup(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	result.State = h.engine.State()
	state, err := stateMap(result.State)
	if err != nil {
		return nil, err
	}
	actx := &AssertionContext{
		Concept: h.engine.Spec().Name,
		State:   state,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"events", len(result.Trace),
	)
	return result, nil
}

func (h *Harness) executeSetup(ctx context.Context, result *Result) error {
	for i, step := range h.scenario.Setup {
		res, err := h.invoke(ctx, step, result)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if !res.Completion.Succeeded() {
			return fmt.Errorf("setup step %d: %s failed with %s: %s",
				i, step.Invoke, res.Completion.OutputCase, failureMessage(res.Completion))
		}
	}
	return nil
}

func (h *Harness) executeFlow(ctx context.Context, result *Result) error {
	for i, step := range h.scenario.Flow {
		res, err := h.invoke(ctx, step, result)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		if step.Expect != nil {
			checkExpect(i, step, res.Completion, result)
		}
	}
	return nil
}

// invoke processes one step and appends everything it committed to the
// trace.
func (h *Harness) invoke(ctx context.Context, step Step, result *Result) (engine.Result, error) {
	args, err := ir.ObjectFromMap(step.Args)
	if err != nil {
		return engine.Result{}, fmt.Errorf("failed to convert args: %w", err)
	}

	h.reentries = h.reentries[:0]
	res, err := h.engine.Process(ctx, engine.Request{
		Action:          step.Invoke,
		Args:            args,
		SecurityContext: ir.SecurityContext{UserID: step.As},
	})
	if err != nil {
		return engine.Result{}, err
	}

	h.logger.Debug("step processed",
		"action", res.Invocation.ActionURI,
		"caller", step.As,
		"output_case", res.Completion.OutputCase,
		"seq", res.Invocation.Seq,
	)

	result.AddInvocationTrace(res.Invocation)
	for _, ev := range h.reentries {
		ev.Seq = res.Invocation.Seq
		result.Trace = append(result.Trace, ev)
	}
	result.AddCompletionTrace(res.Completion)
	for _, n := range res.Notifications {
		result.AddNotificationTrace(n)
	}
	for _, t := range res.Transfers {
		result.AddTransferTrace(t)
	}
	return res, nil
}

// recipientHook plays the payee's side of a transfer.
func (h *Harness) recipientHook(ctx context.Context, p *project.Project, to project.Identity, amount uint64) error {
	if slices.Contains(h.scenario.FailingRecipients, string(to)) {
		return fmt.Errorf("recipient %s rejected transfer", to)
	}
	if !slices.Contains(h.scenario.ReentrantRecipients, string(to)) {
		return nil
	}

	caller := p.Administrator()
	outputCase := ir.CaseSuccess
	if err := p.MakePayment(ctx, caller, to, amount); err != nil {
		var perr *project.Error
		if !errors.As(err, &perr) {
			return err
		}
		outputCase = string(perr.Kind)
	}
	h.reentries = append(h.reentries, TraceEvent{
		Type:      EventReentry,
		Caller:    string(caller),
		ActionURI: string(ir.QualifyAction(h.engine.Spec().Name, "makePayment")),
		Args: ir.IRObject{
			"to":     ir.IRString(to),
			"amount": ir.IRInt(amount),
		},
		OutputCase: outputCase,
	})
	return nil
}

func checkExpect(index int, step Step, comp ir.Completion, result *Result) {
	if comp.OutputCase != step.Expect.Case {
		msg := fmt.Sprintf("flow[%d] %s: expected case %s, got %s",
			index, step.Invoke, step.Expect.Case, comp.OutputCase)
		if m := failureMessage(comp); m != "" {
			msg += " (" + m + ")"
		}
		result.AddError(msg)
		return
	}
	if len(step.Expect.Result) == 0 {
		return
	}
	expected, err := normalize(step.Expect.Result)
	if err != nil {
		result.AddError(fmt.Sprintf("flow[%d] %s: invalid expected result: %v", index, step.Invoke, err))
		return
	}
	actual := ir.ToAny(comp.Result)
	if !matchSubset(expected, actual) {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v",
			index, step.Invoke, expected, actual))
	}
}

func failureMessage(comp ir.Completion) string {
	msg, _ := comp.Result.GetString("message")
	return msg
}
