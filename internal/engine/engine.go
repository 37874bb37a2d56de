package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/buildgov/internal/compiler"
	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/project"
	"github.com/roach88/buildgov/internal/store"
)

// Request asks the engine to run one action on behalf of a caller.
type Request struct {
	// FlowToken groups related requests. Generated when empty.
	FlowToken string

	// Action is "makePayment" or the qualified "Project.makePayment".
	Action string

	// Args are checked against the action signature. Nil means no args.
	Args ir.IRObject

	// SecurityContext.UserID is the caller identity.
	SecurityContext ir.SecurityContext
}

// Result is everything committed for one request.
type Result struct {
	Invocation    ir.Invocation
	Completion    ir.Completion
	Notifications []ir.Notification
	Transfers     []ir.Transfer
}

// RecipientHook runs when budget custody pays a recipient, before the
// transfer is recorded. It stands in for code controlled by the payee and
// may call back into the project. A non-nil error fails the transfer.
type RecipientHook func(ctx context.Context, p *project.Project, to project.Identity, amount uint64) error

// Engine turns requests into guarded project operations and commits each
// one, with its completion, notifications, transfers and a state snapshot,
// as a single store transaction.
//
// The engine is the project's only writer. Process serializes callers with
// a mutex; Run drains requests from Submit in one goroutine.
//
// A failed operation is still recorded: its completion carries the error
// kind as output case. Its notifications, transfers and state changes are
// discarded by restoring the pre-operation snapshot.
type Engine struct {
	store    *store.Store
	clock    *Clock
	spec     *ir.ConceptSpec
	specHash string
	project  *project.Project
	queue    *requestQueue
	flowGen  FlowTokenGenerator
	metrics  *Metrics
	hook     RecipientHook

	writeMu sync.Mutex

	// Collected while an operation runs; reset by Process.
	events    []project.Event
	transfers []paidOut
}

type paidOut struct {
	to     project.Identity
	amount uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithFlowGenerator sets the generator for requests without a flow token.
// Default: UUIDv7Generator.
func WithFlowGenerator(g FlowTokenGenerator) Option {
	return func(e *Engine) { e.flowGen = g }
}

// WithMetrics sets the collectors the engine reports to.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRecipientHook installs a hook called for every payout.
func WithRecipientHook(h RecipientHook) Option {
	return func(e *Engine) { e.hook = h }
}

// WithSpec uses spec instead of the built-in Project concept.
func WithSpec(spec *ir.ConceptSpec) Option {
	return func(e *Engine) { e.spec = spec }
}

func newEngine(s *store.Store, opts []Option) (*Engine, error) {
	e := &Engine{
		store: s,
		queue: newRequestQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.flowGen == nil {
		e.flowGen = UUIDv7Generator{}
	}
	if e.metrics == nil {
		e.metrics = NewMetrics()
	}
	if e.spec == nil {
		spec, err := compiler.LoadProjectConcept()
		if err != nil {
			return nil, fmt.Errorf("load project concept: %w", err)
		}
		e.spec = spec
	}
	if err := checkHandlers(e.spec); err != nil {
		return nil, err
	}
	hash, err := ir.SpecHash(*e.spec)
	if err != nil {
		return nil, fmt.Errorf("hash concept: %w", err)
	}
	e.specHash = hash
	return e, nil
}

func (e *Engine) newProject(administrator project.Identity) (*project.Project, error) {
	return project.New(administrator,
		project.WithEventSink(project.EventSinkFunc(e.collect)),
		project.WithTransferer(project.TransferFunc(e.payOut)),
	)
}

// Create initializes s with a new project administered by administrator and
// returns an engine for it. Fails with store.ErrProjectExists if s already
// holds a project.
func Create(ctx context.Context, s *store.Store, administrator string, opts ...Option) (*Engine, error) {
	e, err := newEngine(s, opts)
	if err != nil {
		return nil, err
	}
	p, err := e.newProject(project.Identity(administrator))
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	state, err := json.Marshal(p.State())
	if err != nil {
		return nil, fmt.Errorf("create project: encode state: %w", err)
	}
	header := store.ProjectHeader{
		Administrator: administrator,
		SpecHash:      e.specHash,
		EngineVersion: ir.EngineVersion,
	}
	if err := s.CreateProject(ctx, header, state); err != nil {
		return nil, err
	}

	e.project = p
	e.clock = NewClock()
	e.metrics.setBudget(p.Budget())

	slog.Info("project created",
		"administrator", administrator,
		"spec_hash", e.specHash,
	)
	return e, nil
}

// Open returns an engine for the project already stored in s, restored from
// its latest snapshot. Fails with store.ErrNoProject for an empty store and
// with a SPEC_MISMATCH runtime error if the project was created against a
// different action table.
func Open(ctx context.Context, s *store.Store, opts ...Option) (*Engine, error) {
	e, err := newEngine(s, opts)
	if err != nil {
		return nil, err
	}
	header, err := s.ReadProject(ctx)
	if err != nil {
		return nil, err
	}
	if header.SpecHash != e.specHash {
		return nil, &RuntimeError{
			Code:    ErrCodeSpecMismatch,
			Message: "store was created with a different concept",
			Details: map[string]string{"store": header.SpecHash, "engine": e.specHash},
		}
	}

	_, data, err := s.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	var state project.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("open: decode snapshot: %w", err)
	}
	p, err := e.newProject(project.Identity(header.Administrator))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := p.Restore(state); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	seq, err := s.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	e.project = p
	e.clock = NewClockAt(seq)
	e.metrics.setBudget(p.Budget())

	slog.Debug("project opened",
		"administrator", header.Administrator,
		"seq", seq,
		"phase", p.Phase(),
	)
	return e, nil
}

// Spec returns the compiled concept the engine dispatches against.
func (e *Engine) Spec() *ir.ConceptSpec { return e.spec }

// SpecHash returns the fingerprint recorded on every invocation.
func (e *Engine) SpecHash() string { return e.specHash }

// Metrics returns the engine's collectors.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// NewFlow returns a fresh flow token.
func (e *Engine) NewFlow() string { return e.flowGen.Generate() }

// Seq returns the last seq stamped by the engine.
func (e *Engine) Seq() int64 { return e.clock.Current() }

// State returns a snapshot of the project.
func (e *Engine) State() project.State {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.project.State()
}

func (e *Engine) collect(ev project.Event) {
	e.events = append(e.events, ev)
}

func (e *Engine) payOut(ctx context.Context, to project.Identity, amount uint64) error {
	if e.hook != nil {
		if err := e.hook(ctx, e.project, to, amount); err != nil {
			return err
		}
	}
	e.transfers = append(e.transfers, paidOut{to: to, amount: amount})
	return nil
}

// Process applies req and commits the outcome. Operation failures are
// returned as a committed Result whose completion names the failure; a
// non-nil error means nothing was committed and the project is unchanged.
func (e *Engine) Process(ctx context.Context, req Request) (Result, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	flow := req.FlowToken
	if flow == "" {
		flow = e.flowGen.Generate()
	}
	args := req.Args
	if args == nil {
		args = ir.IRObject{}
	}
	ref := ir.QualifyAction(e.spec.Name, req.Action)
	startSeq := e.clock.Current()

	inv := ir.Invocation{
		FlowToken:       flow,
		ActionURI:       ref,
		Args:            args,
		Seq:             e.clock.Next(),
		SecurityContext: req.SecurityContext,
		SpecHash:        e.specHash,
		EngineVersion:   ir.EngineVersion,
		IRVersion:       ir.IRVersion,
	}
	invID, err := ir.InvocationID(flow, ref, args, inv.Seq)
	if err != nil {
		e.clock.Reset(startSeq)
		return Result{}, fmt.Errorf("process %s: %w", ref, err)
	}
	inv.ID = invID

	slog.Debug("processing invocation",
		"id", inv.ID,
		"action", inv.ActionURI,
		"flow", inv.FlowToken,
		"seq", inv.Seq,
		"caller", req.SecurityContext.UserID,
	)

	before := e.project.State()
	res, state, err := e.execute(ctx, inv)
	if err != nil {
		e.clock.Reset(startSeq)
		return Result{}, err
	}
	outputCase := res.Completion.OutputCase

	rec := store.Record{
		Invocation:    res.Invocation,
		Completion:    res.Completion,
		Notifications: res.Notifications,
		Transfers:     res.Transfers,
		State:         state,
	}
	if err := e.store.Commit(ctx, rec); err != nil {
		e.clock.Reset(startSeq)
		commitErr := newCommitError(flow, string(ref), err)
		if rbErr := e.rollback(before); rbErr != nil {
			return Result{}, errors.Join(commitErr, rbErr)
		}
		return Result{}, commitErr
	}

	e.metrics.observe(ref.Action(), outputCase)
	e.metrics.setBudget(e.project.Budget())
	for _, t := range res.Transfers {
		e.metrics.transfer(t.Amount)
	}

	slog.Info("completion committed",
		"invocation_id", inv.ID,
		"action", inv.ActionURI,
		"flow", inv.FlowToken,
		"output_case", outputCase,
		"seq", res.Completion.Seq,
	)
	return res, nil
}

// execute runs inv against the project and builds its records. Failed
// operations leave the project as it was before inv.
func (e *Engine) execute(ctx context.Context, inv ir.Invocation) (Result, []byte, error) {
	before := e.project.State()
	e.events = e.events[:0]
	e.transfers = e.transfers[:0]

	caller := project.Identity(inv.SecurityContext.UserID)
	outputCase, result, err := e.apply(ctx, inv.ActionURI, caller, inv.Args)
	if err != nil || outputCase != ir.CaseSuccess {
		err = errors.Join(err, e.rollback(before))
	}
	if err != nil {
		return Result{}, nil, err
	}

	res, state, err := e.record(inv, outputCase, result)
	if err != nil {
		return Result{}, nil, errors.Join(err, e.rollback(before))
	}
	return res, state, nil
}

// apply validates the invocation against the concept and runs it. The
// returned error is reserved for failures that are not operation outcomes.
func (e *Engine) apply(ctx context.Context, ref ir.ActionRef, caller project.Identity, args ir.IRObject) (string, ir.IRObject, error) {
	sig, ok := e.lookup(ref)
	if !ok {
		return CaseUnknownAction, failure(fmt.Sprintf("unknown action %s", ref)), nil
	}
	if errs := sig.CheckArgs(args); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, ve := range errs {
			msgs[i] = ve.Error()
		}
		return CaseInvalidArgs, failure(strings.Join(msgs, "; ")), nil
	}

	result, err := handlers[sig.Name](ctx, e.project, caller, args)
	if err == nil {
		return ir.CaseSuccess, result, nil
	}

	var perr *project.Error
	if !errors.As(err, &perr) {
		return "", nil, fmt.Errorf("process %s: %w", ref, err)
	}
	if !sig.HasOutput(string(perr.Kind)) {
		slog.Warn("undeclared output case",
			"action", ref,
			"output_case", perr.Kind,
		)
	}
	msg := perr.Message
	if perr.Err != nil {
		msg += ": " + perr.Err.Error()
	}
	return string(perr.Kind), failure(msg), nil
}

func (e *Engine) lookup(ref ir.ActionRef) (ir.ActionSig, bool) {
	if ref.Concept() != e.spec.Name {
		return ir.ActionSig{}, false
	}
	return e.spec.Action(ref.Action())
}

func failure(message string) ir.IRObject {
	return ir.IRObject{"message": ir.IRString(message)}
}

// record builds the completion and, for successes, the notifications,
// transfers and encoded state produced by the operation.
func (e *Engine) record(inv ir.Invocation, outputCase string, result ir.IRObject) (Result, []byte, error) {
	comp := ir.Completion{
		InvocationID:    inv.ID,
		OutputCase:      outputCase,
		Result:          result,
		Seq:             e.clock.Next(),
		SecurityContext: inv.SecurityContext,
	}
	compID, err := ir.CompletionID(inv.ID, outputCase, result, comp.Seq)
	if err != nil {
		return Result{}, nil, fmt.Errorf("process %s: %w", inv.ActionURI, err)
	}
	comp.ID = compID

	res := Result{Invocation: inv, Completion: comp}
	if !comp.Succeeded() {
		return res, nil, nil
	}

	for i, ev := range e.events {
		payload, err := ir.ObjectFromMap(ev.Payload())
		if err != nil {
			return Result{}, nil, fmt.Errorf("notification %s: %w", ev.Name, err)
		}
		id, err := ir.NotificationID(inv.ID, string(ev.Name), payload, i)
		if err != nil {
			return Result{}, nil, err
		}
		res.Notifications = append(res.Notifications, ir.Notification{
			ID:           id,
			InvocationID: inv.ID,
			Name:         string(ev.Name),
			Payload:      payload,
			Index:        i,
			Seq:          comp.Seq,
		})
	}
	for _, t := range e.transfers {
		id, err := ir.TransferID(inv.ID, string(t.to), int64(t.amount), comp.Seq)
		if err != nil {
			return Result{}, nil, err
		}
		res.Transfers = append(res.Transfers, ir.Transfer{
			ID:           id,
			InvocationID: inv.ID,
			To:           string(t.to),
			Amount:       int64(t.amount),
			Seq:          comp.Seq,
		})
	}

	state, err := json.Marshal(e.project.State())
	if err != nil {
		return Result{}, nil, fmt.Errorf("encode state: %w", err)
	}
	return res, state, nil
}

func (e *Engine) rollback(before project.State) error {
	e.events = e.events[:0]
	e.transfers = e.transfers[:0]
	if err := e.project.Restore(before); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Submit queues req for the Run loop and waits for its result.
func (e *Engine) Submit(ctx context.Context, req Request) (Result, error) {
	reply := make(chan outcome, 1)
	if !e.queue.Enqueue(pending{ctx: ctx, req: req, reply: reply}) {
		return Result{}, newStoppedError()
	}
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case o := <-reply:
		return o.result, o.err
	}
}

// QueueLen returns the number of submitted requests not yet processed.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run processes submitted requests in FIFO order until ctx is done or Stop
// is called. Must be called from exactly one goroutine.
//
// Requests already queued when Stop is called are still processed. When ctx
// is done, queued requests fail with ENGINE_STOPPED.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		if p, ok := e.queue.TryDequeue(); ok {
			e.serve(p)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.drain()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

func (e *Engine) serve(p pending) {
	if err := p.ctx.Err(); err != nil {
		p.reply <- outcome{err: err}
		return
	}
	res, err := e.Process(p.ctx, p.req)
	if err != nil {
		slog.Error("request processing failed",
			"error", err,
			"action", p.req.Action,
			"flow_token", p.req.FlowToken,
			"caller", p.req.SecurityContext.UserID,
		)
	}
	p.reply <- outcome{result: res, err: err}
}

func (e *Engine) drain() {
	for {
		p, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		p.reply <- outcome{err: newStoppedError()}
	}
}

// Stop closes the request queue. Run returns once the queue is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}
