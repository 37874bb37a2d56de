package project

import (
	"context"
	"errors"
)

// Transferer moves value out of budget custody to a recipient.
type Transferer interface {
	Transfer(ctx context.Context, to Identity, amount uint64) error
}

// TransferFunc adapts a function to Transferer.
type TransferFunc func(ctx context.Context, to Identity, amount uint64) error

// Transfer calls f.
func (f TransferFunc) Transfer(ctx context.Context, to Identity, amount uint64) error {
	return f(ctx, to, amount)
}

type nopTransferer struct{}

func (nopTransferer) Transfer(context.Context, Identity, uint64) error { return nil }

// Project is the governance state machine for one construction project.
type Project struct {
	administrator   Identity
	contractor      Identity
	regulator       Identity
	budget          uint64
	budgetApproved  bool
	safetyCompliant bool
	phase           Phase
	initialized     bool
	milestones      [milestoneCount]bool
	pending         map[Identity]bool
	approved        map[Identity]bool
	disputes        []Dispute

	// paying is set while makePayment is inside its transfer.
	paying bool

	events     EventSink
	transferer Transferer
}

// Option configures a Project.
type Option func(*Project)

// WithEventSink sets the sink that receives notifications.
func WithEventSink(sink EventSink) Option {
	return func(p *Project) { p.events = sink }
}

// WithTransferer sets the payout mechanism used by MakePayment.
func WithTransferer(t Transferer) Option {
	return func(p *Project) { p.transferer = t }
}

// New creates an uninitialized project administered by administrator.
func New(administrator Identity, opts ...Option) (*Project, error) {
	if administrator == "" {
		return nil, errors.New("administrator identity is required")
	}
	p := &Project{
		administrator:   administrator,
		safetyCompliant: true,
		phase:           PreConstruction,
		pending:         make(map[Identity]bool),
		approved:        make(map[Identity]bool),
		transferer:      nopTransferer{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Project) emit(e Event) {
	if p.events != nil {
		p.events.Emit(e)
	}
}

// Initialize sets the contractor, regulator and opening budget. It succeeds
// once, for the administrator only.
func (p *Project) Initialize(caller, contractor, regulator Identity, budget uint64) error {
	const op = "initialize"
	if p.initialized {
		return newError(op, KindAlreadyInitialized, "project is already initialized")
	}
	if !p.isAdministrator(caller) {
		return newError(op, KindUnauthorized, "caller %q is not %s", caller, RoleAdministrator)
	}
	if contractor == "" || regulator == "" {
		return newError(op, KindInvalidArgument, "contractor and regulator identities are required")
	}
	p.contractor = contractor
	p.regulator = regulator
	p.budget = budget
	p.initialized = true
	return nil
}

// Receive handles value sent to the project outside MakePayment's custody.
// It always fails.
func (p *Project) Receive(from Identity, amount uint64) error {
	return newError("receive", KindDirectPaymentRejected, "direct payment of %d from %q rejected", amount, from)
}

// Administrator returns the administrator identity.
func (p *Project) Administrator() Identity { return p.administrator }

// Contractor returns the contractor identity.
func (p *Project) Contractor() Identity { return p.contractor }

// Regulator returns the regulator identity.
func (p *Project) Regulator() Identity { return p.regulator }

// Budget returns the remaining budget.
func (p *Project) Budget() uint64 { return p.budget }

// BudgetApproved reports whether approveBudget has succeeded.
func (p *Project) BudgetApproved() bool { return p.budgetApproved }

// SafetyCompliant reports the safety-compliance flag.
func (p *Project) SafetyCompliant() bool { return p.safetyCompliant }

// Phase returns the current phase.
func (p *Project) Phase() Phase { return p.phase }

// Initialized reports whether Initialize has succeeded.
func (p *Project) Initialized() bool { return p.initialized }

// MilestoneCompleted reports whether m is done. Unknown milestones report false.
func (p *Project) MilestoneCompleted(m Milestone) bool {
	return m.Valid() && p.milestones[m]
}
