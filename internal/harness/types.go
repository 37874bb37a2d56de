package harness

import (
	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/project"
)

// Trace event types.
const (
	EventInvocation   = "invocation"
	EventReentry      = "reentry"
	EventCompletion   = "completion"
	EventNotification = "notification"
	EventTransfer     = "transfer"
)

// TraceEvent is one entry in a scenario trace. Only the fields relevant to
// Type are set.
type TraceEvent struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`

	// invocation, reentry
	Caller    string      `json:"caller,omitempty"`
	ActionURI string      `json:"action_uri,omitempty"`
	Args      ir.IRObject `json:"args,omitempty"`

	// completion, reentry
	OutputCase string      `json:"output_case,omitempty"`
	Result     ir.IRObject `json:"result,omitempty"`

	// notification
	Name    string      `json:"name,omitempty"`
	Payload ir.IRObject `json:"payload,omitempty"`

	// transfer
	To     string `json:"to,omitempty"`
	Amount int64  `json:"amount,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every committed record in commit order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the project state after the last step.
	State project.State `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(inv ir.Invocation) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventInvocation,
		Seq:       inv.Seq,
		Caller:    inv.SecurityContext.UserID,
		ActionURI: string(inv.ActionURI),
		Args:      inv.Args,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(comp ir.Completion) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventCompletion,
		Seq:        comp.Seq,
		OutputCase: comp.OutputCase,
		Result:     comp.Result,
	})
}

// AddNotificationTrace adds a notification to the trace.
func (r *Result) AddNotificationTrace(n ir.Notification) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventNotification,
		Seq:     n.Seq,
		Name:    n.Name,
		Payload: n.Payload,
	})
}

// AddTransferTrace adds a transfer to the trace.
func (r *Result) AddTransferTrace(t ir.Transfer) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventTransfer,
		Seq:    t.Seq,
		To:     t.To,
		Amount: t.Amount,
	})
}
