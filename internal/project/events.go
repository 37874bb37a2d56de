package project

// EventName identifies a notification.
type EventName string

// Notifications emitted by successful operations.
const (
	EventBudgetApproved           EventName = "BudgetApproved"
	EventMilestoneCompleted       EventName = "MilestoneCompleted"
	EventSafetyViolation          EventName = "SafetyViolation"
	EventSafetyComplianceRegained EventName = "SafetyComplianceRegained"
	EventPaymentMade              EventName = "PaymentMade"
	EventPhaseChanged             EventName = "PhaseChanged"
	EventSubcontractorPending     EventName = "SubcontractorPending"
	EventSubcontractorApproved    EventName = "SubcontractorApproved"
	EventDisputeOpened            EventName = "DisputeOpened"
	EventDisputeResolved          EventName = "DisputeResolved"
)

// Event is a notification. Only the fields relevant to Name are set.
type Event struct {
	Name      EventName
	Amount    uint64
	Milestone Milestone
	Phase     Phase
	Reason    string
	Account   Identity // payee or subcontractor
	DisputeID int
}

// Payload returns the notification's fields keyed by their wire names.
func (e Event) Payload() map[string]any {
	switch e.Name {
	case EventBudgetApproved:
		return map[string]any{"amount": int64(e.Amount)}
	case EventMilestoneCompleted:
		return map[string]any{"milestone": e.Milestone.String()}
	case EventSafetyViolation:
		return map[string]any{"reason": e.Reason}
	case EventPaymentMade:
		return map[string]any{"to": string(e.Account), "amount": int64(e.Amount)}
	case EventPhaseChanged:
		return map[string]any{"phase": e.Phase.String()}
	case EventSubcontractorPending, EventSubcontractorApproved:
		return map[string]any{"subcontractor": string(e.Account)}
	case EventDisputeOpened:
		return map[string]any{"dispute_id": e.DisputeID, "reason": e.Reason}
	case EventDisputeResolved:
		return map[string]any{"dispute_id": e.DisputeID}
	default:
		return map[string]any{}
	}
}

// EventSink receives notifications in emission order.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Emit calls f(e).
func (f EventSinkFunc) Emit(e Event) { f(e) }

// EventLog is an EventSink that keeps every event.
type EventLog struct {
	Events []Event
}

// Emit appends e.
func (l *EventLog) Emit(e Event) {
	l.Events = append(l.Events, e)
}

// Names returns the emitted event names in order.
func (l *EventLog) Names() []EventName {
	names := make([]EventName, len(l.Events))
	for i, e := range l.Events {
		names[i] = e.Name
	}
	return names
}
