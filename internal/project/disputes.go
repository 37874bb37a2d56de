package project

import "fmt"

// DisputeStatus is the state of a dispute.
type DisputeStatus int

const (
	DisputeOpen DisputeStatus = iota
	DisputeResolved
)

func (s DisputeStatus) String() string {
	switch s {
	case DisputeOpen:
		return "Open"
	case DisputeResolved:
		return "Resolved"
	default:
		return fmt.Sprintf("DisputeStatus(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s DisputeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "Open" or "Resolved".
func (s *DisputeStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Open":
		*s = DisputeOpen
	case "Resolved":
		*s = DisputeResolved
	default:
		return fmt.Errorf("unknown dispute status %q", text)
	}
	return nil
}

// Dispute is an entry in the append-only dispute ledger. ID is its index.
type Dispute struct {
	ID     int           `json:"id"`
	Reason string        `json:"reason"`
	Status DisputeStatus `json:"status"`
}

// OpenDispute appends an open dispute and returns its id.
func (p *Project) OpenDispute(caller Identity, reason string) (int, error) {
	if err := p.enter("openDispute", RoleContractorOrApproved, caller); err != nil {
		return 0, err
	}
	id := len(p.disputes)
	p.disputes = append(p.disputes, Dispute{ID: id, Reason: reason, Status: DisputeOpen})
	p.emit(Event{Name: EventDisputeOpened, DisputeID: id, Reason: reason})
	return id, nil
}

// ResolveDispute resolves an open dispute.
func (p *Project) ResolveDispute(caller Identity, id int) error {
	const op = "resolveDispute"
	if err := p.enter(op, RoleAdministrator, caller); err != nil {
		return err
	}
	if id < 0 || id >= len(p.disputes) {
		return newError(op, KindInvalidID, "no dispute with id %d", id)
	}
	if p.disputes[id].Status != DisputeOpen {
		return newError(op, KindAlreadyResolved, "dispute %d already resolved", id)
	}
	p.disputes[id].Status = DisputeResolved
	p.emit(Event{Name: EventDisputeResolved, DisputeID: id})
	return nil
}

// DisputeCount returns the number of disputes ever opened.
func (p *Project) DisputeCount() int { return len(p.disputes) }

// Dispute returns the dispute with the given id.
func (p *Project) Dispute(id int) (Dispute, bool) {
	if id < 0 || id >= len(p.disputes) {
		return Dispute{}, false
	}
	return p.disputes[id], true
}

// Disputes returns a copy of the ledger.
func (p *Project) Disputes() []Dispute {
	out := make([]Dispute, len(p.disputes))
	copy(out, p.disputes)
	return out
}
