package project

import (
	"fmt"
	"slices"
)

// State is a complete, serializable snapshot of a Project.
type State struct {
	Administrator   Identity        `json:"administrator"`
	Contractor      Identity        `json:"contractor"`
	Regulator       Identity        `json:"regulator"`
	Budget          uint64          `json:"budget"`
	BudgetApproved  bool            `json:"budget_approved"`
	SafetyCompliant bool            `json:"safety_compliant"`
	Phase           Phase           `json:"phase"`
	Initialized     bool            `json:"initialized"`
	Milestones      map[string]bool `json:"milestones"`
	Pending         []Identity      `json:"pending"`
	Approved        []Identity      `json:"approved"`
	Disputes        []Dispute       `json:"disputes"`
}

// State returns a snapshot of the project. Identity lists are sorted.
func (p *Project) State() State {
	s := State{
		Administrator:   p.administrator,
		Contractor:      p.contractor,
		Regulator:       p.regulator,
		Budget:          p.budget,
		BudgetApproved:  p.budgetApproved,
		SafetyCompliant: p.safetyCompliant,
		Phase:           p.phase,
		Initialized:     p.initialized,
		Milestones:      make(map[string]bool, milestoneCount),
		Pending:         sortedIdentities(p.pending),
		Approved:        sortedIdentities(p.approved),
		Disputes:        p.Disputes(),
	}
	for _, m := range Milestones() {
		s.Milestones[m.String()] = p.milestones[m]
	}
	return s
}

// Restore replaces the project's state with s. Sinks, transferer and the
// in-flight payment flag are untouched.
func (p *Project) Restore(s State) error {
	if s.Administrator == "" {
		return fmt.Errorf("restore: administrator is required")
	}
	if !s.Phase.Valid() {
		return fmt.Errorf("restore: invalid phase %d", int(s.Phase))
	}
	var milestones [milestoneCount]bool
	for name, done := range s.Milestones {
		m, err := ParseMilestone(name)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		milestones[m] = done
	}
	pending := make(map[Identity]bool, len(s.Pending))
	for _, id := range s.Pending {
		pending[id] = true
	}
	approved := make(map[Identity]bool, len(s.Approved))
	for _, id := range s.Approved {
		if !pending[id] {
			return fmt.Errorf("restore: approved subcontractor %q was never pending", id)
		}
		approved[id] = true
	}
	disputes := make([]Dispute, len(s.Disputes))
	for i, d := range s.Disputes {
		if d.ID != i {
			return fmt.Errorf("restore: dispute at index %d has id %d", i, d.ID)
		}
		disputes[i] = d
	}

	p.administrator = s.Administrator
	p.contractor = s.Contractor
	p.regulator = s.Regulator
	p.budget = s.Budget
	p.budgetApproved = s.BudgetApproved
	p.safetyCompliant = s.SafetyCompliant
	p.phase = s.Phase
	p.initialized = s.Initialized
	p.milestones = milestones
	p.pending = pending
	p.approved = approved
	p.disputes = disputes
	return nil
}

func sortedIdentities(set map[Identity]bool) []Identity {
	out := make([]Identity, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
