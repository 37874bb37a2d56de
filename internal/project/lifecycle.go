package project

// ApproveBudget sets the budget and marks it approved. Allowed once, during
// PreConstruction.
func (p *Project) ApproveBudget(caller Identity, amount uint64) error {
	const op = "approveBudget"
	if err := p.enter(op, RoleAdministrator, caller); err != nil {
		return err
	}
	if p.phase != PreConstruction {
		return newError(op, KindWrongPhase, "budget can only be approved in %s, phase is %s", PreConstruction, p.phase)
	}
	if p.budgetApproved {
		return newError(op, KindAlreadyApproved, "budget already approved at %d", p.budget)
	}
	p.budget = amount
	p.budgetApproved = true
	p.emit(Event{Name: EventBudgetApproved, Amount: amount})
	return nil
}

// CompleteMilestone marks m done. Allowed once per milestone, during Construction.
func (p *Project) CompleteMilestone(caller Identity, m Milestone) error {
	const op = "completeMilestone"
	if err := p.enter(op, RoleContractorOrApproved, caller); err != nil {
		return err
	}
	if !m.Valid() {
		return newError(op, KindInvalidArgument, "unknown milestone %d", int(m))
	}
	if p.phase != Construction {
		return newError(op, KindWrongPhase, "milestones can only be completed in %s, phase is %s", Construction, p.phase)
	}
	if p.milestones[m] {
		return newError(op, KindAlreadyCompleted, "milestone %s already completed", m)
	}
	p.milestones[m] = true
	p.emit(Event{Name: EventMilestoneCompleted, Milestone: m})
	return nil
}

// ChangePhase advances to next, which must be strictly later than the
// current phase. Phases may be skipped; nothing else is checked.
func (p *Project) ChangePhase(caller Identity, next Phase) error {
	const op = "changePhase"
	if err := p.enter(op, RoleAdministrator, caller); err != nil {
		return err
	}
	if !next.Valid() {
		return newError(op, KindInvalidArgument, "unknown phase %d", int(next))
	}
	if next <= p.phase {
		return newError(op, KindInvalidTransition, "cannot move from %s to %s", p.phase, next)
	}
	p.phase = next
	p.emit(Event{Name: EventPhaseChanged, Phase: next})
	return nil
}

// RecordSafetyViolation clears the safety-compliance flag.
func (p *Project) RecordSafetyViolation(caller Identity, reason string) error {
	if err := p.enter("recordSafetyViolation", RoleRegulator, caller); err != nil {
		return err
	}
	p.safetyCompliant = false
	p.emit(Event{Name: EventSafetyViolation, Reason: reason})
	return nil
}

// RegainSafetyCompliance sets the safety-compliance flag.
func (p *Project) RegainSafetyCompliance(caller Identity) error {
	if err := p.enter("regainSafetyCompliance", RoleRegulator, caller); err != nil {
		return err
	}
	p.safetyCompliant = true
	p.emit(Event{Name: EventSafetyComplianceRegained})
	return nil
}
