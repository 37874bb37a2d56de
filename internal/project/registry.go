package project

// AddPendingSubcontractor records id as pending. Repeat adds are accepted and
// notify again.
func (p *Project) AddPendingSubcontractor(caller, id Identity) error {
	const op = "addPendingSubcontractor"
	if err := p.enter(op, RoleContractorOrApproved, caller); err != nil {
		return err
	}
	if id == "" {
		return newError(op, KindInvalidArgument, "subcontractor identity is required")
	}
	p.pending[id] = true
	p.emit(Event{Name: EventSubcontractorPending, Account: id})
	return nil
}

// ApproveSubcontractor approves a pending subcontractor. The pending flag is
// kept.
func (p *Project) ApproveSubcontractor(caller, id Identity) error {
	const op = "approveSubcontractor"
	if err := p.enter(op, RoleAdministrator, caller); err != nil {
		return err
	}
	if !p.pending[id] {
		return newError(op, KindNotPending, "subcontractor %q is not pending", id)
	}
	p.approved[id] = true
	p.emit(Event{Name: EventSubcontractorApproved, Account: id})
	return nil
}

// IsPending reports whether id was ever added as pending.
func (p *Project) IsPending(id Identity) bool { return p.pending[id] }

// IsApproved reports whether id has been approved.
func (p *Project) IsApproved(id Identity) bool { return p.approved[id] }
