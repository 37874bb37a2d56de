package project

// Identity is an opaque caller or party identifier. The zero value never
// satisfies a guard.
type Identity string

// Role names accepted by Guard and declared in the concept definition.
const (
	RoleAdministrator        = "administrator"
	RoleRegulator            = "regulator"
	RoleContractorOrApproved = "contractor_or_approved_subcontractor"
	RoleAnyone               = "anyone"
)

func (p *Project) isAdministrator(caller Identity) bool {
	return caller != "" && caller == p.administrator
}

func (p *Project) isRegulator(caller Identity) bool {
	return caller != "" && caller == p.regulator
}

func (p *Project) isContractorOrApproved(caller Identity) bool {
	if caller == "" {
		return false
	}
	return caller == p.contractor || p.approved[caller]
}

// Guard reports whether caller satisfies the named role.
func (p *Project) Guard(role string, caller Identity) bool {
	switch role {
	case RoleAdministrator:
		return p.isAdministrator(caller)
	case RoleRegulator:
		return p.isRegulator(caller)
	case RoleContractorOrApproved:
		return p.isContractorOrApproved(caller)
	case RoleAnyone:
		return true
	default:
		return false
	}
}

// enter runs the checks shared by every operation after initialize.
func (p *Project) enter(op, role string, caller Identity) error {
	if !p.initialized {
		return newError(op, KindNotInitialized, "project is not initialized")
	}
	if !p.Guard(role, caller) {
		return newError(op, KindUnauthorized, "caller %q is not %s", caller, role)
	}
	return nil
}
