package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/project"
)

// handler applies one decoded invocation to the project and returns the
// Success result fields. Args have already been checked against the action
// signature, so typed lookups cannot miss.
type handler func(ctx context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error)

// handlers maps action names of the Project concept to their operations.
// Arguments that cannot be decoded into domain values are rejected with
// InvalidArgument before the project sees the call.
var handlers = map[string]handler{
	"initialize": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		budget, err := amountArg("initialize", args, "budget")
		if err != nil {
			return nil, err
		}
		err = p.Initialize(caller, identityArg(args, "contractor"), identityArg(args, "regulator"), budget)
		return ir.IRObject{}, err
	},

	"approveBudget": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		amount, err := amountArg("approveBudget", args, "amount")
		if err != nil {
			return nil, err
		}
		if err := p.ApproveBudget(caller, amount); err != nil {
			return nil, err
		}
		return ir.IRObject{"budget": ir.IRInt(p.Budget())}, nil
	},

	"completeMilestone": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		name, _ := args.GetString("milestone")
		m, err := project.ParseMilestone(name)
		if err != nil {
			return nil, invalidArgument("completeMilestone", err)
		}
		if err := p.CompleteMilestone(caller, m); err != nil {
			return nil, err
		}
		return ir.IRObject{"milestone": ir.IRString(m.String())}, nil
	},

	"recordSafetyViolation": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		reason, _ := args.GetString("reason")
		return ir.IRObject{}, p.RecordSafetyViolation(caller, reason)
	},

	"regainSafetyCompliance": func(_ context.Context, p *project.Project, caller project.Identity, _ ir.IRObject) (ir.IRObject, error) {
		return ir.IRObject{}, p.RegainSafetyCompliance(caller)
	},

	"makePayment": func(ctx context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		amount, err := amountArg("makePayment", args, "amount")
		if err != nil {
			return nil, err
		}
		if err := p.MakePayment(ctx, caller, identityArg(args, "to"), amount); err != nil {
			return nil, err
		}
		return ir.IRObject{"budget": ir.IRInt(p.Budget())}, nil
	},

	"changePhase": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		name, _ := args.GetString("phase")
		next, err := project.ParsePhase(name)
		if err != nil {
			return nil, invalidArgument("changePhase", err)
		}
		if err := p.ChangePhase(caller, next); err != nil {
			return nil, err
		}
		return ir.IRObject{"phase": ir.IRString(next.String())}, nil
	},

	"addPendingSubcontractor": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		return ir.IRObject{}, p.AddPendingSubcontractor(caller, identityArg(args, "subcontractor"))
	},

	"approveSubcontractor": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		return ir.IRObject{}, p.ApproveSubcontractor(caller, identityArg(args, "subcontractor"))
	},

	"openDispute": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		reason, _ := args.GetString("reason")
		id, err := p.OpenDispute(caller, reason)
		if err != nil {
			return nil, err
		}
		return ir.IRObject{"dispute_id": ir.IRInt(id)}, nil
	},

	"resolveDispute": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		id, _ := args.GetInt("dispute_id")
		return ir.IRObject{}, p.ResolveDispute(caller, int(id))
	},

	"receive": func(_ context.Context, p *project.Project, caller project.Identity, args ir.IRObject) (ir.IRObject, error) {
		amount, _ := args.GetInt("amount")
		return nil, p.Receive(caller, uint64(max(amount, 0)))
	},
}

// checkHandlers verifies that every action of spec has a handler and every
// handler has an action.
func checkHandlers(spec *ir.ConceptSpec) error {
	var missing, extra []string
	declared := make(map[string]bool, len(spec.Actions))
	for _, a := range spec.Actions {
		declared[a.Name] = true
		if _, ok := handlers[a.Name]; !ok {
			missing = append(missing, a.Name)
		}
	}
	for name := range handlers {
		if !declared[name] {
			extra = append(extra, name)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	slices.Sort(extra)
	return &RuntimeError{
		Code:    ErrCodeSpecMismatch,
		Message: fmt.Sprintf("concept %s: actions without handler %v, handlers without action %v", spec.Name, missing, extra),
	}
}

func identityArg(args ir.IRObject, name string) project.Identity {
	s, _ := args.GetString(name)
	return project.Identity(s)
}

func amountArg(op string, args ir.IRObject, name string) (uint64, error) {
	n, _ := args.GetInt(name)
	if n < 0 {
		return 0, &project.Error{
			Kind:    project.KindInvalidArgument,
			Op:      op,
			Message: fmt.Sprintf("%s must not be negative, got %d", name, n),
		}
	}
	return uint64(n), nil
}

// invalidArgument re-labels a decoding error with the operation it blocked.
func invalidArgument(op string, err error) error {
	msg := err.Error()
	var perr *project.Error
	if errors.As(err, &perr) {
		msg = perr.Message
	}
	return &project.Error{Kind: project.KindInvalidArgument, Op: op, Message: msg}
}
