package project

import "context"

// MakePayment pays amount from the budget to the recipient.
//
// The budget is decremented before the transfer. A failed transfer restores
// it and the call fails with TransferFailed. A nested MakePayment issued
// while the transfer is in flight fails with ReentrantCall and does not
// affect the outer call. PaymentMade is emitted only after the transfer
// returns.
func (p *Project) MakePayment(ctx context.Context, caller, to Identity, amount uint64) error {
	const op = "makePayment"
	if err := p.enter(op, RoleAdministrator, caller); err != nil {
		return err
	}
	if p.paying {
		return newError(op, KindReentrantCall, "payment already in progress")
	}
	if to == "" {
		return newError(op, KindInvalidArgument, "recipient identity is required")
	}
	if amount > p.budget {
		return newError(op, KindInsufficientBudget, "amount %d exceeds budget %d", amount, p.budget)
	}

	p.paying = true
	defer func() { p.paying = false }()

	p.budget -= amount
	if err := p.transferer.Transfer(ctx, to, amount); err != nil {
		p.budget += amount
		return &Error{Kind: KindTransferFailed, Op: op, Message: "transfer to " + string(to) + " failed", Err: err}
	}

	p.emit(Event{Name: EventPaymentMade, Account: to, Amount: amount})
	return nil
}

// Paying reports whether a payment transfer is in flight.
func (p *Project) Paying() bool { return p.paying }
