package project

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of a failed operation.
type Kind string

// Error kinds.
const (
	KindUnauthorized          Kind = "Unauthorized"
	KindWrongPhase            Kind = "WrongPhase"
	KindAlreadyApproved       Kind = "AlreadyApproved"
	KindAlreadyCompleted      Kind = "AlreadyCompleted"
	KindInvalidTransition     Kind = "InvalidTransition"
	KindNotPending            Kind = "NotPending"
	KindInvalidID             Kind = "InvalidId"
	KindAlreadyResolved       Kind = "AlreadyResolved"
	KindInsufficientBudget    Kind = "InsufficientBudget"
	KindReentrantCall         Kind = "ReentrantCall"
	KindDirectPaymentRejected Kind = "DirectPaymentRejected"
	KindNotInitialized        Kind = "NotInitialized"
	KindAlreadyInitialized    Kind = "AlreadyInitialized"
	KindInvalidArgument       Kind = "InvalidArgument"
	KindTransferFailed        Kind = "TransferFailed"
)

// Kinds lists every error kind in declaration order.
var Kinds = []Kind{
	KindUnauthorized,
	KindWrongPhase,
	KindAlreadyApproved,
	KindAlreadyCompleted,
	KindInvalidTransition,
	KindNotPending,
	KindInvalidID,
	KindAlreadyResolved,
	KindInsufficientBudget,
	KindReentrantCall,
	KindDirectPaymentRejected,
	KindNotInitialized,
	KindAlreadyInitialized,
	KindInvalidArgument,
	KindTransferFailed,
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrUnauthorized          = &Error{Kind: KindUnauthorized}
	ErrWrongPhase            = &Error{Kind: KindWrongPhase}
	ErrAlreadyApproved       = &Error{Kind: KindAlreadyApproved}
	ErrAlreadyCompleted      = &Error{Kind: KindAlreadyCompleted}
	ErrInvalidTransition     = &Error{Kind: KindInvalidTransition}
	ErrNotPending            = &Error{Kind: KindNotPending}
	ErrInvalidID             = &Error{Kind: KindInvalidID}
	ErrAlreadyResolved       = &Error{Kind: KindAlreadyResolved}
	ErrInsufficientBudget    = &Error{Kind: KindInsufficientBudget}
	ErrReentrantCall         = &Error{Kind: KindReentrantCall}
	ErrDirectPaymentRejected = &Error{Kind: KindDirectPaymentRejected}
	ErrNotInitialized        = &Error{Kind: KindNotInitialized}
	ErrAlreadyInitialized    = &Error{Kind: KindAlreadyInitialized}
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrTransferFailed        = &Error{Kind: KindTransferFailed}
)

// Error is returned by every failed project operation.
type Error struct {
	Kind    Kind
	Op      string // operation name, e.g. "makePayment"
	Message string
	Err     error // underlying cause, set for TransferFailed
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}
