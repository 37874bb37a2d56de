package engine

import (
	"errors"
	"fmt"
)

// Output cases produced by the engine itself, before an invocation reaches
// the project.
const (
	CaseUnknownAction = "UnknownAction"
	CaseInvalidArgs   = "InvalidArgs"
)

// RuntimeError is an engine failure that is not an operation outcome.
// Operation failures (WrongPhase, Unauthorized, ...) are recorded as
// completions; a RuntimeError means nothing was recorded.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// FlowToken identifies the affected flow, if any.
	FlowToken string

	// Action is the action URI being processed, if any.
	Action string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStopped indicates a request was submitted after Stop.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"

	// ErrCodeSpecMismatch indicates the compiled concept and the engine's
	// action table (or the store's recorded spec hash) disagree.
	ErrCodeSpecMismatch RuntimeErrorCode = "SPEC_MISMATCH"

	// ErrCodeCommitFailed indicates the store rejected a commit.
	ErrCodeCommitFailed RuntimeErrorCode = "COMMIT_FAILED"

	// ErrCodeReplayDiverged indicates replaying the log did not reproduce
	// the recorded outcomes or state.
	ErrCodeReplayDiverged RuntimeErrorCode = "REPLAY_DIVERGED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.FlowToken != "" && e.Action != "" {
		msg += fmt.Sprintf(" (flow=%s, action=%s)", e.FlowToken, e.Action)
	} else if e.FlowToken != "" {
		msg += fmt.Sprintf(" (flow=%s)", e.FlowToken)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsStopped reports whether err is an ErrCodeStopped runtime error.
func IsStopped(err error) bool { return hasCode(err, ErrCodeStopped) }

// IsSpecMismatch reports whether err is an ErrCodeSpecMismatch runtime error.
func IsSpecMismatch(err error) bool { return hasCode(err, ErrCodeSpecMismatch) }

// IsCommitFailed reports whether err is an ErrCodeCommitFailed runtime error.
func IsCommitFailed(err error) bool { return hasCode(err, ErrCodeCommitFailed) }

// IsReplayDiverged reports whether err is an ErrCodeReplayDiverged runtime error.
func IsReplayDiverged(err error) bool { return hasCode(err, ErrCodeReplayDiverged) }

func newStoppedError() *RuntimeError {
	return &RuntimeError{Code: ErrCodeStopped, Message: "engine is stopped"}
}

func newCommitError(flowToken, action string, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeCommitFailed,
		Message:   "store commit failed",
		FlowToken: flowToken,
		Action:    action,
		Err:       err,
	}
}
