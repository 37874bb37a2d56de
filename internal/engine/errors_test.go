package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError_Format(t *testing.T) {
	err := &RuntimeError{Code: ErrCodeSpecMismatch, Message: "no handler for \"fly\""}
	assert.Equal(t, `SPEC_MISMATCH: no handler for "fly"`, err.Error())

	err = newCommitError("flow-1", "Project.makePayment", errors.New("disk full"))
	assert.Equal(t, "COMMIT_FAILED: store commit failed (flow=flow-1, action=Project.makePayment): disk full", err.Error())

	err = &RuntimeError{Code: ErrCodeReplayDiverged, Message: "state differs", FlowToken: "flow-2"}
	assert.Equal(t, "REPLAY_DIVERGED: state differs (flow=flow-2)", err.Error())
}

func TestRuntimeError_Helpers(t *testing.T) {
	cause := errors.New("locked")
	wrapped := fmt.Errorf("submit: %w", newCommitError("f", "a", cause))

	assert.True(t, IsCommitFailed(wrapped))
	assert.False(t, IsStopped(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	assert.True(t, IsStopped(newStoppedError()))
	assert.True(t, IsSpecMismatch(&RuntimeError{Code: ErrCodeSpecMismatch}))
	assert.True(t, IsReplayDiverged(&RuntimeError{Code: ErrCodeReplayDiverged}))
	assert.False(t, IsStopped(errors.New("plain")))
	assert.False(t, IsStopped(nil))
}
