package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/project"
)

func runLifecycle(t *testing.T, e *Engine) {
	t.Helper()
	steps := []struct {
		caller string
		action string
		args   map[string]any
	}{
		{admin, "approveBudget", map[string]any{"amount": 900}},
		{admin, "approveBudget", map[string]any{"amount": 5}},
		{admin, "changePhase", map[string]any{"phase": "Construction"}},
		{contractor, "addPendingSubcontractor", map[string]any{"subcontractor": "electrician"}},
		{admin, "approveSubcontractor", map[string]any{"subcontractor": "electrician"}},
		{"electrician", "completeMilestone", map[string]any{"milestone": "Foundation"}},
		{regulator, "recordSafetyViolation", map[string]any{"reason": "missing railings"}},
		{admin, "makePayment", map[string]any{"to": "electrician", "amount": 300}},
		{contractor, "openDispute", map[string]any{"reason": "scope change"}},
		{admin, "resolveDispute", map[string]any{"dispute_id": 0}},
		{admin, "resolveDispute", map[string]any{"dispute_id": 0}},
		{"stranger", "receive", map[string]any{"amount": 10}},
	}
	for _, s := range steps {
		process(t, e, s.caller, s.action, s.args)
	}
}

func TestReplayReproducesLog(t *testing.T) {
	e, s := initialized(t)
	runLifecycle(t, e)

	report, err := Replay(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, report.Divergences)
	assert.Equal(t, 13, report.Invocations)
	assert.Equal(t, e.Seq(), report.Seq)
	assert.Equal(t, e.State(), report.State)
	assert.Equal(t, uint64(600), report.State.Budget)
	assert.False(t, report.State.SafetyCompliant)
}

func TestReplayEmptyLog(t *testing.T) {
	_, s := newTestEngine(t)

	report, err := Replay(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Invocations)
	assert.Equal(t, project.Identity(admin), report.State.Administrator)
}

func TestReplayWithRecipientHook(t *testing.T) {
	hook := func(ctx context.Context, p *project.Project, to project.Identity, amount uint64) error {
		// The payee opens a dispute in the same operation.
		_, err := p.OpenDispute(contractor, "paid late")
		return err
	}
	e, s := initialized(t, WithRecipientHook(hook))
	res := process(t, e, admin, "makePayment", map[string]any{"to": contractor, "amount": 10})
	require.Equal(t, ir.CaseSuccess, res.Completion.OutputCase)
	require.Len(t, res.Notifications, 2)
	assert.Equal(t, "DisputeOpened", res.Notifications[0].Name)
	assert.Equal(t, "PaymentMade", res.Notifications[1].Name)

	_, err := Replay(context.Background(), s, WithRecipientHook(hook))
	require.NoError(t, err)

	report, err := Replay(context.Background(), s)
	require.Error(t, err)
	assert.True(t, IsReplayDiverged(err))
	assert.NotEmpty(t, report.Divergences)
}

func TestReplayDetectsTamperedArgs(t *testing.T) {
	e, s := initialized(t)
	runLifecycle(t, e)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx, `
		UPDATE invocations SET args = '{"amount":950}'
		WHERE action_uri = 'Project.approveBudget' AND seq = 3
	`)
	require.NoError(t, err)

	report, err := Replay(ctx, s)
	require.Error(t, err)
	assert.True(t, IsReplayDiverged(err), "got %v", err)
	require.NotNil(t, report)

	fields := make(map[string]bool)
	for _, d := range report.Divergences {
		fields[d.Field] = true
	}
	assert.True(t, fields["invocation_id"])
	assert.True(t, fields["state"])
	assert.Equal(t, int64(3), report.Divergences[0].Seq)
}
