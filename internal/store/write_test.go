package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildgov/internal/ir"
)

func TestCreateProject(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	_, err := s.ReadProject(ctx)
	require.ErrorIs(t, err, ErrNoProject)

	header := ProjectHeader{Administrator: "admin", SpecHash: "h", EngineVersion: "0.1.0"}
	require.NoError(t, s.CreateProject(ctx, header, []byte(`{"budget":0}`)))

	got, err := s.ReadProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, header, got)

	seq, state, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, seq)
	assert.JSONEq(t, `{"budget":0}`, string(state))

	err = s.CreateProject(ctx, header, []byte(`{}`))
	require.ErrorIs(t, err, ErrProjectExists)
}

func TestCommitWritesEverything(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	rec := testRecord("inv-1", "flow-1", "Project.makePayment", ir.CaseSuccess, 1)
	rec.Completion.Result = ir.IRObject{"budget": ir.IRInt(600)}
	rec.Notifications = []ir.Notification{{
		ID:           "n-1",
		InvocationID: "inv-1",
		Name:         "PaymentMade",
		Payload:      ir.IRObject{"to": ir.IRString("payee"), "amount": ir.IRInt(400)},
		Index:        0,
		Seq:          2,
	}}
	rec.Transfers = []ir.Transfer{{ID: "t-1", InvocationID: "inv-1", To: "payee", Amount: 400, Seq: 2}}
	rec.State = []byte(`{"budget":600}`)

	require.NoError(t, s.Commit(ctx, rec))

	inv, err := s.ReadInvocation(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Invocation, inv)

	comp, err := s.ReadCompletionFor(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Completion, comp)

	notes, err := s.ReadNotificationsFor(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Notifications, notes)

	transfers, err := s.ReadTransfers(ctx, TransferFilter{})
	require.NoError(t, err)
	assert.Equal(t, rec.Transfers, transfers)

	seq, state, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
	assert.Equal(t, `{"budget":600}`, string(state))
}

func TestCommitIsAtomic(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	rec := testRecord("inv-1", "flow-1", "Project.makePayment", ir.CaseSuccess, 1)
	rec.Notifications = []ir.Notification{
		{ID: "n-1", InvocationID: "inv-1", Name: "PaymentMade", Payload: ir.IRObject{}, Index: 0, Seq: 2},
		// Duplicate idx violates UNIQUE(invocation_id, idx).
		{ID: "n-2", InvocationID: "inv-1", Name: "PaymentMade", Payload: ir.IRObject{}, Index: 0, Seq: 2},
	}

	require.Error(t, s.Commit(ctx, rec))

	_, err := s.ReadInvocation(ctx, "inv-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	comps, err := s.ReadAllCompletions(ctx)
	require.NoError(t, err)
	assert.Empty(t, comps)
	notes, err := s.ReadNotifications(ctx, NotificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestCommitRejectsSecondCompletion(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Commit(ctx, testRecord("inv-1", "f", "Project.receive", "DirectPaymentRejected", 1)))

	dup := testRecord("inv-1", "f", "Project.receive", "DirectPaymentRejected", 1)
	assert.Error(t, s.Commit(ctx, dup))
}

func TestCommitRejectsNegativeTransfer(t *testing.T) {
	s := createTestStore(t)

	rec := testRecord("inv-1", "f", "Project.makePayment", ir.CaseSuccess, 1)
	rec.Transfers = []ir.Transfer{{ID: "t", InvocationID: "inv-1", To: "x", Amount: -1, Seq: 2}}
	assert.Error(t, s.Commit(t.Context(), rec))
}

func TestCommitFailedCompletionWithoutSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()
	require.NoError(t, s.CreateProject(ctx, ProjectHeader{Administrator: "admin"}, []byte(`{"v":0}`)))

	rec := testRecord("inv-1", "f", "Project.approveBudget", "Unauthorized", 1)
	rec.Completion.Result = ir.IRObject{"message": ir.IRString("caller is not administrator")}
	require.NoError(t, s.Commit(ctx, rec))

	seq, state, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, seq)
	assert.Equal(t, `{"v":0}`, string(state))
}
