package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildgov/internal/ir"
)

func seedLog(t *testing.T, s *Store) {
	t.Helper()
	ctx := t.Context()

	r1 := testRecord("inv-a", "flow-1", "Project.approveBudget", ir.CaseSuccess, 1)
	r1.Notifications = []ir.Notification{
		{ID: "n-a", InvocationID: "inv-a", Name: "BudgetApproved", Payload: ir.IRObject{"amount": ir.IRInt(1000)}, Seq: 2},
	}
	r1.State = []byte(`{"step":1}`)

	r2 := testRecord("inv-b", "flow-2", "Project.changePhase", ir.CaseSuccess, 3)
	r2.Notifications = []ir.Notification{
		{ID: "n-b", InvocationID: "inv-b", Name: "PhaseChanged", Payload: ir.IRObject{"phase": ir.IRString("Construction")}, Seq: 4},
	}
	r2.State = []byte(`{"step":2}`)

	r3 := testRecord("inv-c", "flow-1", "Project.approveBudget", "AlreadyApproved", 5)

	for _, r := range []Record{r1, r2, r3} {
		require.NoError(t, s.Commit(ctx, r))
	}
}

func TestReadAllOrdered(t *testing.T) {
	s := createTestStore(t)
	seedLog(t, s)
	ctx := t.Context()

	invs, err := s.ReadAllInvocations(ctx)
	require.NoError(t, err)
	require.Len(t, invs, 3)
	assert.Equal(t, []string{"inv-a", "inv-b", "inv-c"}, []string{invs[0].ID, invs[1].ID, invs[2].ID})

	comps, err := s.ReadAllCompletions(ctx)
	require.NoError(t, err)
	require.Len(t, comps, 3)
	assert.Equal(t, "AlreadyApproved", comps[2].OutputCase)
	assert.Equal(t, []string{"administrator"}, comps[0].SecurityContext.Permissions)
}

func TestReadFlow(t *testing.T) {
	s := createTestStore(t)
	seedLog(t, s)

	invs, comps, err := s.ReadFlow(t.Context(), "flow-1")
	require.NoError(t, err)
	assert.Len(t, invs, 2)
	assert.Len(t, comps, 2)

	invs, comps, err = s.ReadFlow(t.Context(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, invs)
	assert.Empty(t, invs)
	assert.Empty(t, comps)
}

func TestReadNotificationsFilter(t *testing.T) {
	s := createTestStore(t)
	seedLog(t, s)
	ctx := t.Context()

	all, err := s.ReadNotifications(ctx, NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	named, err := s.ReadNotifications(ctx, NotificationFilter{Name: "PhaseChanged"})
	require.NoError(t, err)
	require.Len(t, named, 1)
	phase, _ := named[0].Payload.GetString("phase")
	assert.Equal(t, "Construction", phase)

	after, err := s.ReadNotifications(ctx, NotificationFilter{AfterSeq: 2})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "n-b", after[0].ID)

	limited, err := s.ReadNotifications(ctx, NotificationFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "n-a", limited[0].ID)
}

func TestReadMissing(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	_, err := s.ReadInvocation(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = s.ReadCompletion(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, _, err = s.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNoProject)
	_, err = s.InitialSnapshot(ctx)
	assert.ErrorIs(t, err, ErrNoProject)
}

func TestLastSeqAndSnapshots(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, s.CreateProject(ctx, ProjectHeader{Administrator: "admin"}, []byte(`{"step":0}`)))
	seedLog(t, s)

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), seq)

	snapSeq, state, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), snapSeq)
	assert.Equal(t, `{"step":2}`, string(state))

	initial, err := s.InitialSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"step":0}`, string(initial))
}

func TestListFlowTokens(t *testing.T) {
	s := createTestStore(t)
	seedLog(t, s)

	tokens, err := s.ListFlowTokens(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"flow-1", "flow-2"}, tokens)
}

func TestLargeIntegersRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	rec := testRecord("inv-big", "f", "Project.approveBudget", ir.CaseSuccess, 1)
	rec.Invocation.Args = ir.IRObject{"amount": ir.IRInt(9007199254740993)}
	require.NoError(t, s.Commit(ctx, rec))

	inv, err := s.ReadInvocation(ctx, "inv-big")
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(9007199254740993), inv.Args["amount"])
}
