package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcontractorVetting(t *testing.T) {
	p, log := newTestProject(t)

	require.NoError(t, p.AddPendingSubcontractor(contractor, "C"))
	assert.True(t, p.IsPending("C"))
	assert.False(t, p.IsApproved("C"))

	require.NoError(t, p.ApproveSubcontractor(admin, "C"))
	assert.True(t, p.IsApproved("C"))
	assert.True(t, p.IsPending("C"), "pending flag is kept after approval")

	requireKind(t, p.ApproveSubcontractor(admin, "D"), KindNotPending)
	assert.False(t, p.IsApproved("D"))

	assert.Equal(t, []EventName{EventSubcontractorPending, EventSubcontractorApproved}, log.Names())
	assert.Equal(t, map[string]any{"subcontractor": "C"}, log.Events[1].Payload())
}

func TestAddPendingIsIdempotentButNotifies(t *testing.T) {
	p, log := newTestProject(t)

	require.NoError(t, p.AddPendingSubcontractor(contractor, "C"))
	require.NoError(t, p.AddPendingSubcontractor(contractor, "C"))

	assert.Equal(t, []Identity{"C"}, p.State().Pending)
	assert.Equal(t, []EventName{EventSubcontractorPending, EventSubcontractorPending}, log.Names())
}

func TestApprovedSubcontractorMayAddPending(t *testing.T) {
	p, _ := newTestProject(t)
	require.NoError(t, p.AddPendingSubcontractor(contractor, "C"))
	require.NoError(t, p.ApproveSubcontractor(admin, "C"))

	require.NoError(t, p.AddPendingSubcontractor("C", "E"))
	assert.True(t, p.IsPending("E"))

	requireKind(t, p.AddPendingSubcontractor("E", "F"), KindUnauthorized)
	requireKind(t, p.AddPendingSubcontractor(contractor, ""), KindInvalidArgument)
}

func TestApproveRequiresAdministrator(t *testing.T) {
	p, _ := newTestProject(t)
	require.NoError(t, p.AddPendingSubcontractor(contractor, "C"))

	requireKind(t, p.ApproveSubcontractor(contractor, "C"), KindUnauthorized)
	assert.False(t, p.IsApproved("C"))
}
