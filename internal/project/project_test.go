package project

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresAdministrator(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	p, err := New(admin)
	require.NoError(t, err)

	assert.Equal(t, admin, p.Administrator())
	assert.False(t, p.Initialized())
	assert.True(t, p.SafetyCompliant())
	assert.Equal(t, PreConstruction, p.Phase())
	assert.Zero(t, p.Budget())
}

func TestInitialize(t *testing.T) {
	p, err := New(admin)
	require.NoError(t, err)

	requireKind(t, p.Initialize(contractor, contractor, regulator, 1000), KindUnauthorized)
	requireKind(t, p.Initialize("", contractor, regulator, 1000), KindUnauthorized)
	requireKind(t, p.Initialize(admin, "", regulator, 1000), KindInvalidArgument)
	assert.False(t, p.Initialized())

	require.NoError(t, p.Initialize(admin, contractor, regulator, 1000))
	assert.True(t, p.Initialized())
	assert.Equal(t, contractor, p.Contractor())
	assert.Equal(t, regulator, p.Regulator())
	assert.Equal(t, uint64(1000), p.Budget())
	assert.False(t, p.BudgetApproved())

	requireKind(t, p.Initialize(admin, "X", "Y", 5), KindAlreadyInitialized)
	assert.Equal(t, contractor, p.Contractor())
}

func TestOperationsRequireInitialization(t *testing.T) {
	log := &EventLog{}
	p, err := New(admin, WithEventSink(log))
	require.NoError(t, err)

	ops := map[string]func() error{
		"approveBudget":          func() error { return p.ApproveBudget(admin, 1) },
		"completeMilestone":      func() error { return p.CompleteMilestone(admin, Foundation) },
		"changePhase":            func() error { return p.ChangePhase(admin, Construction) },
		"recordSafetyViolation":  func() error { return p.RecordSafetyViolation(admin, "x") },
		"regainSafetyCompliance": func() error { return p.RegainSafetyCompliance(admin) },
		"addPendingSubcontractor": func() error {
			return p.AddPendingSubcontractor(admin, "C")
		},
		"approveSubcontractor": func() error { return p.ApproveSubcontractor(admin, "C") },
		"openDispute": func() error {
			_, err := p.OpenDispute(admin, "x")
			return err
		},
		"resolveDispute": func() error { return p.ResolveDispute(admin, 0) },
		"makePayment":    func() error { return p.MakePayment(t.Context(), admin, "payee", 1) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			requireKind(t, op(), KindNotInitialized)
		})
	}
	assert.Empty(t, log.Events)
}

func TestGuards(t *testing.T) {
	p, _ := newTestProject(t)

	tests := []struct {
		role   string
		caller Identity
		want   bool
	}{
		{RoleAdministrator, admin, true},
		{RoleAdministrator, contractor, false},
		{RoleAdministrator, "", false},
		{RoleRegulator, regulator, true},
		{RoleRegulator, admin, false},
		{RoleContractorOrApproved, contractor, true},
		{RoleContractorOrApproved, "C", false},
		{RoleContractorOrApproved, "", false},
		{RoleAnyone, "stranger", true},
		{"unknown-role", admin, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.role, tt.caller), func(t *testing.T) {
			assert.Equal(t, tt.want, p.Guard(tt.role, tt.caller))
		})
	}

	require.NoError(t, p.AddPendingSubcontractor(contractor, "C"))
	require.NoError(t, p.ApproveSubcontractor(admin, "C"))
	assert.True(t, p.Guard(RoleContractorOrApproved, "C"))
}

func TestUnauthorizedLeavesNoTrace(t *testing.T) {
	p, log := newTestProject(t)
	before := p.State()

	requireKind(t, p.ApproveBudget(contractor, 5), KindUnauthorized)
	requireKind(t, p.ChangePhase(regulator, Construction), KindUnauthorized)
	requireKind(t, p.RecordSafetyViolation(admin, "x"), KindUnauthorized)
	requireKind(t, p.AddPendingSubcontractor(regulator, "C"), KindUnauthorized)
	requireKind(t, p.MakePayment(t.Context(), contractor, "payee", 1), KindUnauthorized)
	_, err := p.OpenDispute("stranger", "x")
	requireKind(t, err, KindUnauthorized)

	assert.Equal(t, before, p.State())
	assert.Empty(t, log.Events)
}

func TestReceiveAlwaysRejected(t *testing.T) {
	p, log := newTestProject(t)

	for _, from := range []Identity{admin, contractor, "stranger", ""} {
		err := p.Receive(from, 10)
		requireKind(t, err, KindDirectPaymentRejected)
		assert.True(t, errors.Is(err, ErrDirectPaymentRejected))
	}
	assert.Equal(t, uint64(1000), p.Budget())
	assert.Empty(t, log.Events)
}

func TestErrorMatching(t *testing.T) {
	err := newError("approveBudget", KindAlreadyApproved, "budget already approved at %d", 1000)

	assert.True(t, errors.Is(err, ErrAlreadyApproved))
	assert.False(t, errors.Is(err, ErrWrongPhase))
	assert.Equal(t, "approveBudget: AlreadyApproved: budget already approved at 1000", err.Error())

	wrapped := fmt.Errorf("engine: %w", err)
	assert.Equal(t, KindAlreadyApproved, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))

	cause := errors.New("bank offline")
	tf := &Error{Kind: KindTransferFailed, Op: "makePayment", Err: cause}
	assert.ErrorIs(t, tf, cause)
	assert.ErrorIs(t, tf, ErrTransferFailed)
}
