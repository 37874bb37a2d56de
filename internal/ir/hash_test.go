package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocationIDDeterminism(t *testing.T) {
	args := IRObject{"amount": IRInt(500)}

	id1, err := InvocationID("flow-1", "Project.approveBudget", args, 1)
	require.NoError(t, err)
	id2, err := InvocationID("flow-1", "Project.approveBudget", args, 1)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestInvocationIDChangesWithInput(t *testing.T) {
	args := IRObject{"amount": IRInt(500)}

	id1 := MustInvocationID("flow-1", "Project.approveBudget", args, 1)
	id2 := MustInvocationID("flow-2", "Project.approveBudget", args, 1)
	id3 := MustInvocationID("flow-1", "Project.approveBudget", args, 2)
	id4 := MustInvocationID("flow-1", "Project.makePayment", args, 1)
	id5 := MustInvocationID("flow-1", "Project.approveBudget", IRObject{"amount": IRInt(501)}, 1)

	ids := map[string]bool{id1: true, id2: true, id3: true, id4: true, id5: true}
	assert.Len(t, ids, 5)
}

func TestDomainSeparation(t *testing.T) {
	inv, err := InvocationID("f", "Project.receive", IRObject{}, 1)
	require.NoError(t, err)
	comp, err := CompletionID("f", "Project.receive", IRObject{}, 1)
	require.NoError(t, err)
	assert.NotEqual(t, inv, comp)
}

func TestNotificationAndTransferIDs(t *testing.T) {
	n0, err := NotificationID("inv", "PaymentMade", IRObject{"amount": IRInt(1)}, 0)
	require.NoError(t, err)
	n1, err := NotificationID("inv", "PaymentMade", IRObject{"amount": IRInt(1)}, 1)
	require.NoError(t, err)
	assert.NotEqual(t, n0, n1)

	t1, err := TransferID("inv", "payee", 10, 3)
	require.NoError(t, err)
	t2, err := TransferID("inv", "payee", 10, 3)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
}

func TestSpecHashStable(t *testing.T) {
	spec := ConceptSpec{Name: "Project", Actions: []ActionSig{paymentSig()}}
	h1, err := SpecHash(spec)
	require.NoError(t, err)
	h2, err := SpecHash(spec)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	spec.Actions[0].Requires = []string{"regulator"}
	h3, err := SpecHash(spec)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
