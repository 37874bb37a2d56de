package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventfulProjectDB(t *testing.T) string {
	t.Helper()
	db := newFundedProjectDB(t)
	mustInvoke(t, db, "admin", "makePayment", `{"to":"dave","amount":100}`)
	mustInvoke(t, db, "admin", "makePayment", `{"to":"erin","amount":250}`)
	mustInvoke(t, db, "bob", "openDispute", `{"reason":"late delivery"}`)
	return db
}

func TestEventsAll(t *testing.T) {
	db := newEventfulProjectDB(t)

	out, _, err := execute(t, "", "events", "--db", db, "--format", "json")
	require.NoError(t, err)

	var result EventsResult
	decodeResponse(t, out, &result)
	require.Equal(t, 4, result.Count)

	names := make([]string, len(result.Events))
	for i, e := range result.Events {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"BudgetApproved", "PaymentMade", "PaymentMade", "DisputeOpened"}, names)
	assert.Equal(t, []int64{4, 6, 8, 10}, []int64{
		result.Events[0].Seq, result.Events[1].Seq, result.Events[2].Seq, result.Events[3].Seq,
	})
}

func TestEventsFilters(t *testing.T) {
	db := newEventfulProjectDB(t)

	tests := []struct {
		name      string
		args      []string
		wantSeqs  []int64
		wantNames []string
	}{
		{"by_name", []string{"--name", "PaymentMade"}, []int64{6, 8}, []string{"PaymentMade", "PaymentMade"}},
		{"after", []string{"--after", "6"}, []int64{8, 10}, []string{"PaymentMade", "DisputeOpened"}},
		{"limit", []string{"--limit", "1"}, []int64{4}, []string{"BudgetApproved"}},
		{"combined", []string{"--name", "PaymentMade", "--after", "4", "--limit", "1"}, []int64{6}, []string{"PaymentMade"}},
		{"no_match", []string{"--name", "PhaseChanged"}, []int64{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"events", "--db", db, "--format", "json"}, tt.args...)
			out, _, err := execute(t, "", args...)
			require.NoError(t, err)

			var result EventsResult
			decodeResponse(t, out, &result)
			seqs := []int64{}
			names := []string{}
			for _, e := range result.Events {
				seqs = append(seqs, e.Seq)
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.wantSeqs, seqs)
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestEventsText(t *testing.T) {
	db := newEventfulProjectDB(t)

	out, _, err := execute(t, "", "events", "--db", db, "--name", "DisputeOpened")
	require.NoError(t, err)
	assert.Contains(t, out, "[10] DisputeOpened")
	assert.Contains(t, out, "late delivery")

	out, _, err = execute(t, "", "events", "--db", db, "--name", "PhaseChanged")
	require.NoError(t, err)
	assert.Equal(t, "No notifications\n", out)
}

func TestEventsNegativeLimit(t *testing.T) {
	db := newProjectDB(t)

	_, _, err := execute(t, "", "events", "--db", db, "--limit", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
