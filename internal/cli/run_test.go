package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildgov/internal/config"
	"github.com/roach88/buildgov/internal/testutil"
)

func decodeReplies(t *testing.T, out string) []SessionReply {
	t.Helper()
	var replies []SessionReply
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var r SessionReply
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r), "line: %s", scanner.Text())
		replies = append(replies, r)
	}
	require.NoError(t, scanner.Err())
	return replies
}

func TestRunSession(t *testing.T) {
	db := newProjectDB(t)
	input := strings.Join([]string{
		`{"action":"initialize","as":"admin","args":{"contractor":"bob","regulator":"carol","budget":900}}`,
		``,
		`{"action":"Project.approveBudget","as":"admin","args":{"amount":900},"flow":"budget-flow"}`,
		`not json`,
		`{"action":"makePayment","as":"bob","args":{"to":"bob","amount":5}}`,
		`{"action":"makePayment","as":"admin","args":{"to":"dave","amount":1.5}}`,
		`{"as":"admin"}`,
		`{"action":"makePayment","as":"admin","args":{"to":"dave","amount":400}}`,
	}, "\n") + "\n"

	out, _, err := execute(t, input, "run", "--db", db)
	require.NoError(t, err)

	replies := decodeReplies(t, out)
	require.Len(t, replies, 7)

	lines := make([]int, len(replies))
	for i, r := range replies {
		lines[i] = r.Line
	}
	assert.Equal(t, []int{1, 3, 4, 5, 6, 7, 8}, lines)

	require.NotNil(t, replies[0].Completion)
	assert.Equal(t, "Success", replies[0].Completion.OutputCase)

	require.NotNil(t, replies[1].Completion)
	assert.Equal(t, "budget-flow", replies[1].Completion.FlowToken)

	assert.Nil(t, replies[2].Completion)
	assert.Contains(t, replies[2].Error, "invalid request")

	require.NotNil(t, replies[3].Completion)
	assert.Equal(t, "Unauthorized", replies[3].Completion.OutputCase)

	assert.Contains(t, replies[4].Error, "invalid request args")
	assert.Contains(t, replies[5].Error, "action is required")

	last := replies[6].Completion
	require.NotNil(t, last)
	assert.Equal(t, "Success", last.OutputCase)
	assert.Equal(t, []TransferView{{To: "dave", Amount: 400}}, last.Transfers)

	// Only well-formed requests reach the log.
	var state StateResult
	out, _, err = execute(t, "", "state", "--db", db, "--format", "json")
	require.NoError(t, err)
	decodeResponse(t, out, &state)
	assert.Equal(t, int64(8), state.Seq)
	assert.Equal(t, uint64(500), state.State.Budget)
}

func TestRunSessionEmptyInput(t *testing.T) {
	db := newProjectDB(t)

	out, _, err := execute(t, "", "run", "--db", db)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunSessionFlowGenerator(t *testing.T) {
	db := newProjectDB(t)

	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(`{"action":"initialize","as":"admin","args":{"contractor":"bob","regulator":"carol","budget":1}}` + "\n"))
	cmd.SetContext(context.Background())

	cfg := config.DefaultConfig()
	cfg.Database = db
	opts := &RunOptions{
		RootOptions:   &RootOptions{Format: "text", Config: cfg},
		FlowGenerator: testutil.NewFixedFlowGenerator("fixed-session"),
	}
	require.NoError(t, runSession(opts, cmd))

	replies := decodeReplies(t, out.String())
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Completion)
	assert.Equal(t, "fixed-session", replies[0].Completion.FlowToken)
}

func TestParseSessionRequest(t *testing.T) {
	req, err := parseSessionRequest([]byte(`{"action":"openDispute","as":"bob","args":{"reason":"noise"},"flow":"f1"}`))
	require.NoError(t, err)
	assert.Equal(t, "openDispute", req.Action)
	assert.Equal(t, "bob", req.SecurityContext.UserID)
	assert.Equal(t, "f1", req.FlowToken)
	reason, _ := req.Args.GetString("reason")
	assert.Equal(t, "noise", reason)

	req, err = parseSessionRequest([]byte(`{"action":"regainSafetyCompliance","as":"carol"}`))
	require.NoError(t, err)
	assert.NotNil(t, req.Args)
	assert.Empty(t, req.Args)
}
