package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
administrator: owner
flow_token: flow-1
reentrant_recipients: [C]
failing_recipients: [F]
setup:
  - invoke: initialize
    as: owner
    args: { contractor: A, regulator: B, budget: 10 }
flow:
  - invoke: approveBudget
    as: owner
    args: { amount: 10 }
    expect:
      case: Success
      result: { budget: 10 }
assertions:
  - type: trace_contains
    action: approveBudget
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "owner", scenario.Administrator)
	assert.Equal(t, "flow-1", scenario.FlowToken)
	assert.Equal(t, []string{"C"}, scenario.ReentrantRecipients)
	assert.Equal(t, []string{"F"}, scenario.FailingRecipients)
	require.Len(t, scenario.Setup, 1)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "approveBudget", scenario.Flow[0].Invoke)
	assert.Equal(t, "owner", scenario.Flow[0].As)
	assert.Equal(t, 10, scenario.Flow[0].Args["amount"])
	require.NotNil(t, scenario.Flow[0].Expect)
	assert.Equal(t, "Success", scenario.Flow[0].Expect.Case)
	assert.Equal(t, 10, scenario.Flow[0].Expect.Result["budget"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_MalformedYAML(t *testing.T) {
	_, err := ParseScenario([]byte("name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_UnknownFieldsRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "misspelled field"
flow:
  - invoke: initialize
    as: admin
    args: {}
    expct:
      case: Success
assertions:
  - type: trace_count
    action: initialize
    count: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expct")
}

func TestParseScenario_Validation(t *testing.T) {
	const flow = `
flow:
  - invoke: initialize
    as: admin
    args: {}
`
	const assertions = `
assertions:
  - type: trace_count
    action: initialize
    count: 1
`
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d" + flow + assertions,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n" + flow + assertions,
			wantErr: "description is required",
		},
		{
			name:    "missing flow",
			content: "name: n\ndescription: d" + assertions,
			wantErr: "flow list is required",
		},
		{
			name:    "missing assertions",
			content: "name: n\ndescription: d" + flow,
			wantErr: "assertions list is required",
		},
		{
			name: "flow missing invoke",
			content: `name: n
description: d
flow:
  - as: admin
    args: {}
` + assertions,
			wantErr: "flow[0]: invoke is required",
		},
		{
			name: "flow missing caller",
			content: `name: n
description: d
flow:
  - invoke: initialize
    args: {}
` + assertions,
			wantErr: "flow[0]: as is required",
		},
		{
			name: "flow missing args",
			content: `name: n
description: d
flow:
  - invoke: initialize
    as: admin
` + assertions,
			wantErr: "flow[0]: args is required",
		},
		{
			name: "expect missing case",
			content: `name: n
description: d
flow:
  - invoke: initialize
    as: admin
    args: {}
    expect:
      result: { budget: 1 }
` + assertions,
			wantErr: "flow[0].expect: case is required",
		},
		{
			name: "setup with expect",
			content: `name: n
description: d
setup:
  - invoke: initialize
    as: admin
    args: {}
    expect:
      case: Success
` + flow + assertions,
			wantErr: "setup[0]: expect is not allowed",
		},
		{
			name: "unknown assertion type",
			content: `name: n
description: d` + flow + `
assertions:
  - type: trace_exists
`,
			wantErr: `unknown assertion type "trace_exists"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_AssertionFields(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
		wantErr   string
	}{
		{"trace_contains without action", "type: trace_contains", "action is required for trace_contains"},
		{"trace_order without actions", "type: trace_order", "actions list is required for trace_order"},
		{"trace_count without action", "type: trace_count", "action is required for trace_count"},
		{"trace_count negative", "{type: trace_count, action: a, count: -1}", "count must be non-negative"},
		{"event_contains without event", "type: event_contains", "event is required for event_contains"},
		{"event_order without events", "type: event_order", "events list is required for event_order"},
		{"event_count without event", "type: event_count", "event is required for event_count"},
		{"event_count negative", "{type: event_count, event: e, count: -2}", "count must be non-negative"},
		{"final_state without expect", "type: final_state", "expect is required for final_state"},
		{"missing type", "action: initialize", "type is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := `name: n
description: d
flow:
  - invoke: initialize
    as: admin
    args: {}
assertions:
  - ` + tt.assertion + "\n"
			_, err := ParseScenario([]byte(content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_ZeroCountAllowed(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: zero
description: "count zero is a valid expectation"
flow:
  - invoke: receive
    as: D
    args: { amount: 1 }
assertions:
  - type: event_count
    event: PaymentMade
    count: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 0, scenario.Assertions[0].Count)
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	names := make(map[string]string)
	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)
		if prev, dup := names[scenario.Name]; dup {
			t.Fatalf("scenario name %q used by %s and %s", scenario.Name, prev, file)
		}
		names[scenario.Name] = file
		assert.FileExists(t, filepath.Join("testdata/golden", scenario.Name+".golden"))
	}
}
