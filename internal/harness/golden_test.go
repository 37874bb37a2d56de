package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildgov/internal/ir"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// its trace and final state with the golden file of the same name.
func TestScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestTraceSnapshot_Render(t *testing.T) {
	snapshot := &TraceSnapshot{
		ScenarioName: "render",
		FlowToken:    "f",
		Trace: []TraceEvent{
			{Type: EventInvocation, Seq: 1, Caller: "admin", ActionURI: "Project.receive", Args: ir.IRObject{"amount": ir.IRInt(5)}},
			{Type: EventTransfer, Seq: 2, To: "C", Amount: 5},
		},
	}

	data, err := snapshot.Render()
	require.NoError(t, err)
	assert.Equal(t, `{
  "flow_token": "f",
  "scenario_name": "render",
  "trace": [
    {
      "action_uri": "Project.receive",
      "args": {
        "amount": 5
      },
      "caller": "admin",
      "seq": 1,
      "type": "invocation"
    },
    {
      "amount": 5,
      "seq": 2,
      "to": "C",
      "type": "transfer"
    }
  ]
}
`, string(data))
}

func TestTraceSnapshot_OmitsEmptyFields(t *testing.T) {
	snapshot := &TraceSnapshot{
		ScenarioName: "bare",
		Trace:        []TraceEvent{{Type: EventCompletion, Seq: 2, OutputCase: "Success", Result: ir.IRObject{}}},
	}
	m := snapshot.toCanonicalMap()
	assert.NotContains(t, m, "flow_token")
	assert.NotContains(t, m, "final_state")

	event := m["trace"].([]any)[0].(map[string]any)
	assert.NotContains(t, event, "args")
	assert.NotContains(t, event, "caller")
	assert.Contains(t, event, "result")
}
