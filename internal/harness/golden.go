package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/buildgov/internal/ir"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string
	FlowToken    string
	Trace        []TraceEvent
	State        map[string]any
}

// toCanonicalMap converts the snapshot to plain values accepted by
// ir.MarshalCanonical. Empty fields are left out.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if event.Caller != "" {
			eventMap["caller"] = event.Caller
		}
		if event.ActionURI != "" {
			eventMap["action_uri"] = event.ActionURI
		}
		if event.Args != nil {
			eventMap["args"] = event.Args
		}
		if event.OutputCase != "" {
			eventMap["output_case"] = event.OutputCase
		}
		if event.Result != nil {
			eventMap["result"] = event.Result
		}
		if event.Name != "" {
			eventMap["name"] = event.Name
		}
		if event.Payload != nil {
			eventMap["payload"] = event.Payload
		}
		if event.To != "" {
			eventMap["to"] = event.To
			eventMap["amount"] = event.Amount
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.FlowToken != "" {
		result["flow_token"] = s.FlowToken
	}
	if s.State != nil {
		result["final_state"] = s.State
	}
	return result
}

// Render encodes the snapshot as canonical JSON indented by two spaces,
// with a trailing newline.
func (s *TraceSnapshot) Render() ([]byte, error) {
	data, err := ir.MarshalCanonical(s.toCanonicalMap())
	if err != nil {
		return nil, fmt.Errorf("marshal trace: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("indent trace: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Snapshot builds the golden-file form of a result.
func Snapshot(scenario *Scenario, result *Result) (*TraceSnapshot, error) {
	state, err := stateMap(result.State)
	if err != nil {
		return nil, err
	}
	return &TraceSnapshot{
		ScenarioName: scenario.Name,
		FlowToken:    scenario.FlowToken,
		Trace:        result.Trace,
		State:        state,
	}, nil
}

// RunWithGolden executes a scenario and compares its trace and final state
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the scenario's golden
// file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}
	data, err := snapshot.Render()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
