package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/project"
)

// AssertionContext carries what assertions need beyond the trace.
type AssertionContext struct {
	// Concept qualifies bare action names ("approveBudget").
	Concept string

	// State is the final project state keyed by JSON field name.
	State map[string]any
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) == 0 {
		return buf.String()
	}
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		switch event.Type {
		case EventInvocation:
			fmt.Fprintf(&buf, "  [%d] %s as %s %v\n", event.Seq, event.ActionURI, event.Caller, ir.ToAny(event.Args))
		case EventCompletion:
			fmt.Fprintf(&buf, "  [%d]   -> %s\n", event.Seq, event.OutputCase)
		case EventNotification:
			fmt.Fprintf(&buf, "  [%d]   ! %s %v\n", event.Seq, event.Name, ir.ToAny(event.Payload))
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s) failed: %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(trace, a, actx.Concept)
	case AssertTraceOrder:
		return assertTraceOrder(trace, a, actx.Concept)
	case AssertTraceCount:
		return assertTraceCount(trace, a, actx.Concept)
	case AssertEventContains:
		return assertEventContains(trace, a)
	case AssertEventOrder:
		return assertEventOrder(trace, a)
	case AssertEventCount:
		return assertEventCount(trace, a)
	case AssertFinalState:
		return assertFinalState(actx.State, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that some invocation of the action has args
// matching the expected subset.
func assertTraceContains(trace []TraceEvent, a Assertion, concept string) error {
	action := string(ir.QualifyAction(concept, a.Action))
	expected, err := normalize(a.Args)
	if err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	for _, event := range trace {
		if event.Type != EventInvocation || event.ActionURI != action {
			continue
		}
		if matchSubset(expected, ir.ToAny(event.Args)) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", action, expected),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the actions were invoked in the given order.
// Other invocations may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion, concept string) error {
	want := make([]string, len(a.Actions))
	for i, name := range a.Actions {
		want[i] = string(ir.QualifyAction(concept, name))
	}
	var seen []string
	for _, event := range trace {
		if event.Type == EventInvocation {
			seen = append(seen, event.ActionURI)
		}
	}
	if missing, ok := subsequence(want, seen); !ok {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("actions in order: %v", want),
			Actual:   fmt.Sprintf("%s not found after %v", missing, want[:indexOf(want, missing)]),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks that the action was invoked exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion, concept string) error {
	action := string(ir.QualifyAction(concept, a.Action))
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.ActionURI == action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventContains checks that a notification with the name and a
// matching payload was committed.
func assertEventContains(trace []TraceEvent, a Assertion) error {
	expected, err := normalize(a.Payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	for _, event := range trace {
		if event.Type != EventNotification || event.Name != a.Event {
			continue
		}
		if matchSubset(expected, ir.ToAny(event.Payload)) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("notification %s with payload %v", a.Event, expected),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertEventOrder checks that the notifications were committed in the
// given order. Other notifications may come in between.
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	var seen []string
	for _, event := range trace {
		if event.Type == EventNotification {
			seen = append(seen, event.Name)
		}
	}
	if missing, ok := subsequence(a.Events, seen); !ok {
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: fmt.Sprintf("notifications in order: %v", a.Events),
			Actual:   fmt.Sprintf("%s not found after %v", missing, a.Events[:indexOf(a.Events, missing)]),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventCount checks that the notification was committed exactly Count
// times.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventNotification && event.Name == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the expected fields against the final state.
func assertFinalState(state map[string]any, a Assertion) error {
	expected, err := normalize(a.Expect)
	if err != nil {
		return fmt.Errorf("invalid expect: %w", err)
	}
	for _, key := range sortedKeys(expected) {
		actual, ok := state[key]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("fields: %v", sortedKeys(state)),
			}
		}
		if !matchSubset(expected[key], actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, expected[key]),
				Actual:   fmt.Sprintf("field %q = %v", key, actual),
			}
		}
	}
	return nil
}

// subsequence reports whether want appears in seen in order. If not, it
// returns the first element of want that could not be matched.
func subsequence(want, seen []string) (string, bool) {
	i := 0
	for _, s := range seen {
		if i < len(want) && s == want[i] {
			i++
		}
	}
	if i == len(want) {
		return "", true
	}
	return want[i], false
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}

// normalize converts decoded YAML or JSON into the value forms produced by
// ir.ToAny, so integers compare as int64 whatever their source.
func normalize(m map[string]any) (map[string]any, error) {
	obj, err := ir.ObjectFromMap(m)
	if err != nil {
		return nil, err
	}
	return ir.ToAny(obj).(map[string]any), nil
}

// matchSubset reports whether actual contains expected. Objects match when
// every expected key matches; arrays match element-wise with equal length.
func matchSubset(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range exp {
			av, ok := act[k]
			if !ok || !matchSubset(v, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchSubset(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(expected, actual)
	}
}

// stateMap renders the project state as normalized JSON values.
func stateMap(s project.State) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return normalize(raw)
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
