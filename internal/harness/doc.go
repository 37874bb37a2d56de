// Package harness runs YAML scenarios against a real engine.
//
// Each scenario gets a fresh project in an in-memory SQLite store. Steps are
// submitted to the engine as the identity named by "as", and the committed
// invocations, completions, notifications and transfers form the trace that
// expectations, assertions and golden files are checked against.
//
// # Scenario Format
//
//	name: budget_approval
//	description: "Budget can be approved once"
//	administrator: admin
//	flow_token: budget-flow
//	setup:
//	  - invoke: initialize
//	    as: admin
//	    args: { contractor: A, regulator: B, budget: 1000 }
//	flow:
//	  - invoke: approveBudget
//	    as: admin
//	    args: { amount: 1000 }
//	    expect:
//	      case: Success
//	      result: { budget: 1000 }
//	assertions:
//	  - type: event_contains
//	    event: BudgetApproved
//	    payload: { amount: 1000 }
//	  - type: final_state
//	    expect: { budget_approved: true }
//
// Setup steps must succeed. Flow steps are checked against their expect
// clause when one is given.
//
// # Assertion Types
//
//   - trace_contains: an invocation of action with matching args
//   - trace_order: invocations appear in the given order
//   - trace_count: action was invoked exactly count times
//   - event_contains: a notification with matching payload
//   - event_order: notifications appear in the given order
//   - event_count: a notification was emitted exactly count times
//   - final_state: the project state matches expect
//
// All matches are subset matches: keys not named are ignored.
//
// # Recipients
//
// reentrant_recipients names payees whose receiving code calls makePayment
// again while being paid; the attempt is recorded in the trace as a
// "reentry" event. failing_recipients names payees whose transfers fail.
//
// # Determinism
//
// The flow token is fixed per scenario and seqs come from the engine's
// logical clock, so the same scenario always yields the same trace.
package harness
