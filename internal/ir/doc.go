// Package ir provides the canonical intermediate representation shared by
// the buildgov engine, store and harness.
//
// This package contains type definitions and encoding helpers only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - NO float types anywhere; amounts and ids are int64
//   - SecurityContext is always a value (never a pointer) on Invocation and Completion
//   - All JSON tags use snake_case
//   - Ordering uses the logical clock (seq), never wall-clock timestamps
package ir
