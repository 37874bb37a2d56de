// Package engine is the commit substrate around the project state machine.
//
// The engine owns the only *project.Project of a store. Each request is
// validated against the compiled Project concept, applied under the caller
// identity taken from the request's security context, and committed to the
// store in one transaction: invocation, completion, notifications,
// transfers and the resulting state snapshot.
//
// # Single writer
//
// Process is serialized by a mutex. Run drains a FIFO queue fed by Submit,
// so many goroutines can submit while exactly one applies. Every record is
// stamped from a logical Clock; wall-clock time never orders events.
//
// # All or nothing
//
// The project state is snapshotted before each operation. A failed
// operation restores the snapshot and commits only the invocation and a
// completion naming the failure kind. A failed commit restores the snapshot
// and rewinds the clock, leaving no trace.
//
// # Replay
//
// Replay re-runs the log from the seq 0 snapshot and checks that every
// content-addressed id and the final state are reproduced.
package engine
