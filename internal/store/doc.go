// Package store provides SQLite-backed durable storage for the buildgov
// audit log.
//
// The store is append-only:
//   - project: the singleton project header (administrator, spec hash)
//   - invocations: every submitted action, successful or not
//   - completions: exactly one per invocation
//   - notifications: events emitted by successful completions
//   - transfers: value paid out of budget custody
//   - snapshots: full project state after each successful completion
//
// Commit writes one invocation with everything it produced in a single
// transaction, so a crash never leaves a completion without its
// notifications, transfers and snapshot.
//
// Ordering uses seq (the engine's logical clock), never wall time. Every
// query orders by seq ASC, id COLLATE BINARY ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
