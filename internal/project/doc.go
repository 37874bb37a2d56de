// Package project implements the construction-project governance state
// machine: access guards, phase and milestone transitions, safety
// compliance, the subcontractor registry, the dispute ledger and budget
// custody.
//
// The package does no I/O. Callers supply the caller identity on every
// operation, an EventSink for notifications and a Transferer for payouts.
// A Project is not safe for concurrent use; the engine is its single writer.
//
// Every operation checks, in order: initialization, the caller guard, then
// argument and state preconditions. A failed operation leaves state
// unchanged and emits nothing.
package project
