// Package engine is the public surface of the undo/redo system: capture,
// undo and redo, scoped per entity key.
//
// ARCHITECTURE:
//
// Synchronous, request-driven. The engine runs no background goroutines -
// every call completes within the caller's unit of work, blocking only on
// the action log's storage I/O and locking.
//
// Capture flow:
//  1. Capture() opens a Session for a key (one open session per key;
//     concurrent captures on the same key serialize on a per-key lock)
//  2. the host performs its mutations and feeds each one to
//     Session.Observe, which records it as an invertible operation
//  3. Commit() wraps the pending operations into one group and appends it
//     to the undo stack, clearing the redo stack, in a single log
//     transaction; Abort() (or an unsupported event) discards everything
//
// Undo/redo flow:
//
// Both directions follow one symmetric rule. Pop the head group, execute
// its mirror (every operation inverted, in reverse order) front to back via
// the caller's executor, and push the mirror onto the opposite stack. For
// undo that runs the inverses newest-effect-first; for redo - because the
// stored group is itself a mirror - it re-runs the original forward
// operations in forward order.
//
// Pop, execution and push share one log transaction. A statement failure
// mid-group rolls the transaction back, leaving both stacks exactly as
// before the call, and surfaces a ReplayExecutionError naming the failing
// operation. Undo or redo on an empty stack is a normal no-op returning
// the unchanged counts.
package engine
