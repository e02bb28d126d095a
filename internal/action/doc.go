// Package action defines the value types of the undo/redo engine: row-level
// operations, their grouping into atomic action groups, and the pure inverse
// derivation that turns a forward operation into the operation that undoes it.
//
// Core types:
//   - EntityKey: identifies one undo/redo history line (object type + id)
//   - RowValues: ordered column→value snapshot of a row (or part of one)
//   - Operation: one invertible insert/update/delete with identity and
//     before/after value snapshots
//   - Group: an ordered, non-empty batch of operations recorded by one
//     capture scope, applied or reversed as a whole
//
// Operations are immutable once created. Invert is total over valid
// operations and is its own inverse: Invert(Invert(op)) == op.
//
// Serialization: row value payloads are stored as canonical JSON (sorted
// keys, NFC-normalized strings, no HTML escaping) so that persisted history
// compares stably across processes and storage backends. See MarshalCanonical.
package action
