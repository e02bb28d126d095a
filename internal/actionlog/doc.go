// Package actionlog provides SQLite-backed durable storage for per-key
// undo and redo stacks of action groups.
//
// Layout: two tables, undo_action and redo_action, one row per operation.
// A group is the set of rows sharing (object_type, object_id, capture_seq),
// ordered by op_index. Row value payloads are stored as canonical JSON text
// (see action.MarshalCanonical) so history compares stably across processes.
//
// # Stack discipline
//
// The undo stack pops the group with the highest capture_seq. Groups keep
// their capture_seq as they cross to the redo stack, so the most recently
// pushed redo group is the one with the LOWEST capture_seq - redo pops the
// minimum. A new capture always takes max(undo capture_seq)+1 and clears the
// redo stack in the same transaction, so sequence numbers never collide
// within a stack.
//
// # Atomicity
//
// Every stack-mutating sequence (append+clear, pop+push) runs on a Tx and
// commits as one SQLite transaction. Callers interleave statement execution
// between pop and push; rolling the Tx back restores both stacks exactly,
// which is how replay failures leave history untouched.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - single-writer connection pool (SQLite allows one writer at a time)
//
// Tables are created lazily on first Open against a given path.
package actionlog
