package action

import "fmt"

// Operation is one invertible row mutation. Immutable once created: the
// recorder builds it from an observed event and nothing modifies it after.
//
// Presence rules by kind:
//   - insert: New set, Old absent
//   - delete: Old set, New absent
//   - update: both set
//
// Identity is always required. Operations without row identity cannot be
// recorded at all - that is the capture layer's unsupported-statement error,
// not a state this type represents.
type Operation struct {
	// Kind is the mutation class.
	Kind Kind

	// Target is the table (or collection) the row lives in.
	Target string

	// Identity holds the primary key columns and values of the affected row.
	Identity RowValues

	// Old holds prior column values (delete: the full row, update: the
	// columns being changed).
	Old RowValues

	// New holds resulting column values (insert: the full row, update: the
	// columns being changed).
	New RowValues
}

// Validate checks the per-kind presence rules.
func (op Operation) Validate() error {
	if !op.Kind.Valid() {
		return fmt.Errorf("operation: invalid kind %q", op.Kind)
	}
	if op.Target == "" {
		return fmt.Errorf("operation: empty target")
	}
	if len(op.Identity) == 0 {
		return fmt.Errorf("operation: %s on %s has no row identity", op.Kind, op.Target)
	}
	switch op.Kind {
	case KindInsert:
		if len(op.New) == 0 {
			return fmt.Errorf("operation: insert on %s has no new values", op.Target)
		}
		if len(op.Old) != 0 {
			return fmt.Errorf("operation: insert on %s carries old values", op.Target)
		}
	case KindDelete:
		if len(op.Old) == 0 {
			return fmt.Errorf("operation: delete on %s has no old values", op.Target)
		}
		if len(op.New) != 0 {
			return fmt.Errorf("operation: delete on %s carries new values", op.Target)
		}
	case KindUpdate:
		if len(op.Old) == 0 || len(op.New) == 0 {
			return fmt.Errorf("operation: update on %s needs both old and new values", op.Target)
		}
	}
	return nil
}

// Invert derives the operation that exactly undoes op. Pure and total over
// valid operations, and self-inverse: Invert(Invert(op)) == op.
//
//   - insert → delete carrying the inserted values as old values, so a later
//     redo can restore the exact row
//   - delete → insert restoring the captured old values
//   - update → update with old and new swapped
func Invert(op Operation) Operation {
	switch op.Kind {
	case KindInsert:
		return Operation{
			Kind:     KindDelete,
			Target:   op.Target,
			Identity: op.Identity,
			Old:      op.New,
		}
	case KindDelete:
		return Operation{
			Kind:     KindInsert,
			Target:   op.Target,
			Identity: op.Identity,
			New:      op.Old,
		}
	default:
		return Operation{
			Kind:     KindUpdate,
			Target:   op.Target,
			Identity: op.Identity,
			Old:      op.New,
			New:      op.Old,
		}
	}
}

// Equal reports whether two operations are semantically identical
// (order-insensitive value comparison).
func (op Operation) Equal(other Operation) bool {
	return op.Kind == other.Kind &&
		op.Target == other.Target &&
		op.Identity.Equal(other.Identity) &&
		op.Old.Equal(other.Old) &&
		op.New.Equal(other.New)
}
