package action

import "fmt"

// Kind identifies the mutation class of an operation.
type Kind string

const (
	// KindInsert adds a row. Carries new values only.
	KindInsert Kind = "insert"

	// KindUpdate changes column values of an existing row.
	// Carries both old and new values for the touched columns.
	KindUpdate Kind = "update"

	// KindDelete removes a row. Carries old values only.
	KindDelete Kind = "delete"
)

// Valid reports whether k is one of the three supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInsert, KindUpdate, KindDelete:
		return true
	}
	return false
}

// Inverse returns the kind of the operation that undoes an operation of
// kind k. Update is self-inverse.
func (k Kind) Inverse() Kind {
	switch k {
	case KindInsert:
		return KindDelete
	case KindDelete:
		return KindInsert
	default:
		return KindUpdate
	}
}

// EntityKey identifies one undo/redo history line. All stacks are indexed
// by this pair; histories for different keys are fully independent.
type EntityKey struct {
	ObjectType string
	ObjectID   int64
}

// String renders the key for diagnostics, e.g. "document/42".
func (k EntityKey) String() string {
	return fmt.Sprintf("%s/%d", k.ObjectType, k.ObjectID)
}
