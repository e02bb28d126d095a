package action

import "fmt"

// Group is the atomic unit of undo/redo history: the ordered, non-empty
// sequence of operations recorded by one capture scope for one entity key.
// A group is executed or reversed as a whole, never partially.
//
// Seq is the group's per-key capture sequence number, assigned when the
// group is committed to the log. A group keeps its Seq for its whole life,
// including when an undo moves it (mirrored) onto the redo stack - the pair
// (Key, Seq) identifies the logical change across both stacks.
//
// Token is an opaque identifier assigned at commit (UUIDv7 in production),
// carried for diagnostics and history listings.
type Group struct {
	Key   EntityKey
	Seq   int64
	Token string
	Ops   []Operation
}

// Validate checks group-level invariants, including every operation.
func (g Group) Validate() error {
	if len(g.Ops) == 0 {
		return fmt.Errorf("group %s seq %d: empty", g.Key, g.Seq)
	}
	for i, op := range g.Ops {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("group %s seq %d: op %d: %w", g.Key, g.Seq, i, err)
		}
	}
	return nil
}

// Mirror returns the group that crosses to the opposite stack: every
// operation inverted, in reverse order. Executing the mirror's operations
// front to back retires the most recent effect of g first, which is what
// makes dependent operations (insert then update of the same row) unwind
// correctly.
//
// Mirror is an involution: g.Mirror().Mirror() is semantically g. Seq and
// Token are preserved - the mirror is the same logical change seen from the
// other direction.
func (g Group) Mirror() Group {
	ops := make([]Operation, len(g.Ops))
	for i, op := range g.Ops {
		ops[len(g.Ops)-1-i] = Invert(op)
	}
	return Group{
		Key:   g.Key,
		Seq:   g.Seq,
		Token: g.Token,
		Ops:   ops,
	}
}
