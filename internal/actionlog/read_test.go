package actionlog

import (
	"context"
	"testing"

	"github.com/rewindable/rewind/internal/action"
)

func TestListUndo_StackOrder(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLog(t)
	key := action.EntityKey{ObjectType: "document", ObjectID: 1}

	mustCommitGroups(t, l,
		testGroup(key, 1, "a"),
		testGroup(key, 2, "b"),
	)

	groups, err := l.ListUndo(ctx, key)
	if err != nil {
		t.Fatalf("ListUndo() failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("ListUndo() returned %d groups, want 2", len(groups))
	}
	if groups[0].Seq != 1 || groups[1].Seq != 2 {
		t.Errorf("undo order = [%d, %d], want oldest first", groups[0].Seq, groups[1].Seq)
	}
}

func TestListRedo_StackOrder(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLog(t)
	key := action.EntityKey{ObjectType: "document", ObjectID: 1}

	tx, _ := l.Begin(ctx)
	if err := tx.PushRedo(ctx, testGroup(key, 3, "undone-first")); err != nil {
		t.Fatalf("PushRedo() failed: %v", err)
	}
	if err := tx.PushRedo(ctx, testGroup(key, 2, "undone-second")); err != nil {
		t.Fatalf("PushRedo() failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	groups, err := l.ListRedo(ctx, key)
	if err != nil {
		t.Fatalf("ListRedo() failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("ListRedo() returned %d groups, want 2", len(groups))
	}
	// Stack top (lowest seq) last, matching ListUndo's convention.
	if groups[0].Seq != 3 || groups[1].Seq != 2 {
		t.Errorf("redo order = [%d, %d], want [3, 2]", groups[0].Seq, groups[1].Seq)
	}
}

func TestList_EmptyKey(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLog(t)
	key := action.EntityKey{ObjectType: "document", ObjectID: 404}

	groups, err := l.ListUndo(ctx, key)
	if err != nil {
		t.Fatalf("ListUndo() failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("ListUndo() on empty key returned %d groups", len(groups))
	}
}
