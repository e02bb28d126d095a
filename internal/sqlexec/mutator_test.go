package sqlexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewindable/rewind/internal/action"
	"github.com/rewindable/rewind/internal/capture"
	"github.com/rewindable/rewind/internal/testutil"
)

// recordingObserver collects observed events for assertions.
type recordingObserver struct {
	events []capture.Event
	err    error
}

func (r *recordingObserver) Observe(ev capture.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func TestMutator_InsertObservesFullRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenLiveDB(t)
	obs := &recordingObserver{}
	m := NewMutator(db, obs)

	identity, err := m.Insert(ctx, "documents", action.Row("name", "doc", "revision", 1))
	require.NoError(t, err)

	// Auto-assigned key resolved from the store.
	id, ok := identity.Get("id")
	require.True(t, ok)
	assert.Equal(t, int64(1), id)

	require.Len(t, obs.events, 1)
	ev := obs.events[0]
	assert.Equal(t, action.KindInsert, ev.Kind)
	assert.Equal(t, "documents", ev.Target)
	assert.True(t, ev.Identity.Equal(action.Row("id", 1)))
	assert.True(t, ev.After.Equal(action.Row("name", "doc", "revision", 1, "id", 1)))
	assert.Empty(t, ev.Before)
}

func TestMutator_InsertExplicitIdentity(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenLiveDB(t)
	obs := &recordingObserver{}
	m := NewMutator(db, obs)

	identity, err := m.Insert(ctx, "documents", action.Row("id", 42, "name", "doc", "revision", 1))
	require.NoError(t, err)
	assert.True(t, identity.Equal(action.Row("id", 42)))
}

func TestMutator_UpdateSnapshotsBeforeImage(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenLiveDB(t)
	testutil.MustExec(t, db, "INSERT INTO documents (id, name, revision) VALUES (1, 'old', 3)")

	obs := &recordingObserver{}
	m := NewMutator(db, obs)

	err := m.Update(ctx, "documents", action.Row("id", 1), action.Row("name", "new"))
	require.NoError(t, err)

	name, _ := testutil.DocumentName(t, db, 1)
	assert.Equal(t, "new", name)

	require.Len(t, obs.events, 1)
	ev := obs.events[0]
	assert.Equal(t, action.KindUpdate, ev.Kind)
	// Only the touched column is snapshotted, with its exact prior value.
	assert.True(t, ev.Before.Equal(action.Row("name", "old")), "before image = %v", ev.Before)
	assert.True(t, ev.After.Equal(action.Row("name", "new")))
}

func TestMutator_UpdateWithoutIdentityIsUnsupported(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenLiveDB(t)
	m := NewMutator(db, &recordingObserver{})

	err := m.Update(ctx, "documents", nil, action.Row("name", "x"))
	require.Error(t, err)
	assert.True(t, capture.IsUnsupported(err))
}

func TestMutator_DeleteSnapshotsWholeRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenLiveDB(t)
	testutil.MustExec(t, db, "INSERT INTO documents (id, name, revision) VALUES (7, 'doomed', 2)")

	obs := &recordingObserver{}
	m := NewMutator(db, obs)

	err := m.Delete(ctx, "documents", action.Row("id", 7))
	require.NoError(t, err)

	_, ok := testutil.DocumentName(t, db, 7)
	assert.False(t, ok)

	require.Len(t, obs.events, 1)
	ev := obs.events[0]
	assert.Equal(t, action.KindDelete, ev.Kind)
	assert.True(t, ev.Before.Equal(action.Row("id", 7, "name", "doomed", "revision", 2)),
		"full prior row must be captured, got %v", ev.Before)
	assert.Empty(t, ev.After)
}

func TestMutator_DeleteMissingRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenLiveDB(t)
	m := NewMutator(db, &recordingObserver{})

	err := m.Delete(ctx, "documents", action.Row("id", 404))
	assert.Error(t, err)
}

func TestMutator_RawExecRefusedWhileObserving(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenLiveDB(t)
	m := NewMutator(db, &recordingObserver{})

	_, err := m.Exec(ctx, "UPDATE documents SET revision = revision + 1")
	require.Error(t, err)
	assert.True(t, capture.IsUnsupported(err))

	// Without an observer the passthrough works.
	unobserved := NewMutator(db, nil)
	_, err = unobserved.Exec(ctx, "UPDATE documents SET revision = revision + 1")
	assert.NoError(t, err)
}

func TestMutator_ObserverErrorStopsTheCall(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenLiveDB(t)
	m := NewMutator(db, &recordingObserver{err: assert.AnError})

	_, err := m.Insert(ctx, "documents", action.Row("name", "doc", "revision", 1))
	assert.ErrorIs(t, err, assert.AnError)
}
