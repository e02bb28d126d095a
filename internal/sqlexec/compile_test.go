package sqlexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewindable/rewind/internal/action"
)

func TestCompile_Insert(t *testing.T) {
	op := action.Operation{
		Kind:     action.KindInsert,
		Target:   "documents",
		Identity: action.Row("id", 1),
		New:      action.Row("id", 1, "name", "doc"),
	}

	query, args, err := Compile(op)
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "documents" ("id", "name") VALUES (?, ?)`, query)
	assert.Equal(t, []any{int64(1), "doc"}, args)
}

func TestCompile_InsertAddsMissingIdentityColumn(t *testing.T) {
	// A captured insert may hold identity separately from the value columns.
	op := action.Operation{
		Kind:     action.KindInsert,
		Target:   "documents",
		Identity: action.Row("id", 5),
		New:      action.Row("name", "doc"),
	}

	query, args, err := Compile(op)
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "documents" ("name", "id") VALUES (?, ?)`, query)
	assert.Equal(t, []any{"doc", int64(5)}, args)
}

func TestCompile_Delete(t *testing.T) {
	op := action.Operation{
		Kind:     action.KindDelete,
		Target:   "documents",
		Identity: action.Row("id", 3),
		Old:      action.Row("id", 3, "name", "doc"),
	}

	query, args, err := Compile(op)
	require.NoError(t, err)

	assert.Equal(t, `DELETE FROM "documents" WHERE "id" = ?`, query)
	assert.Equal(t, []any{int64(3)}, args)
}

func TestCompile_DeleteCompositeIdentity(t *testing.T) {
	op := action.Operation{
		Kind:     action.KindDelete,
		Target:   "memberships",
		Identity: action.Row("user_id", 1, "group_id", 2),
		Old:      action.Row("user_id", 1, "group_id", 2),
	}

	query, args, err := Compile(op)
	require.NoError(t, err)

	assert.Equal(t, `DELETE FROM "memberships" WHERE "user_id" = ? AND "group_id" = ?`, query)
	assert.Equal(t, []any{int64(1), int64(2)}, args)
}

func TestCompile_Update(t *testing.T) {
	op := action.Operation{
		Kind:     action.KindUpdate,
		Target:   "documents",
		Identity: action.Row("id", 1),
		Old:      action.Row("name", "a", "revision", 1),
		New:      action.Row("name", "b", "revision", 2),
	}

	query, args, err := Compile(op)
	require.NoError(t, err)

	assert.Equal(t, `UPDATE "documents" SET "name" = ?, "revision" = ? WHERE "id" = ?`, query)
	assert.Equal(t, []any{"b", int64(2), int64(1)}, args)
}

func TestCompile_RejectsInvalidOperation(t *testing.T) {
	_, _, err := Compile(action.Operation{Kind: action.KindInsert, Target: "t"})
	assert.Error(t, err)
}

func TestQuoteIdent_EscapesQuotes(t *testing.T) {
	assert.Equal(t, `"weird""name"`, quoteIdent(`weird"name`))
}
