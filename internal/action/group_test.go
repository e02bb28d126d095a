package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_Validate(t *testing.T) {
	key := EntityKey{ObjectType: "document", ObjectID: 1}

	empty := Group{Key: key, Seq: 1}
	assert.Error(t, empty.Validate())

	bad := Group{Key: key, Seq: 1, Ops: []Operation{{Kind: KindInsert, Target: "t", Identity: Row("id", 1)}}}
	assert.Error(t, bad.Validate(), "invalid member operation must fail the group")

	ok := Group{Key: key, Seq: 1, Ops: []Operation{
		{Kind: KindInsert, Target: "t", Identity: Row("id", 1), New: Row("id", 1, "name", "doc")},
	}}
	assert.NoError(t, ok.Validate())
}

// A group [insert A, update A(x→y)] must mirror to [update(y→x), delete A]:
// undoing retires the most recent effect first.
func TestGroup_Mirror_ReversesAndInverts(t *testing.T) {
	key := EntityKey{ObjectType: "document", ObjectID: 1}
	g := Group{
		Key:   key,
		Seq:   3,
		Token: "tok",
		Ops: []Operation{
			{Kind: KindInsert, Target: "documents", Identity: Row("id", 1), New: Row("id", 1, "name", "x")},
			{Kind: KindUpdate, Target: "documents", Identity: Row("id", 1), Old: Row("name", "x"), New: Row("name", "y")},
		},
	}

	m := g.Mirror()

	require.Len(t, m.Ops, 2)
	assert.Equal(t, KindUpdate, m.Ops[0].Kind)
	assert.True(t, m.Ops[0].Old.Equal(Row("name", "y")))
	assert.True(t, m.Ops[0].New.Equal(Row("name", "x")))
	assert.Equal(t, KindDelete, m.Ops[1].Kind)
	assert.True(t, m.Ops[1].Old.Equal(Row("id", 1, "name", "x")))

	// Identity of the logical change travels with the mirror.
	assert.Equal(t, g.Seq, m.Seq)
	assert.Equal(t, g.Token, m.Token)
	assert.Equal(t, g.Key, m.Key)
}

func TestGroup_Mirror_Involution(t *testing.T) {
	g := Group{
		Key:   EntityKey{ObjectType: "document", ObjectID: 2},
		Seq:   1,
		Token: "tok",
		Ops: []Operation{
			{Kind: KindDelete, Target: "t", Identity: Row("id", 5), Old: Row("id", 5, "name", "a")},
			{Kind: KindInsert, Target: "t", Identity: Row("id", 6), New: Row("id", 6, "name", "b")},
		},
	}

	back := g.Mirror().Mirror()
	require.Len(t, back.Ops, len(g.Ops))
	for i := range g.Ops {
		assert.True(t, back.Ops[i].Equal(g.Ops[i]), "op %d must survive double mirror", i)
	}
}
