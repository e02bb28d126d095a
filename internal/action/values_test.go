package action

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_Construction(t *testing.T) {
	rv := Row("id", 1, "name", "doc")

	assert.Equal(t, []string{"id", "name"}, rv.Columns())

	id, ok := rv.Get("id")
	require.True(t, ok)
	assert.Equal(t, int64(1), id, "integers normalize to int64")

	_, ok = rv.Get("missing")
	assert.False(t, ok)
}

func TestRow_PanicsOnOddArgs(t *testing.T) {
	assert.Panics(t, func() { Row("id") })
	assert.Panics(t, func() { Row(1, "id") })
}

func TestRowValues_SetDoesNotMutate(t *testing.T) {
	rv := Row("id", 1, "name", "a")
	updated := rv.Set("name", "b")

	orig, _ := rv.Get("name")
	assert.Equal(t, "a", orig)

	changed, _ := updated.Get("name")
	assert.Equal(t, "b", changed)

	appended := rv.Set("revision", 2)
	assert.Len(t, appended, 3)
	assert.Len(t, rv, 2)
}

func TestRowValues_EqualOrderInsensitive(t *testing.T) {
	a := Row("id", 1, "name", "doc")
	b := Row("name", "doc", "id", 1)
	c := Row("id", 1, "name", "other")

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Row("id", 1)))
}

func TestRowValues_EqualAcrossNumericForms(t *testing.T) {
	captured := Row("revision", 3)
	restored := Row("revision", json.Number("3"))

	assert.True(t, captured.Equal(restored))
}

func TestRowValues_JSONRoundTrip(t *testing.T) {
	rv := Row("id", 42, "name", "doc", "ratio", 1.5, "draft", true, "parent", nil)

	data, err := json.Marshal(rv)
	require.NoError(t, err)

	var back RowValues
	require.NoError(t, json.Unmarshal(data, &back))

	// Wire order preserved.
	assert.Equal(t, rv.Columns(), back.Columns())
	assert.True(t, rv.Equal(back))

	id, _ := back.Get("id")
	assert.Equal(t, int64(42), id, "integer must not decode as float64")
	ratio, _ := back.Get("ratio")
	assert.Equal(t, 1.5, ratio)
}

func TestRowValues_UnmarshalRejectsNested(t *testing.T) {
	var rv RowValues
	err := json.Unmarshal([]byte(`{"tags":["a","b"]}`), &rv)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"meta":{"k":1}}`), &rv)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`[1,2]`), &rv)
	assert.Error(t, err)
}

func TestRowValues_LargeIntegerNoDrift(t *testing.T) {
	// 2^53+1 is not representable as float64.
	const big = int64(9007199254740993)
	rv := Row("id", big)

	data, err := json.Marshal(rv)
	require.NoError(t, err)

	var back RowValues
	require.NoError(t, json.Unmarshal(data, &back))

	v, _ := back.Get("id")
	assert.Equal(t, big, v)
}
