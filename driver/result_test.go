package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	return NewResult(
		[]string{"id", "name", "score", "active", "note"},
		[][]any{
			{int64(1), "alice", 91.5, int64(1), []byte("first")},
			{int64(2), []byte("bob"), "87.25", int64(0), nil},
			{uint64(3), nil, int64(70), "true", "x"},
		},
	)
}

func TestResultIteration(t *testing.T) {
	r := sampleResult()
	assert.Equal(t, 5, r.FieldCount())
	assert.Equal(t, 3, r.RowCount())
	assert.Equal(t, []string{"id", "name", "score", "active", "note"}, r.FieldNames())

	n := 0
	for r.Next() {
		n++
	}
	assert.Equal(t, 3, n)
	assert.False(t, r.Next(), "cursor must stay exhausted")

	r.Reset()
	assert.True(t, r.Next())
	assert.Equal(t, int64(1), r.GetInt64(0))
}

func TestTypedGetters(t *testing.T) {
	r := sampleResult()
	require.True(t, r.Next())

	assert.Equal(t, 1, r.GetInt(0))
	assert.Equal(t, "alice", r.GetString(1))
	assert.InDelta(t, 91.5, r.GetFloat(2), 0.001)
	assert.True(t, r.GetBool(3))
	assert.Equal(t, "first", r.GetString(4))

	require.True(t, r.Next())
	assert.Equal(t, "bob", r.GetString(1), "byte slices read as strings")
	assert.InDelta(t, 87.25, r.GetFloat(2), 0.001, "numeric strings convert")
	assert.False(t, r.GetBool(3))

	require.True(t, r.Next())
	assert.Equal(t, int64(3), r.GetInt64(0), "unsigned values convert")
	assert.True(t, r.GetBool(3), "boolean strings convert")
}

func TestGettersByName(t *testing.T) {
	r := sampleResult()
	require.True(t, r.Next())

	assert.Equal(t, 1, r.GetIntByName("id"))
	assert.Equal(t, int64(1), r.GetInt64ByName("id"))
	assert.Equal(t, "alice", r.GetStringByName("name"))
	assert.InDelta(t, 91.5, r.GetFloatByName("score"), 0.001)
	assert.True(t, r.GetBoolByName("active"))

	// Unknown columns read as defaults.
	assert.Equal(t, "", r.GetStringByName("nope"))
	assert.Equal(t, 0, r.GetIntByName("nope"))
	assert.True(t, r.IsNullByName("nope"))
}

func TestNullPolicy(t *testing.T) {
	r := sampleResult()
	require.True(t, r.Next())
	require.True(t, r.Next())

	assert.True(t, r.IsNull(4))
	assert.Equal(t, "", r.GetString(4))
	assert.Equal(t, 0, r.GetInt(4))
	assert.Zero(t, r.GetFloat(4))
	assert.False(t, r.GetBool(4))

	assert.False(t, r.IsNull(0))
}

func TestConversionFailuresReturnDefaults(t *testing.T) {
	r := NewResult([]string{"v"}, [][]any{{"not-a-number"}})
	require.True(t, r.Next())
	assert.Equal(t, int64(0), r.GetInt64(0))
	assert.Zero(t, r.GetFloat(0))
	assert.False(t, r.GetBool(0))
	assert.Equal(t, "not-a-number", r.GetString(0))
}

func TestOutOfRangeAccess(t *testing.T) {
	r := sampleResult()

	// Before the first Next, every access reads as NULL/default.
	assert.True(t, r.IsNull(0))
	assert.Equal(t, "", r.GetString(0))

	require.True(t, r.Next())
	assert.True(t, r.IsNull(99))
	assert.Equal(t, 0, r.GetInt(99))
}

func TestExecResult(t *testing.T) {
	r := NewExecResult(7)
	assert.Equal(t, uint64(7), r.AffectedRows())
	assert.Equal(t, 0, r.FieldCount())
	assert.Equal(t, 0, r.RowCount())
	assert.False(t, r.Next())
}
