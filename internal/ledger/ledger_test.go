package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIfAbsentKeepsFirstSighting(t *testing.T) {
	l := New()
	id := NewIdentity("/src/lib/a.jar", 10, time.Unix(100, 0))

	first := Locator{Container: "primary", PackID: "core", Offset: 42}
	got, fresh := l.RecordIfAbsent(id, first)
	assert.True(t, fresh)
	assert.Equal(t, first, got)

	got, fresh = l.RecordIfAbsent(id, Locator{Container: "primary", PackID: "extra", Offset: 7})
	assert.False(t, fresh)
	assert.Equal(t, first, got)

	loc, ok := l.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, first, loc)
	assert.Equal(t, 1, l.Len())
}

func TestIdentityDiffersOnSignature(t *testing.T) {
	a := NewIdentity("/src/a.txt", 10, time.Unix(1, 0))
	b := NewIdentity("/src/./a.txt", 10, time.Unix(1, 0))
	c := NewIdentity("/src/a.txt", 11, time.Unix(1, 0))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	l := New()
	l.RecordIfAbsent(a, Locator{PackID: "p"})
	_, ok := l.Lookup(c)
	assert.False(t, ok)
}
