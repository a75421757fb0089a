package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterEvictsPriorSession(t *testing.T) {
	table := NewActiveTable()

	prior, evicted := table.Register("usr-1", "sess-a")
	assert.False(t, evicted)
	assert.Empty(t, prior)

	prior, evicted = table.Register("usr-1", "sess-b")
	assert.True(t, evicted)
	assert.Equal(t, "sess-a", prior)

	assert.False(t, table.IsActive("usr-1", "sess-a"))
	assert.True(t, table.IsActive("usr-1", "sess-b"))
}

func TestRegisterIsPerUser(t *testing.T) {
	table := NewActiveTable()

	table.Register("usr-1", "sess-a")
	_, evicted := table.Register("usr-2", "sess-b")

	assert.False(t, evicted)
	assert.True(t, table.IsActive("usr-1", "sess-a"))
	assert.True(t, table.IsActive("usr-2", "sess-b"))
}

func TestIsActiveRejectsEmptySessionId(t *testing.T) {
	table := NewActiveTable()
	assert.False(t, table.IsActive("usr-1", ""))
}

func TestRemoveIsSafeWhenAbsent(t *testing.T) {
	table := NewActiveTable()

	table.Register("usr-1", "sess-a")
	table.Remove("usr-1")
	table.Remove("usr-1")

	_, ok := table.Get("usr-1")
	assert.False(t, ok)
	assert.False(t, table.IsActive("usr-1", "sess-a"))
}
