package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seen := make(map[string]bool)
	for range 100 {
		id, err := New(now)
		require.NoError(t, err)
		require.Len(t, id, 26)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := New(now)
	require.NoError(t, err)

	got, ok := Time(id)
	require.True(t, ok)
	assert.True(t, got.Equal(now), "Time() = %v, want %v", got, now)

	_, ok = Time("42")
	assert.False(t, ok)
}
