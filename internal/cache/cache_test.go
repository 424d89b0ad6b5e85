package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestCache_SetAndGet(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Set("key", entry{Name: "a", Value: 1}, time.Minute, "engine"))

	var result entry
	found, err := c.Get("key", &result)

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entry{Name: "a", Value: 1}, result)
}

func TestCache_Expired(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Set("key", entry{Name: "a"}, -time.Second, "engine"))

	var result entry
	found, err := c.Get("key", &result)

	require.NoError(t, err)
	assert.False(t, found)

	found, err = c.Get("missing", &result)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_CleanupStale(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Set("fresh", entry{}, time.Minute, "engine"))
	require.NoError(t, c.Set("stale", entry{}, -time.Second, "engineCustom"))

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)
	assert.Equal(t, 1, stats.StaleEntries)
	assert.Equal(t, map[string]int{"engine": 1, "engineCustom": 1}, stats.BySource)

	assert.Equal(t, 1, c.CleanupStale())
	assert.Equal(t, 1, c.Stats().TotalEntries)
}

func TestCache_PeriodicCleanup(t *testing.T) {
	c := NewCache()
	require.NoError(t, c.Set("stale", entry{}, -time.Second, "engine"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartPeriodicCleanup(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Stats().TotalEntries == 0
	}, time.Second, 10*time.Millisecond)
}
