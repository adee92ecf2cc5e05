package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_SetGet(t *testing.T) {
	c, err := New[string, int](8, 0)
	require.NoError(t, err)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestTTLCache_Expiry(t *testing.T) {
	c, err := New[string, string](8, 10*time.Millisecond)
	require.NoError(t, err)

	c.Set("k", "v")
	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok, "entry past its TTL must be dropped")
}

func TestTTLCache_EvictsLRU(t *testing.T) {
	c, err := New[int, int](2, 0)
	require.NoError(t, err)

	c.Set(1, 1)
	c.Set(2, 2)
	c.Get(1) // touch 1 so 2 becomes the eviction candidate
	c.Set(3, 3)

	_, ok := c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestTTLCache_Purge(t *testing.T) {
	c, err := New[string, []float64](8, time.Hour)
	require.NoError(t, err)

	c.Set("sorted", []float64{1, 2, 3})
	require.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())

	_, ok := c.Get("sorted")
	assert.False(t, ok)
}
