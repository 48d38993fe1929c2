package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	_, found, err := c.Get(ctx, "items:1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "items:1", []byte(`{"id":1}`), time.Minute))

	val, found, err := c.Get(ctx, "items:1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte(`{"id":1}`), val)

	require.NoError(t, c.Delete(ctx, "items:1"))
	_, found, err = c.Get(ctx, "items:1")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting an absent key is not an error.
	require.NoError(t, c.Delete(ctx, "items:1"))
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	require.NoError(t, c.Set(ctx, "items:1", []byte("v"), 20*time.Millisecond))

	_, found, err := c.Get(ctx, "items:1")
	require.NoError(t, err)
	assert.True(t, found)

	time.Sleep(50 * time.Millisecond)

	_, found, err = c.Get(ctx, "items:1")
	require.NoError(t, err)
	assert.False(t, found, "expired entry must not be served as a hit")
}

func TestMemoryCacheDeletePattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	keys := []string{"items:list:0:10", "items:list:10:10", "items:1", "notes:list:0:10"}
	for _, key := range keys {
		require.NoError(t, c.Set(ctx, key, []byte("v"), time.Minute))
	}

	require.NoError(t, c.DeletePattern(ctx, "items:list:*"))

	for _, key := range []string{"items:list:0:10", "items:list:10:10"} {
		_, found, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, "expected %s removed", key)
	}
	for _, key := range []string{"items:1", "notes:list:0:10"} {
		_, found, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, found, "expected %s untouched", key)
	}
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	defer c.Close()

	buf := []byte("original")
	require.NoError(t, c.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'X'

	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("original"), val)

	val[0] = 'Y'
	again, _, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}
