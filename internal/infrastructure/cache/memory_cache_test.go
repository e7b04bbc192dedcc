package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryCache_GetSetDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute, 0, zap.NewNop())
	ctx := context.Background()

	_, err := c.Get(ctx, "geocode:harare")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "geocode:harare", []byte(`[{"name":"Harare"}]`), time.Minute))

	value, err := c.Get(ctx, "geocode:harare")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Harare"}]`, string(value))

	require.NoError(t, c.Delete(ctx, "geocode:harare"))

	_, err = c.Get(ctx, "geocode:harare")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute, 0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("x"), 20*time.Millisecond))

	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "short")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_BoundedEvictsSoonestExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute, 2, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "soon", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "later", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "newest", []byte("3"), 30*time.Minute))

	_, err := c.Get(ctx, "soon")
	assert.ErrorIs(t, err, ErrCacheMiss)

	for _, key := range []string{"later", "newest"} {
		_, err := c.Get(ctx, key)
		assert.NoError(t, err, key)
	}
}

func TestMemoryCache_OverwriteDoesNotEvict(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute, 2, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "a", []byte("3"), time.Minute))

	value, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "3", string(value))

	_, err = c.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute, 0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Clear(ctx))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
