package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/huddlehq/huddle/internal/cache/port"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("miss", func(t *testing.T) {
		_, err := c.Get(ctx, "absent")
		assert.ErrorIs(t, err, port.ErrMiss)
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", "v", time.Millisecond))
		time.Sleep(5 * time.Millisecond)

		_, err := c.Get(ctx, "short")
		assert.ErrorIs(t, err, port.ErrMiss)
	})

	t.Run("no ttl means no expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "forever", "v", 0))

		got, err := c.Get(ctx, "forever")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
		require.NoError(t, c.Set(ctx, "b", "2", time.Minute))

		n, err := c.Del(ctx, "a", "b", "absent")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("ping and close", func(t *testing.T) {
		assert.NoError(t, c.Ping(ctx))
		assert.NoError(t, c.Close())
	})
}
