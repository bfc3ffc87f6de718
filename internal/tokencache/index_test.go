package tokencache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLookupForget(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, ok, err := c.Lookup(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Store(ctx, "h1", "req-1", 0))
	id, ok, err := c.Lookup(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)

	require.NoError(t, c.Forget(ctx, "h1"))
	_, ok, _ = c.Lookup(ctx, "h1")
	assert.False(t, ok)
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Store(ctx, "h", "req", time.Minute))
	_, ok, _ := c.Lookup(ctx, "h")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Lookup(ctx, "h")
	assert.False(t, ok, "entry must lapse at its deadline")
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "fixit:publink:abc", key("abc"))
}

func TestNop(t *testing.T) {
	var idx Index = Nop{}
	require.NoError(t, idx.Store(context.Background(), "h", "r", time.Hour))
	_, ok, err := idx.Lookup(context.Background(), "h")
	require.NoError(t, err)
	assert.False(t, ok)
}
