package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/go-authgate/pairgate/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func newUluleStore() *LimiterStore {
	return NewLimiterStore(memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          StorePrefix,
		CleanUpInterval: time.Minute,
	}))
}

func TestLimiterStore_CapsCount(t *testing.T) {
	store := newUluleStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := store.Take(ctx, "pairing:dev", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d", i)
		assert.Equal(t, i, res.Count)
	}

	res, err := store.Take(ctx, "pairing:dev", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 3, res.Count)
	assert.True(t, res.ResetAt.After(time.Now()))
	assert.Equal(t, time.UTC, res.ResetAt.Location())
}

func TestLimiterStore_BehindLimiter(t *testing.T) {
	l := New(newUluleStore(), util.RealClock{}, map[string]Rule{
		ActionKeyExchange: {Max: 2, Window: time.Minute},
	})
	ctx := context.Background()

	d1, err := l.Check(ctx, "dev", ActionKeyExchange)
	require.NoError(t, err)
	d2, err := l.Check(ctx, "dev", ActionKeyExchange)
	require.NoError(t, err)
	d3, err := l.Check(ctx, "dev", ActionKeyExchange)
	require.NoError(t, err)

	assert.True(t, d1.Allowed)
	assert.True(t, d2.Allowed)
	assert.False(t, d3.Allowed)
	assert.Positive(t, d3.RetryAfter)
	assert.LessOrEqual(t, d3.RetryAfter, time.Minute)
}
