package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-authgate/pairgate/internal/core"
	"github.com/go-authgate/pairgate/internal/mocks"
	"github.com/go-authgate/pairgate/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLimiter(rules map[string]Rule) (*Limiter, *util.FakeClock, *MemoryStore) {
	clock := util.NewFakeClock(epoch)
	store := NewMemoryStore(clock, time.Minute)
	return New(store, clock, rules), clock, store
}

func TestLimiter_AllowsUpToMaxThenDenies(t *testing.T) {
	limiter, clock, _ := newTestLimiter(map[string]Rule{
		"x": {Max: 3, Window: time.Hour},
	})
	ctx := context.Background()

	var got []bool
	for range 4 {
		d, err := limiter.Check(ctx, "device-1", "x")
		require.NoError(t, err)
		got = append(got, d.Allowed)
	}
	assert.Equal(t, []bool{true, true, true, false}, got)

	// After the window rolls over the next call is allowed again.
	clock.Advance(time.Hour + time.Second)
	d, err := limiter.Check(ctx, "device-1", "x")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestLimiter_DeniedCallsReportRetryAfter(t *testing.T) {
	limiter, clock, _ := newTestLimiter(map[string]Rule{
		ActionPairing: {Max: 1, Window: 10 * time.Minute},
	})
	ctx := context.Background()

	first, err := limiter.Check(ctx, "d", ActionPairing)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Zero(t, first.RetryAfter)
	assert.Equal(t, epoch.Add(10*time.Minute), first.ResetAt)

	clock.Advance(4 * time.Minute)
	denied, err := limiter.Check(ctx, "d", ActionPairing)
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 6*time.Minute, denied.RetryAfter)
	assert.Equal(t, 1, denied.Limit)
}

func TestLimiter_DeniedCallsDoNotIncrement(t *testing.T) {
	limiter, _, _ := newTestLimiter(map[string]Rule{
		"x": {Max: 2, Window: time.Hour},
	})
	ctx := context.Background()

	for range 10 {
		_, err := limiter.Check(ctx, "id", "x")
		require.NoError(t, err)
	}
	d, err := limiter.Check(ctx, "id", "x")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, d.Count)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _, _ := newTestLimiter(map[string]Rule{
		"a": {Max: 1, Window: time.Hour},
		"b": {Max: 1, Window: time.Hour},
	})
	ctx := context.Background()

	d, _ := limiter.Check(ctx, "one", "a")
	assert.True(t, d.Allowed)
	d, _ = limiter.Check(ctx, "two", "a")
	assert.True(t, d.Allowed, "different identifier")
	d, _ = limiter.Check(ctx, "one", "b")
	assert.True(t, d.Allowed, "different action")
	d, _ = limiter.Check(ctx, "one", "a")
	assert.False(t, d.Allowed)
}

func TestLimiter_UnknownActionIsAllowed(t *testing.T) {
	limiter, _, store := newTestLimiter(DefaultRules())

	for range 100 {
		d, err := limiter.Check(context.Background(), "id", "unlisted")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	assert.Equal(t, 0, store.Len())
}

func TestLimiter_ConcurrentChecksNeverExceedMax(t *testing.T) {
	limiter, _, _ := newTestLimiter(map[string]Rule{
		"x": {Max: 5, Window: time.Hour},
	})

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := limiter.Check(context.Background(), "shared", "x")
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), allowed.Load())
}

func TestLimiter_StoreErrorIsWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRateLimitStore(ctrl)
	storeErr := errors.New("redis down")
	store.EXPECT().
		Take(gomock.Any(), "pairing:dev", 3, time.Hour).
		Return(core.RateLimitResult{}, storeErr)

	limiter := New(store, util.NewFakeClock(epoch), map[string]Rule{
		ActionPairing: {Max: 3, Window: time.Hour},
	})

	_, err := limiter.Check(context.Background(), "dev", ActionPairing)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	assert.Equal(t, Rule{Max: 5, Window: time.Hour}, rules[ActionRegistration])
	assert.Equal(t, Rule{Max: 10, Window: time.Hour}, rules[ActionPairingCode])
	assert.Equal(t, Rule{Max: 3, Window: time.Hour}, rules[ActionPairing])
	assert.Equal(t, Rule{Max: 5, Window: time.Minute}, rules[ActionKeyExchange])
}

func TestNew_CopiesRules(t *testing.T) {
	rules := map[string]Rule{"x": {Max: 1, Window: time.Hour}}
	limiter, _, _ := newTestLimiter(rules)
	rules["x"] = Rule{Max: 100, Window: time.Hour}

	rule, ok := limiter.Rule("x")
	require.True(t, ok)
	assert.Equal(t, 1, rule.Max)
}
