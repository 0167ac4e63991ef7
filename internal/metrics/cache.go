package metrics

import (
	"context"
	"time"

	"github.com/go-authgate/pairgate/internal/core"

	"github.com/rs/zerolog/log"
)

// CacheWrapper provides a read-through cache for gauge counts so several
// instances refreshing gauges do not each hit the database.
type CacheWrapper struct {
	store core.MetricsStore
	cache core.Cache[int64]
	clock core.Clock
}

// NewCacheWrapper creates a new cache wrapper for metrics.
func NewCacheWrapper(store core.MetricsStore, cache core.Cache[int64], clock core.Clock) *CacheWrapper {
	return &CacheWrapper{
		store: store,
		cache: cache,
		clock: clock,
	}
}

func (m *CacheWrapper) GetActiveDevicesCount(ctx context.Context, ttl time.Duration) (int64, error) {
	return m.getCountWithCache(ctx, "devices:active", ttl, m.store.CountActiveDevices)
}

func (m *CacheWrapper) GetActivePairingCodesCount(
	ctx context.Context,
	ttl time.Duration,
) (int64, error) {
	return m.getCountWithCache(ctx, "pairing_codes:active", ttl, func() (int64, error) {
		return m.store.CountActivePairingCodes(m.clock.Now())
	})
}

func (m *CacheWrapper) GetTrustEdgesCount(ctx context.Context, ttl time.Duration) (int64, error) {
	return m.getCountWithCache(ctx, "trust_edges:total", ttl, m.store.CountTrustEdges)
}

// getCountWithCache retrieves a count using the cache-aside pattern.
func (m *CacheWrapper) getCountWithCache(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func() (int64, error),
) (int64, error) {
	return m.cache.GetWithFetch(
		ctx,
		key,
		ttl,
		func(ctx context.Context, key string) (int64, error) {
			return fetchFunc()
		},
	)
}

// UpdateGauges refreshes every gauge. A failed count is recorded and
// skipped so one broken query does not freeze the others.
func (m *CacheWrapper) UpdateGauges(ctx context.Context, recorder core.Recorder, ttl time.Duration) {
	if count, err := m.GetActiveDevicesCount(ctx, ttl); err != nil {
		log.Warn().Err(err).Msg("failed to count active devices")
		recorder.RecordDatabaseQueryError("count_devices")
	} else {
		recorder.SetActiveDevicesCount(int(count))
	}

	if count, err := m.GetActivePairingCodesCount(ctx, ttl); err != nil {
		log.Warn().Err(err).Msg("failed to count active pairing codes")
		recorder.RecordDatabaseQueryError("count_pairing_codes")
	} else {
		recorder.SetActivePairingCodesCount(int(count))
	}

	if count, err := m.GetTrustEdgesCount(ctx, ttl); err != nil {
		log.Warn().Err(err).Msg("failed to count trust edges")
		recorder.RecordDatabaseQueryError("count_trust_edges")
	} else {
		recorder.SetTrustEdgesCount(int(count))
	}
}
