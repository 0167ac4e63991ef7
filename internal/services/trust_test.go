package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-authgate/pairgate/internal/models"
	"github.com/go-authgate/pairgate/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstablishTrust(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	edge, err := env.trust.EstablishTrust(ctx, "a", "b", models.TrustLevelPaired, "meta-1")
	require.NoError(t, err)
	assert.Equal(t, "a", edge.SourceDeviceID)
	assert.Equal(t, "b", edge.TargetDeviceID)
	assert.Equal(t, 1, edge.TrustLevel)
	assert.Equal(t, "meta-1", edge.EncryptedMetadata)

	// The edge is directional.
	_, err = env.trust.GetTrust(ctx, "b", "a")
	require.ErrorIs(t, err, ErrTrustNotFound)

	t.Run("last writer wins", func(t *testing.T) {
		env.clock.Advance(time.Minute)
		edge, err := env.trust.EstablishTrust(ctx, "a", "b", 3, "meta-2")
		require.NoError(t, err)
		assert.Equal(t, 3, edge.TrustLevel)
		assert.Equal(t, "meta-2", edge.EncryptedMetadata)

		edges, page, err := env.trust.ListTrusted(ctx, "a", store.NewPaginationParams(1, 10, ""))
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
		require.Len(t, edges, 1)
		assert.Equal(t, 3, edges[0].TrustLevel)
	})

	t.Run("self trust", func(t *testing.T) {
		_, err := env.trust.EstablishTrust(ctx, "a", "a", 1, "")
		require.ErrorIs(t, err, ErrSelfTrust)
		assert.Equal(t, KindSelfTrust, ErrorKind(err))
	})

	t.Run("level below paired", func(t *testing.T) {
		_, err := env.trust.EstablishTrust(ctx, "a", "c", 0, "")
		require.ErrorIs(t, err, ErrInvalidTrustLevel)
	})

	t.Run("missing ids", func(t *testing.T) {
		_, err := env.trust.EstablishTrust(ctx, "", "c", 1, "")
		require.ErrorIs(t, err, ErrInvalidDeviceID)
	})
}

func TestRevokeTrust_IsDirectional(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.trust.EstablishTrust(ctx, "a", "b", 1, "")
	require.NoError(t, err)
	_, err = env.trust.EstablishTrust(ctx, "b", "a", 1, "")
	require.NoError(t, err)

	removed, err := env.trust.RevokeTrust(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = env.trust.RevokeTrust(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = env.trust.GetTrust(ctx, "a", "b")
	require.ErrorIs(t, err, ErrTrustNotFound)
	reverse, err := env.trust.GetTrust(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", reverse.TargetDeviceID)
}

func TestListTrusted_OrderedByLastSeen(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, target := range []string{"b", "c", "d"} {
		_, err := env.trust.EstablishTrust(ctx, "a", target, 1, "")
		require.NoError(t, err)
		env.clock.Advance(time.Second)
	}

	touched, err := env.trust.TouchTrust(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, touched)

	touched, err = env.trust.TouchTrust(ctx, "a", "z")
	require.NoError(t, err)
	assert.False(t, touched)

	edges, page, err := env.trust.ListTrusted(ctx, "a", store.NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, edges, 3)
	assert.Equal(t, "b", edges[0].TargetDeviceID)
	assert.Equal(t, "d", edges[1].TargetDeviceID)
	assert.Equal(t, "c", edges[2].TargetDeviceID)

	edges, page, err = env.trust.ListTrusted(ctx, "a", store.NewPaginationParams(2, 2, ""))
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "c", edges[0].TargetDeviceID)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)

	edges, _, err = env.trust.ListTrusted(ctx, "nobody", store.NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	assert.Empty(t, edges)
}
