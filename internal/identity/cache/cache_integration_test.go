//go:build integration

package cache_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legado/internal/identity/cache"
	"legado/internal/identity/models"
	"legado/internal/identity/service"
	identitymemory "legado/internal/identity/store/memory"
	"legado/internal/platform/logger"
	"legado/pkg/domain"
	"legado/pkg/testutil/containers"
)

// countingStore counts reads that reach the underlying store.
type countingStore struct {
	service.Store
	loads atomic.Int64
}

func (c *countingStore) FindByCivilID(ctx context.Context, civilID domain.CivilID) (models.Identity, error) {
	c.loads.Add(1)
	return c.Store.FindByCivilID(ctx, civilID)
}

func (c *countingStore) FindByID(ctx context.Context, identityID domain.IdentityID) (models.Identity, error) {
	c.loads.Add(1)
	return c.Store.FindByID(ctx, identityID)
}

func TestIdentityCacheRedis(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	backing := &countingStore{Store: identitymemory.New()}
	store := cache.New(backing, rc.Client, logger.New())

	id, err := store.Insert(ctx, models.Identity{
		CivilID:    "V101",
		GivenNames: "Ana Lucia",
		Surnames:   "Perez",
		Wallet:     "0xana",
	})
	require.NoError(t, err)

	t.Run("read through populates the cache", func(t *testing.T) {
		first, err := store.FindByCivilID(ctx, "V101")
		require.NoError(t, err)
		loadsAfterFirst := backing.loads.Load()

		second, err := store.FindByCivilID(ctx, "V101")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, loadsAfterFirst, backing.loads.Load(), "second read should be served from redis")
	})

	t.Run("update invalidates both keys", func(t *testing.T) {
		// Warm both cache keys.
		_, err := store.FindByID(ctx, id)
		require.NoError(t, err)

		identity, err := store.FindByCivilID(ctx, "V101")
		require.NoError(t, err)
		identity.Profile.Profession = "Notary"
		require.NoError(t, store.Update(ctx, identity))

		updated, err := store.FindByCivilID(ctx, "V101")
		require.NoError(t, err)
		assert.Equal(t, "Notary", updated.Profile.Profession)

		byID, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Notary", byID.Profile.Profession)
	})

	t.Run("redis flush falls back to the store", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		identity, err := store.FindByCivilID(ctx, "V101")
		require.NoError(t, err)
		assert.Equal(t, domain.CivilID("V101"), identity.CivilID)
	})
}
