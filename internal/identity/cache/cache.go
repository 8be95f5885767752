// Package cache decorates the identity store with a Redis read-through cache.
// Registry lookups dominate traffic (every asset, plan, and escrow operation
// validates identities), while identity writes are rare.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"legado/internal/identity/models"
	"legado/internal/identity/service"
	"legado/pkg/domain"
	txcontext "legado/pkg/platform/tx"
)

// TTL bounds how long sensitive registry data may be retained in the cache.
var TTL = 5 * time.Minute

// Store wraps an identity store with Redis. Cache misses and Redis failures
// fall through to the underlying store; the cache is an optimization, never
// a source of truth.
type Store struct {
	next   service.Store
	client *redis.Client
	logger *slog.Logger
}

func New(next service.Store, client *redis.Client, logger *slog.Logger) *Store {
	return &Store{next: next, client: client, logger: logger}
}

func civilIDKey(civilID domain.CivilID) string {
	return "identity:civil:" + civilID.String()
}

func idKey(identityID domain.IdentityID) string {
	return fmt.Sprintf("identity:id:%d", identityID)
}

// Insert passes through; a fresh identity has nothing cached yet.
func (s *Store) Insert(ctx context.Context, identity models.Identity) (domain.IdentityID, error) {
	return s.next.Insert(ctx, identity)
}

// Update passes through and drops both cache keys, since full registration
// may change the wallet that titles denormalize at registration time.
func (s *Store) Update(ctx context.Context, identity models.Identity) error {
	if err := s.next.Update(ctx, identity); err != nil {
		return err
	}
	if err := s.client.Del(ctx, civilIDKey(identity.CivilID), idKey(identity.ID)).Err(); err != nil {
		s.logger.WarnContext(ctx, "identity cache invalidation failed",
			"civil_id", identity.CivilID.String(),
			"error", err.Error(),
		)
	}
	return nil
}

func (s *Store) FindByCivilID(ctx context.Context, civilID domain.CivilID) (models.Identity, error) {
	return s.findCached(ctx, civilIDKey(civilID), func(ctx context.Context) (models.Identity, error) {
		return s.next.FindByCivilID(ctx, civilID)
	})
}

func (s *Store) FindByID(ctx context.Context, identityID domain.IdentityID) (models.Identity, error) {
	return s.findCached(ctx, idKey(identityID), func(ctx context.Context) (models.Identity, error) {
		return s.next.FindByID(ctx, identityID)
	})
}

func (s *Store) findCached(ctx context.Context, key string, load func(ctx context.Context) (models.Identity, error)) (models.Identity, error) {
	// Reads inside a mutation's transaction must see the transactional
	// snapshot, not a possibly stale cache line.
	if _, inTx := txcontext.From(ctx); inTx {
		return load(ctx)
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var identity models.Identity
		if err := json.Unmarshal(raw, &identity); err == nil {
			return identity, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "identity cache read failed", "key", key, "error", err.Error())
	}

	identity, err := load(ctx)
	if err != nil {
		return models.Identity{}, err
	}

	if raw, err := json.Marshal(identity); err == nil {
		if err := s.client.Set(ctx, key, raw, TTL).Err(); err != nil {
			s.logger.WarnContext(ctx, "identity cache write failed", "key", key, "error", err.Error())
		}
	}
	return identity, nil
}
