package memory

import (
	"context"
	"sync"
	"time"

	"legado/internal/identity/models"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in process memory. Numeric ids are assigned
// sequentially under the store lock and never reused.
type InMemoryStore struct {
	mu        sync.RWMutex
	byCivilID map[domain.CivilID]*models.Identity
	byID      map[domain.IdentityID]*models.Identity
	nextID    domain.IdentityID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		byCivilID: make(map[domain.CivilID]*models.Identity),
		byID:      make(map[domain.IdentityID]*models.Identity),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, identity models.Identity) (domain.IdentityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCivilID[identity.CivilID]; exists {
		return 0, sentinel.ErrDuplicate
	}

	s.nextID++
	identity.ID = s.nextID
	now := time.Now().UTC()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	stored := identity
	s.byCivilID[identity.CivilID] = &stored
	s.byID[identity.ID] = &stored
	return identity.ID, nil
}

func (s *InMemoryStore) Update(_ context.Context, identity models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.byID[identity.ID]
	if !exists {
		return sentinel.ErrNotFound
	}

	// CivilID and ID are immutable; only profile fields and wallet move.
	stored.GivenNames = identity.GivenNames
	stored.Surnames = identity.Surnames
	stored.Profile = identity.Profile
	stored.Wallet = identity.Wallet
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) FindByCivilID(_ context.Context, civilID domain.CivilID) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if identity, exists := s.byCivilID[civilID]; exists {
		return *identity, nil
	}
	return models.Identity{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, identityID domain.IdentityID) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if identity, exists := s.byID[identityID]; exists {
		return *identity, nil
	}
	return models.Identity{}, sentinel.ErrNotFound
}
