package memory

import (
	"context"
	"sync"
	"time"

	"legado/internal/asset/models"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
)

// InMemoryStore keeps titles in process memory with sequential asset ids.
// Per-entity exclusivity across stores comes from the tx.Exclusive runner;
// the store's own lock protects its maps.
type InMemoryStore struct {
	mu      sync.RWMutex
	titles  map[domain.AssetID]*models.Title
	byOwner map[domain.CivilID]map[domain.AssetID]bool
	nextID  domain.AssetID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		titles:  make(map[domain.AssetID]*models.Title),
		byOwner: make(map[domain.CivilID]map[domain.AssetID]bool),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, title models.Title) (domain.AssetID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	title.AssetID = s.nextID
	now := time.Now().UTC()
	title.CreatedAt = now
	title.UpdatedAt = now

	stored := title
	s.titles[title.AssetID] = &stored
	s.index(title.OwnerCivilID, title.AssetID)
	return title.AssetID, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, assetID domain.AssetID) (models.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if title, exists := s.titles[assetID]; exists {
		return *title, nil
	}
	return models.Title{}, sentinel.ErrNotFound
}

// FindByIDForUpdate is identical to FindByID here; exclusivity is provided
// by the serializing runner, not row locks.
func (s *InMemoryStore) FindByIDForUpdate(ctx context.Context, assetID domain.AssetID) (models.Title, error) {
	return s.FindByID(ctx, assetID)
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerCivilID domain.CivilID) ([]models.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Title, 0, len(s.byOwner[ownerCivilID]))
	for assetID := range s.byOwner[ownerCivilID] {
		out = append(out, *s.titles[assetID])
	}
	return out, nil
}

func (s *InMemoryStore) UpdateOwner(_ context.Context, assetID domain.AssetID, owner domain.CivilID, wallet domain.Wallet, underSuccession bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	title, exists := s.titles[assetID]
	if !exists {
		return sentinel.ErrNotFound
	}

	delete(s.byOwner[title.OwnerCivilID], assetID)
	title.OwnerCivilID = owner
	title.OwnerWallet = wallet
	title.UnderSuccession = underSuccession
	title.UpdatedAt = time.Now().UTC()
	s.index(owner, assetID)
	return nil
}

func (s *InMemoryStore) SetUnderSuccession(_ context.Context, assetID domain.AssetID, underSuccession bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	title, exists := s.titles[assetID]
	if !exists {
		return sentinel.ErrNotFound
	}
	title.UnderSuccession = underSuccession
	title.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) index(owner domain.CivilID, assetID domain.AssetID) {
	if s.byOwner[owner] == nil {
		s.byOwner[owner] = make(map[domain.AssetID]bool)
	}
	s.byOwner[owner][assetID] = true
}
