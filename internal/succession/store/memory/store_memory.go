package memory

import (
	"context"
	"sync"
	"time"

	"legado/internal/succession/models"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
)

// InMemoryStore keeps plans in process memory, keyed by asset id.
type InMemoryStore struct {
	mu    sync.RWMutex
	plans map[domain.AssetID]*models.Plan
}

func New() *InMemoryStore {
	return &InMemoryStore{plans: make(map[domain.AssetID]*models.Plan)}
}

func (s *InMemoryStore) Insert(_ context.Context, plan models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[plan.AssetID]; exists {
		return sentinel.ErrDuplicate
	}
	plan.CreatedAt = time.Now().UTC()
	stored := clonePlan(plan)
	s.plans[plan.AssetID] = &stored
	return nil
}

func (s *InMemoryStore) Replace(_ context.Context, plan models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.plans[plan.AssetID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if existing.Executed {
		return sentinel.ErrInvalidState
	}
	plan.CreatedAt = time.Now().UTC()
	stored := clonePlan(plan)
	s.plans[plan.AssetID] = &stored
	return nil
}

func (s *InMemoryStore) FindByAsset(_ context.Context, assetID domain.AssetID) (models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if plan, exists := s.plans[assetID]; exists {
		return clonePlan(*plan), nil
	}
	return models.Plan{}, sentinel.ErrNotFound
}

// FindByAssetForUpdate is identical to FindByAsset here; exclusivity is
// provided by the serializing runner.
func (s *InMemoryStore) FindByAssetForUpdate(ctx context.Context, assetID domain.AssetID) (models.Plan, error) {
	return s.FindByAsset(ctx, assetID)
}

func (s *InMemoryStore) MarkExecuted(_ context.Context, assetID domain.AssetID, executedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, exists := s.plans[assetID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if plan.Executed {
		return sentinel.ErrInvalidState
	}
	plan.Executed = true
	at := executedAt.UTC()
	plan.ExecutedAt = &at
	return nil
}

func clonePlan(plan models.Plan) models.Plan {
	plan.Heirs = append([]models.HeirShare{}, plan.Heirs...)
	return plan
}
