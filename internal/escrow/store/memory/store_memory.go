package memory

import (
	"context"
	"sync"
	"time"

	"legado/internal/escrow/models"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
)

// InMemoryStore keeps agreements in process memory, keyed by agreement id.
type InMemoryStore struct {
	mu         sync.RWMutex
	agreements map[domain.AgreementID]*models.Agreement
}

func New() *InMemoryStore {
	return &InMemoryStore{agreements: make(map[domain.AgreementID]*models.Agreement)}
}

func (s *InMemoryStore) Insert(_ context.Context, agreement models.Agreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.agreements[agreement.ID]; exists {
		return sentinel.ErrDuplicate
	}
	now := time.Now().UTC()
	agreement.CreatedAt = now
	agreement.UpdatedAt = now
	stored := agreement
	s.agreements[agreement.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, agreementID domain.AgreementID) (models.Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if agreement, exists := s.agreements[agreementID]; exists {
		return *agreement, nil
	}
	return models.Agreement{}, sentinel.ErrNotFound
}

// FindByIDForUpdate is identical to FindByID here; exclusivity is provided
// by the serializing runner.
func (s *InMemoryStore) FindByIDForUpdate(ctx context.Context, agreementID domain.AgreementID) (models.Agreement, error) {
	return s.FindByID(ctx, agreementID)
}

func (s *InMemoryStore) MarkProofActivated(_ context.Context, agreementID domain.AgreementID, activatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agreement, exists := s.agreements[agreementID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if agreement.State != models.StateActive {
		return sentinel.ErrInvalidState
	}
	at := activatedAt.UTC()
	agreement.ProofOfDeathActivated = true
	agreement.ActivatedAt = &at
	agreement.State = models.StateProofActivated
	agreement.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) MarkClaimed(_ context.Context, agreementID domain.AgreementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agreement, exists := s.agreements[agreementID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if agreement.State != models.StateProofActivated {
		return sentinel.ErrInvalidState
	}
	agreement.Balance = 0
	agreement.State = models.StateClaimed
	agreement.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) MarkWithdrawn(_ context.Context, agreementID domain.AgreementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agreement, exists := s.agreements[agreementID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if agreement.State != models.StateActive {
		return sentinel.ErrInvalidState
	}
	agreement.Balance = 0
	agreement.State = models.StateWithdrawn
	agreement.UpdatedAt = time.Now().UTC()
	return nil
}
