package memory

import (
	"context"
	"sync"

	audit "legado/pkg/platform/audit"
)

// InMemoryStore keeps the audit trail in process memory. Sequence numbers are
// assigned under the store lock so appends racing from different services
// still observe a strict total order.
type InMemoryStore struct {
	mu          sync.RWMutex
	entries     []audit.Entry
	byEntity    map[string][]int
	unpublished []int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byEntity: make(map[string][]int)}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Seq = uint64(len(s.entries) + 1)
	idx := len(s.entries)
	s.entries = append(s.entries, entry)
	s.byEntity[entry.EntityKey] = append(s.byEntity[entry.EntityKey], idx)
	s.unpublished = append(s.unpublished, idx)
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityKey string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idxs := s.byEntity[entityKey]
	out := make([]audit.Entry, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.entries) - limit
	if start < 0 {
		start = 0
	}
	return append([]audit.Entry{}, s.entries[start:]...), nil
}

func (s *InMemoryStore) ListUnpublished(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.unpublished)
	if n > limit {
		n = limit
	}
	out := make([]audit.Entry, 0, n)
	for _, i := range s.unpublished[:n] {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, seqs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	published := make(map[uint64]bool, len(seqs))
	for _, seq := range seqs {
		published[seq] = true
	}
	remaining := s.unpublished[:0]
	for _, i := range s.unpublished {
		if !published[s.entries[i].Seq] {
			remaining = append(remaining, i)
		}
	}
	s.unpublished = remaining
	return nil
}
