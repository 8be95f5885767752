package publisher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legado/pkg/platform/audit"
	"legado/pkg/platform/audit/publisher"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Entry) error {
	return errors.New("disk full")
}
func (failingStore) ListByEntity(context.Context, string) ([]audit.Entry, error) { return nil, nil }
func (failingStore) ListRecent(context.Context, int) ([]audit.Entry, error)      { return nil, nil }

type capturingStore struct {
	last audit.Entry
}

func (s *capturingStore) Append(_ context.Context, entry audit.Entry) error {
	s.last = entry
	return nil
}
func (s *capturingStore) ListByEntity(context.Context, string) ([]audit.Entry, error) {
	return nil, nil
}
func (s *capturingStore) ListRecent(context.Context, int) ([]audit.Entry, error) { return nil, nil }

func TestRecordFailsClosed(t *testing.T) {
	recorder := publisher.New(failingStore{})
	err := recorder.Record(context.Background(), audit.Entry{
		Operation: audit.OpTitleRegistered,
		EntityKey: "asset/1",
	})
	require.Error(t, err)
}

func TestRecordStampsDefaults(t *testing.T) {
	store := &capturingStore{}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recorder := publisher.New(store, publisher.WithClock(func() time.Time { return fixed }))

	require.NoError(t, recorder.Record(context.Background(), audit.Entry{
		Operation: audit.OpEscrowCreated,
		EntityKey: "escrow/x",
	}))

	assert.Equal(t, fixed, store.last.Timestamp)
	assert.Equal(t, "system", store.last.Actor)
}

func TestRecordKeepsExplicitFields(t *testing.T) {
	store := &capturingStore{}
	recorder := publisher.New(store)

	stamped := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, recorder.Record(context.Background(), audit.Entry{
		Timestamp: stamped,
		Operation: audit.OpEscrowClaimed,
		Actor:     "0xheir",
		EntityKey: "escrow/x",
	}))

	assert.Equal(t, stamped, store.last.Timestamp)
	assert.Equal(t, "0xheir", store.last.Actor)
}
