//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legado/internal/escrow/models"
	"legado/internal/escrow/store/postgres"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
	"legado/pkg/testutil/containers"
)

const escrowDDL = `
CREATE TABLE identities (
    id             BIGSERIAL PRIMARY KEY,
    civil_id       TEXT NOT NULL UNIQUE,
    given_names    TEXT NOT NULL,
    surnames       TEXT NOT NULL,
    gender         TEXT NOT NULL DEFAULT '',
    birth_date     TIMESTAMPTZ,
    birth_place    TEXT NOT NULL DEFAULT '',
    marital_status TEXT NOT NULL DEFAULT '',
    address        TEXT NOT NULL DEFAULT '',
    phone          TEXT NOT NULL DEFAULT '',
    profession     TEXT NOT NULL DEFAULT '',
    wallet         TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE escrow_agreements (
    id               UUID PRIMARY KEY,
    testator_civil_id TEXT NOT NULL REFERENCES identities (civil_id),
    testator_wallet  TEXT NOT NULL,
    heir_civil_id    TEXT NOT NULL REFERENCES identities (civil_id),
    heir_wallet      TEXT NOT NULL,
    balance          BIGINT NOT NULL CHECK (balance >= 0),
    proof_activated  BOOLEAN NOT NULL DEFAULT FALSE,
    activated_at     TIMESTAMPTZ,
    waiting_period_s BIGINT NOT NULL,
    state            TEXT NOT NULL DEFAULT 'active',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func TestEscrowStorePostgres(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	pg.Exec(t, escrowDDL,
		`INSERT INTO identities (civil_id, given_names, surnames, wallet) VALUES
			('V-TEST', 'Given', 'Sur', '0xtestator'),
			('V-HEIR', 'Given', 'Sur', '0xheir')`)
	store := postgres.New(pg.DB)
	ctx := context.Background()

	agreement := models.Agreement{
		ID:              domain.NewAgreementID(),
		TestatorCivilID: "V-TEST",
		TestatorWallet:  "0xtestator",
		HeirCivilID:     "V-HEIR",
		HeirWallet:      "0xheir",
		Balance:         10_000,
		WaitingPeriod:   30 * 24 * time.Hour,
		State:           models.StateActive,
	}
	require.NoError(t, store.Insert(ctx, agreement))

	t.Run("duplicate id", func(t *testing.T) {
		assert.ErrorIs(t, store.Insert(ctx, agreement), sentinel.ErrDuplicate)
	})

	t.Run("round trip", func(t *testing.T) {
		got, err := store.FindByID(ctx, agreement.ID)
		require.NoError(t, err)
		assert.Equal(t, agreement.ID, got.ID)
		assert.Equal(t, int64(10_000), got.Balance)
		assert.Equal(t, 30*24*time.Hour, got.WaitingPeriod)
		assert.Equal(t, models.StateActive, got.State)
		assert.False(t, got.ProofOfDeathActivated)
		assert.Nil(t, got.ActivatedAt)
	})

	t.Run("claim before activation is an invalid transition", func(t *testing.T) {
		assert.ErrorIs(t, store.MarkClaimed(ctx, agreement.ID), sentinel.ErrInvalidState)
	})

	activatedAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	t.Run("proof activation", func(t *testing.T) {
		require.NoError(t, store.MarkProofActivated(ctx, agreement.ID, activatedAt))

		got, err := store.FindByID(ctx, agreement.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateProofActivated, got.State)
		assert.True(t, got.ProofOfDeathActivated)
		require.NotNil(t, got.ActivatedAt)
		assert.True(t, got.ActivatedAt.Equal(activatedAt))

		// Repeating the transition affects zero rows.
		assert.ErrorIs(t, store.MarkProofActivated(ctx, agreement.ID, activatedAt), sentinel.ErrInvalidState)
	})

	t.Run("withdrawal loses after activation", func(t *testing.T) {
		assert.ErrorIs(t, store.MarkWithdrawn(ctx, agreement.ID), sentinel.ErrInvalidState)
	})

	t.Run("claim settles once", func(t *testing.T) {
		require.NoError(t, store.MarkClaimed(ctx, agreement.ID))

		got, err := store.FindByID(ctx, agreement.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateClaimed, got.State)
		assert.Zero(t, got.Balance)

		assert.ErrorIs(t, store.MarkClaimed(ctx, agreement.ID), sentinel.ErrInvalidState)
	})

	t.Run("unknown agreement", func(t *testing.T) {
		_, err := store.FindByID(ctx, domain.NewAgreementID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
