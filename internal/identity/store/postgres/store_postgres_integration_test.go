//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legado/internal/identity/models"
	"legado/internal/identity/store/postgres"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
	"legado/pkg/testutil/containers"
)

const identitiesDDL = `
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
)`

func TestIdentityStorePostgres(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	pg.Exec(t, identitiesDDL)
	store := postgres.New(pg.DB)
	ctx := context.Background()

	birthDate := time.Date(1988, 4, 12, 0, 0, 0, 0, time.UTC)
	id, err := store.Insert(ctx, models.Identity{
		CivilID:    "V101",
		GivenNames: "Ana Lucia",
		Surnames:   "Perez",
		Wallet:     "0xana",
		Profile: models.Profile{
			Gender:        domain.GenderFemale,
			BirthDate:     &birthDate,
			BirthPlace:    "Caracas",
			MaritalStatus: "single",
			Profession:    "Engineer",
		},
	})
	require.NoError(t, err)
	require.Positive(t, int64(id))

	t.Run("duplicate civil id", func(t *testing.T) {
		_, err := store.Insert(ctx, models.Identity{
			CivilID: "V101", GivenNames: "Other", Surnames: "Person", Wallet: "0xother",
		})
		assert.ErrorIs(t, err, sentinel.ErrDuplicate)
	})

	t.Run("find by id and civil id", func(t *testing.T) {
		byID, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.CivilID("V101"), byID.CivilID)
		assert.Equal(t, domain.GenderFemale, byID.Profile.Gender)
		require.NotNil(t, byID.Profile.BirthDate)
		assert.True(t, byID.Profile.BirthDate.Equal(birthDate))

		byCivil, err := store.FindByCivilID(ctx, "V101")
		require.NoError(t, err)
		assert.Equal(t, byID.ID, byCivil.ID)
	})

	t.Run("unknown lookups", func(t *testing.T) {
		_, err := store.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		_, err = store.FindByCivilID(ctx, "V999")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		identity, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		identity.Profile.Address = "Av. Libertador 42"
		identity.Wallet = "0xana2"
		require.NoError(t, store.Update(ctx, identity))

		updated, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Av. Libertador 42", updated.Profile.Address)
		assert.Equal(t, domain.Wallet("0xana2"), updated.Wallet)
	})

	t.Run("update unknown id", func(t *testing.T) {
		err := store.Update(ctx, models.Identity{ID: 9999, CivilID: "V101", Wallet: "0x"})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
