//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "legado/pkg/platform/audit"
	"legado/pkg/platform/audit/store/postgres"
	"legado/pkg/platform/tx"
	"legado/pkg/testutil/containers"
)

const auditDDL = `
CREATE TABLE audit_entries (
    seq           BIGSERIAL PRIMARY KEY,
    ts            TIMESTAMPTZ NOT NULL,
    operation     TEXT NOT NULL,
    actor         TEXT NOT NULL,
    entity_key    TEXT NOT NULL,
    before_digest TEXT NOT NULL DEFAULT '',
    after_digest  TEXT NOT NULL,
    published_at  TIMESTAMPTZ
);
CREATE INDEX audit_entries_entity_key_idx ON audit_entries (entity_key, seq);
CREATE INDEX audit_entries_unpublished_idx ON audit_entries (seq) WHERE published_at IS NULL`

func entry(op audit.Operation, key string) audit.Entry {
	return audit.Entry{
		Timestamp:   time.Now().UTC(),
		Operation:   op,
		Actor:       "0xactor",
		EntityKey:   key,
		AfterDigest: "digest",
	}
}

func TestAuditStorePostgres(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	pg.Exec(t, auditDDL)
	store := postgres.New(pg.DB)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, entry(audit.OpIdentityRegistered, "identity/V101")))
	require.NoError(t, store.Append(ctx, entry(audit.OpTitleRegistered, "asset/1")))
	require.NoError(t, store.Append(ctx, entry(audit.OpTitleTransferred, "asset/1")))

	t.Run("list by entity in sequence order", func(t *testing.T) {
		entries, err := store.ListByEntity(ctx, "asset/1")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, audit.OpTitleRegistered, entries[0].Operation)
		assert.Equal(t, audit.OpTitleTransferred, entries[1].Operation)
		assert.Less(t, entries[0].Seq, entries[1].Seq)
	})

	t.Run("list recent caps and orders", func(t *testing.T) {
		entries, err := store.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, audit.OpTitleRegistered, entries[0].Operation)
		assert.Equal(t, audit.OpTitleTransferred, entries[1].Operation)
	})

	t.Run("outbox drains via mark published", func(t *testing.T) {
		unpublished, err := store.ListUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, unpublished, 3)

		seqs := []uint64{unpublished[0].Seq, unpublished[1].Seq}
		require.NoError(t, store.MarkPublished(ctx, seqs))

		remaining, err := store.ListUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, unpublished[2].Seq, remaining[0].Seq)

		require.NoError(t, store.MarkPublished(ctx, []uint64{remaining[0].Seq}))
	})

	t.Run("append rolls back with the mutation", func(t *testing.T) {
		runner := tx.NewSQL(pg.DB)
		sentinelErr := errors.New("mutation failed")
		err := runner.RunInTx(ctx, func(ctx context.Context) error {
			if err := store.Append(ctx, entry(audit.OpEscrowCreated, "escrow/doomed")); err != nil {
				return err
			}
			return sentinelErr
		})
		require.ErrorIs(t, err, sentinelErr)

		entries, err := store.ListByEntity(ctx, "escrow/doomed")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
