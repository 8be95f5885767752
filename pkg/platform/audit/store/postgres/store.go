package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	audit "legado/pkg/platform/audit"
	txcontext "legado/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL using the transactional outbox
// pattern. Entries are appended to audit_entries in the same transaction as
// the mutation they record, and the outbox worker publishes them to Kafka for
// external observers.
//
// Schema:
//
//	CREATE TABLE audit_entries (
//	    seq           BIGSERIAL PRIMARY KEY,
//	    ts            TIMESTAMPTZ NOT NULL,
//	    operation     TEXT NOT NULL,
//	    actor         TEXT NOT NULL,
//	    entity_key    TEXT NOT NULL,
//	    before_digest TEXT NOT NULL DEFAULT '',
//	    after_digest  TEXT NOT NULL,
//	    published_at  TIMESTAMPTZ
//	);
//	CREATE INDEX audit_entries_entity_key_idx ON audit_entries (entity_key, seq);
//	CREATE INDEX audit_entries_unpublished_idx ON audit_entries (seq) WHERE published_at IS NULL;
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts the entry. When ctx carries a transaction the append commits
// or rolls back with the mutation, which is what makes the trail trustworthy:
// no accepted mutation without its entry, no entry without its mutation.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	query := `
		INSERT INTO audit_entries (ts, operation, actor, entity_key, before_digest, after_digest)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		ts, string(entry.Operation), entry.Actor, entry.EntityKey, entry.BeforeDigest, entry.AfterDigest)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListByEntity(ctx context.Context, entityKey string) ([]audit.Entry, error) {
	query := `
		SELECT seq, ts, operation, actor, entity_key, before_digest, after_digest
		FROM audit_entries
		WHERE entity_key = $1
		ORDER BY seq
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, entityKey)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	query := `
		SELECT seq, ts, operation, actor, entity_key, before_digest, after_digest
		FROM (
			SELECT seq, ts, operation, actor, entity_key, before_digest, after_digest
			FROM audit_entries ORDER BY seq DESC LIMIT $1
		) latest
		ORDER BY seq
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListUnpublished returns entries not yet pushed to the audit topic, oldest
// first, for the outbox worker.
func (s *Store) ListUnpublished(ctx context.Context, limit int) ([]audit.Entry, error) {
	query := `
		SELECT seq, ts, operation, actor, entity_key, before_digest, after_digest
		FROM audit_entries
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// MarkPublished stamps entries after the broker acknowledged them. Publishing
// is at-least-once: a crash between produce and mark replays the batch, and
// consumers dedupe on seq.
func (s *Store) MarkPublished(ctx context.Context, seqs []uint64) error {
	if len(seqs) == 0 {
		return nil
	}
	ids := make([]int64, len(seqs))
	for i, seq := range seqs {
		ids[i] = int64(seq)
	}
	query := `UPDATE audit_entries SET published_at = NOW() WHERE seq = ANY($1)`
	if _, err := s.execer(ctx).ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("mark audit entries published: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var out []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var op string
		if err := rows.Scan(&e.Seq, &e.Timestamp, &op, &e.Actor, &e.EntityKey, &e.BeforeDigest, &e.AfterDigest); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Operation = audit.Operation(op)
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
