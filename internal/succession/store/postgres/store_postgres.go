package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"legado/internal/succession/models"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
	txcontext "legado/pkg/platform/tx"
)

// Store persists plans in PostgreSQL. Heir lists are small and read as a
// unit, so they live in parallel arrays on the plan row rather than a child
// table.
//
// Schema:
//
//	CREATE TABLE succession_plans (
//	    asset_id       BIGINT PRIMARY KEY REFERENCES titles (asset_id),
//	    heir_civil_ids TEXT[] NOT NULL,
//	    share_percents INT[] NOT NULL,
//	    executed       BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    executed_at    TIMESTAMPTZ
//	);
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const uniqueViolation = "23505"

func splitHeirs(heirs []models.HeirShare) ([]string, []int64) {
	ids := make([]string, len(heirs))
	shares := make([]int64, len(heirs))
	for i, heir := range heirs {
		ids[i] = heir.HeirCivilID.String()
		shares[i] = int64(heir.SharePercent)
	}
	return ids, shares
}

func (s *Store) Insert(ctx context.Context, plan models.Plan) error {
	ids, shares := splitHeirs(plan.Heirs)
	query := `
		INSERT INTO succession_plans (asset_id, heir_civil_ids, share_percents)
		VALUES ($1, $2, $3)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, int64(plan.AssetID), pq.Array(ids), pq.Array(shares))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, plan models.Plan) error {
	ids, shares := splitHeirs(plan.Heirs)
	query := `
		UPDATE succession_plans
		SET heir_civil_ids = $2, share_percents = $3, created_at = NOW()
		WHERE asset_id = $1 AND NOT executed
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, int64(plan.AssetID), pq.Array(ids), pq.Array(shares))
	if err != nil {
		return fmt.Errorf("replace plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace plan affected rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) FindByAsset(ctx context.Context, assetID domain.AssetID) (models.Plan, error) {
	return s.findOne(ctx, assetID, false)
}

func (s *Store) FindByAssetForUpdate(ctx context.Context, assetID domain.AssetID) (models.Plan, error) {
	return s.findOne(ctx, assetID, true)
}

func (s *Store) findOne(ctx context.Context, assetID domain.AssetID, forUpdate bool) (models.Plan, error) {
	query := `
		SELECT asset_id, heir_civil_ids, share_percents, executed, created_at, executed_at
		FROM succession_plans WHERE asset_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		plan       models.Plan
		id         int64
		heirIDs    []string
		sharePcts  []int64
		executedAt sql.NullTime
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, int64(assetID)).Scan(
		&id, pq.Array(&heirIDs), pq.Array(&sharePcts), &plan.Executed, &plan.CreatedAt, &executedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Plan{}, sentinel.ErrNotFound
		}
		return models.Plan{}, fmt.Errorf("find plan: %w", err)
	}
	if len(heirIDs) != len(sharePcts) {
		return models.Plan{}, fmt.Errorf("plan %d has mismatched heir arrays", id)
	}

	plan.AssetID = domain.AssetID(id)
	plan.Heirs = make([]models.HeirShare, len(heirIDs))
	for i := range heirIDs {
		plan.Heirs[i] = models.HeirShare{
			HeirCivilID:  domain.CivilID(heirIDs[i]),
			SharePercent: int(sharePcts[i]),
		}
	}
	plan.CreatedAt = plan.CreatedAt.UTC()
	if executedAt.Valid {
		at := executedAt.Time.UTC()
		plan.ExecutedAt = &at
	}
	return plan, nil
}

// MarkExecuted flips the plan to its terminal state. The executed guard in
// the WHERE clause makes a replayed execution a no-op at the storage level
// even if the service check were bypassed.
func (s *Store) MarkExecuted(ctx context.Context, assetID domain.AssetID, executedAt time.Time) error {
	query := `
		UPDATE succession_plans
		SET executed = TRUE, executed_at = $2
		WHERE asset_id = $1 AND NOT executed
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, int64(assetID), executedAt.UTC())
	if err != nil {
		return fmt.Errorf("mark plan executed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark plan executed affected rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}
