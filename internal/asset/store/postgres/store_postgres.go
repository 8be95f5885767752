package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"legado/internal/asset/models"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
	txcontext "legado/pkg/platform/tx"
)

// Store persists titles in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE titles (
//	    asset_id         BIGSERIAL PRIMARY KEY,
//	    owner_civil_id   TEXT NOT NULL REFERENCES identities (civil_id),
//	    description      TEXT NOT NULL,
//	    owner_wallet     TEXT NOT NULL,
//	    under_succession BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX titles_owner_idx ON titles (owner_civil_id);
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const selectColumns = `asset_id, owner_civil_id, description, owner_wallet, under_succession, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, title models.Title) (domain.AssetID, error) {
	query := `
		INSERT INTO titles (owner_civil_id, description, owner_wallet, under_succession)
		VALUES ($1, $2, $3, $4)
		RETURNING asset_id
	`
	var id int64
	err := s.execer(ctx).QueryRowContext(ctx, query,
		title.OwnerCivilID.String(), title.Description, title.OwnerWallet.String(), title.UnderSuccession,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert title: %w", err)
	}
	return domain.AssetID(id), nil
}

func (s *Store) FindByID(ctx context.Context, assetID domain.AssetID) (models.Title, error) {
	return s.findOne(ctx, assetID, false)
}

// FindByIDForUpdate locks the title row for the enclosing transaction. This
// is the per-entity exclusivity point for every transfer, plan definition,
// and adjudication touching the asset.
func (s *Store) FindByIDForUpdate(ctx context.Context, assetID domain.AssetID) (models.Title, error) {
	return s.findOne(ctx, assetID, true)
}

func (s *Store) findOne(ctx context.Context, assetID domain.AssetID, forUpdate bool) (models.Title, error) {
	query := `SELECT ` + selectColumns + ` FROM titles WHERE asset_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	row := s.execer(ctx).QueryRowContext(ctx, query, int64(assetID))
	title, err := scanTitle(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Title{}, sentinel.ErrNotFound
		}
		return models.Title{}, fmt.Errorf("find title: %w", err)
	}
	return title, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerCivilID domain.CivilID) ([]models.Title, error) {
	query := `SELECT ` + selectColumns + ` FROM titles WHERE owner_civil_id = $1 ORDER BY asset_id`
	rows, err := s.execer(ctx).QueryContext(ctx, query, ownerCivilID.String())
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var out []models.Title
	for rows.Next() {
		title, err := scanTitle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		out = append(out, title)
	}
	return out, rows.Err()
}

func (s *Store) UpdateOwner(ctx context.Context, assetID domain.AssetID, owner domain.CivilID, wallet domain.Wallet, underSuccession bool) error {
	query := `
		UPDATE titles
		SET owner_civil_id = $2, owner_wallet = $3, under_succession = $4, updated_at = NOW()
		WHERE asset_id = $1
	`
	return s.exec(ctx, query, int64(assetID), owner.String(), wallet.String(), underSuccession)
}

func (s *Store) SetUnderSuccession(ctx context.Context, assetID domain.AssetID, underSuccession bool) error {
	query := `UPDATE titles SET under_succession = $2, updated_at = NOW() WHERE asset_id = $1`
	return s.exec(ctx, query, int64(assetID), underSuccession)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update title affected rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanTitle(scan func(dest ...any) error) (models.Title, error) {
	var (
		title   models.Title
		assetID int64
		owner   string
		wallet  string
	)
	if err := scan(&assetID, &owner, &title.Description, &wallet, &title.UnderSuccession, &title.CreatedAt, &title.UpdatedAt); err != nil {
		return models.Title{}, err
	}
	title.AssetID = domain.AssetID(assetID)
	title.OwnerCivilID = domain.CivilID(owner)
	title.OwnerWallet = domain.Wallet(wallet)
	title.CreatedAt = title.CreatedAt.UTC()
	title.UpdatedAt = title.UpdatedAt.UTC()
	return title, nil
}
