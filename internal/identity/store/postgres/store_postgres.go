package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"legado/internal/identity/models"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
	txcontext "legado/pkg/platform/tx"
)

// Store persists identities in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE identities (
//	    id             BIGSERIAL PRIMARY KEY,
//	    civil_id       TEXT NOT NULL UNIQUE,
//	    given_names    TEXT NOT NULL,
//	    surnames       TEXT NOT NULL,
//	    gender         TEXT NOT NULL DEFAULT '',
//	    birth_date     TIMESTAMPTZ,
//	    birth_place    TEXT NOT NULL DEFAULT '',
//	    marital_status TEXT NOT NULL DEFAULT '',
//	    address        TEXT NOT NULL DEFAULT '',
//	    phone          TEXT NOT NULL DEFAULT '',
//	    profession     TEXT NOT NULL DEFAULT '',
//	    wallet         TEXT NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
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

func (s *Store) Insert(ctx context.Context, identity models.Identity) (domain.IdentityID, error) {
	query := `
		INSERT INTO identities (civil_id, given_names, surnames, gender, birth_date, birth_place,
		                        marital_status, address, phone, profession, wallet)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	var id int64
	err := s.execer(ctx).QueryRowContext(ctx, query,
		identity.CivilID.String(), identity.GivenNames, identity.Surnames,
		identity.Profile.Gender.String(), identity.Profile.BirthDate, identity.Profile.BirthPlace,
		identity.Profile.MaritalStatus.String(), identity.Profile.Address, identity.Profile.Phone,
		identity.Profile.Profession, identity.Wallet.String(),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, sentinel.ErrDuplicate
		}
		return 0, fmt.Errorf("insert identity: %w", err)
	}
	return domain.IdentityID(id), nil
}

func (s *Store) Update(ctx context.Context, identity models.Identity) error {
	query := `
		UPDATE identities
		SET given_names = $2, surnames = $3, gender = $4, birth_date = $5, birth_place = $6,
		    marital_status = $7, address = $8, phone = $9, profession = $10, wallet = $11,
		    updated_at = NOW()
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		int64(identity.ID), identity.GivenNames, identity.Surnames,
		identity.Profile.Gender.String(), identity.Profile.BirthDate, identity.Profile.BirthPlace,
		identity.Profile.MaritalStatus.String(), identity.Profile.Address, identity.Profile.Phone,
		identity.Profile.Profession, identity.Wallet.String(),
	)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity affected rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) FindByCivilID(ctx context.Context, civilID domain.CivilID) (models.Identity, error) {
	return s.findOne(ctx, `WHERE civil_id = $1`, civilID.String())
}

func (s *Store) FindByID(ctx context.Context, identityID domain.IdentityID) (models.Identity, error) {
	return s.findOne(ctx, `WHERE id = $1`, int64(identityID))
}

func (s *Store) findOne(ctx context.Context, where string, arg any) (models.Identity, error) {
	query := `
		SELECT id, civil_id, given_names, surnames, gender, birth_date, birth_place,
		       marital_status, address, phone, profession, wallet, created_at, updated_at
		FROM identities ` + where
	row := s.execer(ctx).QueryRowContext(ctx, query, arg)

	var (
		identity  models.Identity
		id        int64
		civilID   string
		gender    string
		marital   string
		wallet    string
		birthDate sql.NullTime
	)
	err := row.Scan(&id, &civilID, &identity.GivenNames, &identity.Surnames,
		&gender, &birthDate, &identity.Profile.BirthPlace, &marital,
		&identity.Profile.Address, &identity.Profile.Phone, &identity.Profile.Profession,
		&wallet, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Identity{}, sentinel.ErrNotFound
		}
		return models.Identity{}, fmt.Errorf("find identity: %w", err)
	}

	identity.ID = domain.IdentityID(id)
	identity.CivilID = domain.CivilID(civilID)
	identity.Profile.Gender = domain.Gender(gender)
	identity.Profile.MaritalStatus = domain.MaritalStatus(marital)
	identity.Wallet = domain.Wallet(wallet)
	if birthDate.Valid {
		bd := birthDate.Time.UTC()
		identity.Profile.BirthDate = &bd
	}
	identity.CreatedAt = identity.CreatedAt.UTC()
	identity.UpdatedAt = identity.UpdatedAt.UTC()
	return identity, nil
}
