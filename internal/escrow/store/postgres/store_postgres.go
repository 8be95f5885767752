package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"legado/internal/escrow/models"
	"legado/pkg/domain"
	"legado/pkg/platform/sentinel"
	txcontext "legado/pkg/platform/tx"
)

// Store persists agreements in PostgreSQL. All state transitions carry the
// expected source state in the WHERE clause, so a racing duplicate update
// affects zero rows and surfaces as sentinel.ErrInvalidState.
//
// Schema:
//
//	CREATE TABLE escrow_agreements (
//	    id               UUID PRIMARY KEY,
//	    testator_civil_id TEXT NOT NULL REFERENCES identities (civil_id),
//	    testator_wallet  TEXT NOT NULL,
//	    heir_civil_id    TEXT NOT NULL REFERENCES identities (civil_id),
//	    heir_wallet      TEXT NOT NULL,
//	    balance          BIGINT NOT NULL CHECK (balance >= 0),
//	    proof_activated  BOOLEAN NOT NULL DEFAULT FALSE,
//	    activated_at     TIMESTAMPTZ,
//	    waiting_period_s BIGINT NOT NULL,
//	    state            TEXT NOT NULL DEFAULT 'active',
//	    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
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

func (s *Store) Insert(ctx context.Context, agreement models.Agreement) error {
	query := `
		INSERT INTO escrow_agreements
			(id, testator_civil_id, testator_wallet, heir_civil_id, heir_wallet,
			 balance, waiting_period_s, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		agreement.ID.String(),
		agreement.TestatorCivilID.String(),
		agreement.TestatorWallet.String(),
		agreement.HeirCivilID.String(),
		agreement.HeirWallet.String(),
		agreement.Balance,
		int64(agreement.WaitingPeriod/time.Second),
		agreement.State.String(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert agreement: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, agreementID domain.AgreementID) (models.Agreement, error) {
	return s.findOne(ctx, agreementID, false)
}

func (s *Store) FindByIDForUpdate(ctx context.Context, agreementID domain.AgreementID) (models.Agreement, error) {
	return s.findOne(ctx, agreementID, true)
}

func (s *Store) findOne(ctx context.Context, agreementID domain.AgreementID, forUpdate bool) (models.Agreement, error) {
	query := `
		SELECT id, testator_civil_id, testator_wallet, heir_civil_id, heir_wallet,
		       balance, proof_activated, activated_at, waiting_period_s, state,
		       created_at, updated_at
		FROM escrow_agreements WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		agreement   models.Agreement
		id          string
		testatorCID string
		testatorW   string
		heirCID     string
		heirW       string
		activatedAt sql.NullTime
		waitingSecs int64
		state       string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, agreementID.String()).Scan(
		&id, &testatorCID, &testatorW, &heirCID, &heirW,
		&agreement.Balance, &agreement.ProofOfDeathActivated, &activatedAt,
		&waitingSecs, &state, &agreement.CreatedAt, &agreement.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Agreement{}, sentinel.ErrNotFound
		}
		return models.Agreement{}, fmt.Errorf("find agreement: %w", err)
	}

	parsedID, err := domain.ParseAgreementID(id)
	if err != nil {
		return models.Agreement{}, fmt.Errorf("agreement row %s: %w", id, err)
	}
	parsedState, err := models.ParseState(state)
	if err != nil {
		return models.Agreement{}, fmt.Errorf("agreement row %s: %w", id, err)
	}

	agreement.ID = parsedID
	agreement.TestatorCivilID = domain.CivilID(testatorCID)
	agreement.TestatorWallet = domain.Wallet(testatorW)
	agreement.HeirCivilID = domain.CivilID(heirCID)
	agreement.HeirWallet = domain.Wallet(heirW)
	agreement.WaitingPeriod = time.Duration(waitingSecs) * time.Second
	agreement.State = parsedState
	agreement.CreatedAt = agreement.CreatedAt.UTC()
	agreement.UpdatedAt = agreement.UpdatedAt.UTC()
	if activatedAt.Valid {
		at := activatedAt.Time.UTC()
		agreement.ActivatedAt = &at
	}
	return agreement, nil
}

func (s *Store) MarkProofActivated(ctx context.Context, agreementID domain.AgreementID, activatedAt time.Time) error {
	query := `
		UPDATE escrow_agreements
		SET proof_activated = TRUE, activated_at = $2, state = $3, updated_at = NOW()
		WHERE id = $1 AND state = $4
	`
	return s.transition(ctx, query,
		agreementID.String(), activatedAt.UTC(), models.StateProofActivated.String(), models.StateActive.String())
}

// MarkClaimed zeroes the balance and settles the agreement in one statement.
func (s *Store) MarkClaimed(ctx context.Context, agreementID domain.AgreementID) error {
	query := `
		UPDATE escrow_agreements
		SET balance = 0, state = $2, updated_at = NOW()
		WHERE id = $1 AND state = $3
	`
	return s.transition(ctx, query,
		agreementID.String(), models.StateClaimed.String(), models.StateProofActivated.String())
}

func (s *Store) MarkWithdrawn(ctx context.Context, agreementID domain.AgreementID) error {
	query := `
		UPDATE escrow_agreements
		SET balance = 0, state = $2, updated_at = NOW()
		WHERE id = $1 AND state = $3
	`
	return s.transition(ctx, query,
		agreementID.String(), models.StateWithdrawn.String(), models.StateActive.String())
}

func (s *Store) transition(ctx context.Context, query string, args ...any) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition agreement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition agreement affected rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}
