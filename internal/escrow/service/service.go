// Package service implements the time-locked escrow release engine.
//
// State machine per agreement:
//
//	Active --ActivateProofOfDeath--> ProofActivated --Claim--> Claimed
//	Active --Withdraw--> Withdrawn
//
// Claimed and Withdrawn are terminal. Withdrawal is deliberately closed once
// proof of death is activated: the heir's waiting-period clock, once started,
// is not the testator's to stop.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"legado/internal/escrow/models"
	identitymodels "legado/internal/identity/models"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
	"legado/pkg/platform/audit"
	"legado/pkg/platform/sentinel"
	"legado/pkg/platform/tx"
)

// Store persists agreements. The Mark transitions are compare-and-set: they
// return sentinel.ErrInvalidState when the agreement is not in the expected
// source state, which makes a racing duplicate transition lose cleanly even
// below the service-level checks.
type Store interface {
	Insert(ctx context.Context, agreement models.Agreement) error
	FindByID(ctx context.Context, agreementID domain.AgreementID) (models.Agreement, error)
	FindByIDForUpdate(ctx context.Context, agreementID domain.AgreementID) (models.Agreement, error)
	MarkProofActivated(ctx context.Context, agreementID domain.AgreementID, activatedAt time.Time) error
	MarkClaimed(ctx context.Context, agreementID domain.AgreementID) error
	MarkWithdrawn(ctx context.Context, agreementID domain.AgreementID) error
}

// Identities validates testator and heir at creation time.
type Identities interface {
	FindByCivilID(ctx context.Context, civilID domain.CivilID) (identitymodels.Identity, error)
}

// Attestor decides who may assert a testator's death. The trust mechanism
// behind it (notary allowlist, multi-party attestation, external oracle) is
// a deployment concern; the engine only requires the yes/no answer.
type Attestor interface {
	Authorize(ctx context.Context, caller domain.Wallet, agreement models.Agreement) error
}

// AuditRecorder appends an audit entry; failure aborts the mutation.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Metrics is the counter surface the service reports to.
type Metrics interface {
	IncEscrowsCreated()
	IncEscrowTransition(state string)
}

type Service struct {
	store      Store
	identities Identities
	attestor   Attestor
	runner     tx.Runner
	auditor    AuditRecorder
	logger     *slog.Logger
	metrics    Metrics
	tracer     trace.Tracer
	clock      func() time.Time
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock sets the time source, for testing the waiting-period gate.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(store Store, identities Identities, attestor Attestor, runner tx.Runner, auditor AuditRecorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("escrow store is required")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if attestor == nil {
		return nil, fmt.Errorf("attestor is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	svc := &Service{
		store:      store,
		identities: identities,
		attestor:   attestor,
		runner:     runner,
		auditor:    auditor,
		logger:     slog.Default(),
		tracer:     otel.Tracer("legado/escrow"),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateAgreement is the funding request for a new escrow.
type CreateAgreement struct {
	TestatorCivilID domain.CivilID
	TestatorWallet  domain.Wallet
	HeirCivilID     domain.CivilID
	HeirWallet      domain.Wallet
	Deposit         int64
	WaitingPeriod   time.Duration
}

// Create funds a new agreement. Both parties must already hold identities.
//
// Errors: CodeValidation (non-positive deposit or waiting period, missing
// wallets), CodeNotFound (testator or heir unregistered).
func (s *Service) Create(ctx context.Context, actor domain.Wallet, req CreateAgreement) (models.Agreement, error) {
	ctx, span := s.tracer.Start(ctx, "escrow.Create")
	defer span.End()

	if req.Deposit <= 0 {
		return models.Agreement{}, dErrors.New(dErrors.CodeValidation, "deposit must be positive")
	}
	if req.WaitingPeriod <= 0 {
		return models.Agreement{}, dErrors.New(dErrors.CodeValidation, "waiting period must be positive")
	}
	if req.TestatorWallet.IsZero() || req.HeirWallet.IsZero() {
		return models.Agreement{}, dErrors.New(dErrors.CodeValidation, "testator and heir wallets are required")
	}

	agreement := models.Agreement{
		ID:              domain.NewAgreementID(),
		TestatorCivilID: req.TestatorCivilID,
		TestatorWallet:  req.TestatorWallet,
		HeirCivilID:     req.HeirCivilID,
		HeirWallet:      req.HeirWallet,
		Balance:         req.Deposit,
		WaitingPeriod:   req.WaitingPeriod,
		State:           models.StateActive,
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for _, civilID := range []domain.CivilID{req.TestatorCivilID, req.HeirCivilID} {
			if _, err := s.identities.FindByCivilID(ctx, civilID); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.Newf(dErrors.CodeNotFound, "civil id %s has no identity", civilID)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve party")
			}
		}

		if err := s.store.Insert(ctx, agreement); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert agreement")
		}

		return s.auditor.Record(ctx, audit.Entry{
			Operation:   audit.OpEscrowCreated,
			Actor:       actor.String(),
			EntityKey:   agreement.EntityKey(),
			AfterDigest: audit.Digest(agreement),
		})
	})
	if err != nil {
		return models.Agreement{}, err
	}

	if s.metrics != nil {
		s.metrics.IncEscrowsCreated()
	}
	s.logger.InfoContext(ctx, "escrow agreement created",
		"agreement_id", agreement.ID.String(),
		"waiting_period", req.WaitingPeriod.String(),
	)
	return agreement, nil
}

// ActivateProofOfDeath starts the waiting-period clock. Authorization is
// delegated to the configured attestor.
//
// Errors: CodeUnauthorized (caller is not an authorized attestor),
// CodeConflict (already activated or terminal).
func (s *Service) ActivateProofOfDeath(ctx context.Context, caller domain.Wallet, agreementID domain.AgreementID) error {
	ctx, span := s.tracer.Start(ctx, "escrow.ActivateProofOfDeath")
	defer span.End()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		agreement, err := s.findForUpdate(ctx, agreementID)
		if err != nil {
			return err
		}
		if err := s.attestor.Authorize(ctx, caller, agreement); err != nil {
			return err
		}
		if agreement.State != models.StateActive {
			return dErrors.Newf(dErrors.CodeConflict, "proof of death already activated for agreement %s", agreementID)
		}

		before := audit.Digest(agreement)
		activatedAt := s.clock().UTC()
		if err := s.store.MarkProofActivated(ctx, agreementID, activatedAt); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.Newf(dErrors.CodeConflict, "proof of death already activated for agreement %s", agreementID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate proof of death")
		}

		agreement.ProofOfDeathActivated = true
		agreement.ActivatedAt = &activatedAt
		agreement.State = models.StateProofActivated

		return s.auditor.Record(ctx, audit.Entry{
			Operation:    audit.OpProofOfDeathActive,
			Actor:        caller.String(),
			EntityKey:    agreement.EntityKey(),
			BeforeDigest: before,
			AfterDigest:  audit.Digest(agreement),
		})
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncEscrowTransition(models.StateProofActivated.String())
	}
	s.logger.InfoContext(ctx, "proof of death activated", "agreement_id", agreementID.String())
	return nil
}

// Claim releases the entire balance to the heir once the waiting period has
// elapsed. The payout decision and the balance zeroing commit together;
// there is no window in which the transfer can replay.
//
// Errors: CodeUnauthorized (caller is not the heir wallet), CodeConflict
// (not activated, or already terminal), CodeWaitingPeriod (too early).
func (s *Service) Claim(ctx context.Context, caller domain.Wallet, agreementID domain.AgreementID) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "escrow.Claim")
	defer span.End()

	var amount int64
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		agreement, err := s.findForUpdate(ctx, agreementID)
		if err != nil {
			return err
		}
		if caller != agreement.HeirWallet {
			return dErrors.New(dErrors.CodeUnauthorized, "only the designated heir may claim")
		}
		switch agreement.State {
		case models.StateProofActivated:
			// proceed
		case models.StateActive:
			return dErrors.Newf(dErrors.CodeConflict, "proof of death not activated for agreement %s", agreementID)
		default:
			return dErrors.Newf(dErrors.CodeConflict, "agreement %s is already settled", agreementID)
		}
		now := s.clock().UTC()
		if !agreement.Claimable(now) {
			return dErrors.Newf(dErrors.CodeWaitingPeriod, "waiting period for agreement %s has not elapsed", agreementID)
		}

		before := audit.Digest(agreement)
		if err := s.store.MarkClaimed(ctx, agreementID); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.Newf(dErrors.CodeConflict, "agreement %s is already settled", agreementID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark agreement claimed")
		}

		amount = agreement.Balance
		agreement.Balance = 0
		agreement.State = models.StateClaimed

		return s.auditor.Record(ctx, audit.Entry{
			Operation:    audit.OpEscrowClaimed,
			Actor:        caller.String(),
			EntityKey:    agreement.EntityKey(),
			BeforeDigest: before,
			AfterDigest:  audit.Digest(agreement),
		})
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.IncEscrowTransition(models.StateClaimed.String())
	}
	s.logger.InfoContext(ctx, "escrow claimed",
		"agreement_id", agreementID.String(),
		"amount", amount,
	)
	return amount, nil
}

// Withdraw returns the entire balance to the testator. Only possible while
// the agreement is still Active; once proof of death is asserted the funds
// are committed to the heir's claim window.
//
// Errors: CodeUnauthorized (caller is not the testator wallet), CodeConflict
// (proof activated or already terminal).
func (s *Service) Withdraw(ctx context.Context, caller domain.Wallet, agreementID domain.AgreementID) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "escrow.Withdraw")
	defer span.End()

	var amount int64
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		agreement, err := s.findForUpdate(ctx, agreementID)
		if err != nil {
			return err
		}
		if caller != agreement.TestatorWallet {
			return dErrors.New(dErrors.CodeUnauthorized, "only the testator may withdraw")
		}
		switch agreement.State {
		case models.StateActive:
			// proceed
		case models.StateProofActivated:
			return dErrors.Newf(dErrors.CodeConflict, "proof of death activated; agreement %s can no longer be withdrawn", agreementID)
		default:
			return dErrors.Newf(dErrors.CodeConflict, "agreement %s is already settled", agreementID)
		}

		before := audit.Digest(agreement)
		if err := s.store.MarkWithdrawn(ctx, agreementID); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return dErrors.Newf(dErrors.CodeConflict, "agreement %s is already settled", agreementID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark agreement withdrawn")
		}

		amount = agreement.Balance
		agreement.Balance = 0
		agreement.State = models.StateWithdrawn

		return s.auditor.Record(ctx, audit.Entry{
			Operation:    audit.OpEscrowWithdrawn,
			Actor:        caller.String(),
			EntityKey:    agreement.EntityKey(),
			BeforeDigest: before,
			AfterDigest:  audit.Digest(agreement),
		})
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.IncEscrowTransition(models.StateWithdrawn.String())
	}
	s.logger.InfoContext(ctx, "escrow withdrawn",
		"agreement_id", agreementID.String(),
		"amount", amount,
	)
	return amount, nil
}

// Status returns the agreement for read models. Pure read, no side effects.
func (s *Service) Status(ctx context.Context, agreementID domain.AgreementID) (models.Agreement, error) {
	ctx, span := s.tracer.Start(ctx, "escrow.Status")
	defer span.End()

	if agreementID.IsNil() {
		return models.Agreement{}, dErrors.New(dErrors.CodeBadRequest, "agreement id is required")
	}
	agreement, err := s.store.FindByID(ctx, agreementID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Agreement{}, dErrors.Newf(dErrors.CodeNotFound, "agreement %s not found", agreementID)
		}
		return models.Agreement{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agreement")
	}
	return agreement, nil
}

func (s *Service) findForUpdate(ctx context.Context, agreementID domain.AgreementID) (models.Agreement, error) {
	if agreementID.IsNil() {
		return models.Agreement{}, dErrors.New(dErrors.CodeBadRequest, "agreement id is required")
	}
	agreement, err := s.store.FindByIDForUpdate(ctx, agreementID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Agreement{}, dErrors.Newf(dErrors.CodeNotFound, "agreement %s not found", agreementID)
		}
		return models.Agreement{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agreement")
	}
	return agreement, nil
}
