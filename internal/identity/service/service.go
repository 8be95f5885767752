// Package service implements the identity registry: essential registration
// assigns the permanent numeric id, full registration completes the profile
// in place, and identities are never deleted.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"legado/internal/identity/models"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
	"legado/pkg/platform/audit"
	"legado/pkg/platform/sentinel"
	"legado/pkg/platform/tx"
)

// Store persists identities. Insert returns sentinel.ErrDuplicate when the
// civil id is taken; Find methods return sentinel.ErrNotFound.
type Store interface {
	Insert(ctx context.Context, identity models.Identity) (domain.IdentityID, error)
	Update(ctx context.Context, identity models.Identity) error
	FindByCivilID(ctx context.Context, civilID domain.CivilID) (models.Identity, error)
	FindByID(ctx context.Context, identityID domain.IdentityID) (models.Identity, error)
}

// AuditRecorder appends an audit entry; failure aborts the mutation.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Metrics is the counter surface the service reports to.
type Metrics interface {
	IncIdentitiesRegistered()
}

// Service wires the store, transaction scope, and audit trail together.
type Service struct {
	store   Store
	runner  tx.Runner
	auditor AuditRecorder
	logger  *slog.Logger
	metrics Metrics
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, runner tx.Runner, auditor AuditRecorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	svc := &Service{
		store:   store,
		runner:  runner,
		auditor: auditor,
		logger:  slog.Default(),
		tracer:  otel.Tracer("legado/identity"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// EssentialRegistration is the minimal record that reserves a civil id.
type EssentialRegistration struct {
	CivilID    domain.CivilID
	GivenNames string
	Surnames   string
	Wallet     domain.Wallet
}

// RegisterEssential allocates the next identity id for a new civil id.
//
// Errors: CodeValidation on missing names, CodeConflict when the civil id is
// already registered.
func (s *Service) RegisterEssential(ctx context.Context, actor domain.Wallet, reg EssentialRegistration) (domain.IdentityID, error) {
	ctx, span := s.tracer.Start(ctx, "identity.RegisterEssential")
	defer span.End()

	if reg.GivenNames == "" || reg.Surnames == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "given names and surnames are required")
	}
	if reg.Wallet.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "wallet is required")
	}

	identity := models.Identity{
		CivilID:    reg.CivilID,
		GivenNames: reg.GivenNames,
		Surnames:   reg.Surnames,
		Wallet:     reg.Wallet,
	}

	var assigned domain.IdentityID
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		identityID, err := s.store.Insert(ctx, identity)
		if err != nil {
			if errors.Is(err, sentinel.ErrDuplicate) {
				return dErrors.Newf(dErrors.CodeConflict, "civil id %s is already registered", reg.CivilID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert identity")
		}
		assigned = identityID
		identity.ID = identityID

		return s.auditor.Record(ctx, audit.Entry{
			Operation:   audit.OpIdentityRegistered,
			Actor:       actor.String(),
			EntityKey:   identity.EntityKey(),
			AfterDigest: audit.Digest(identity),
		})
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.IncIdentitiesRegistered()
	}
	s.logger.InfoContext(ctx, "identity registered",
		"civil_id", reg.CivilID.String(),
		"identity_id", int64(assigned),
	)
	return assigned, nil
}

// FullRegistration completes or refreshes the extended profile of an
// existing identity. Reapplying the same input is a no-op by construction:
// the record is overwritten in place with identical values.
type FullRegistration struct {
	Profile models.Profile
	Wallet  domain.Wallet
}

// RegisterFull overwrites the extended fields and wallet of the identity
// with the given numeric id.
//
// Errors: CodeNotFound when the id was never assigned.
func (s *Service) RegisterFull(ctx context.Context, actor domain.Wallet, identityID domain.IdentityID, reg FullRegistration) error {
	ctx, span := s.tracer.Start(ctx, "identity.RegisterFull")
	defer span.End()

	if identityID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "identity id is required")
	}
	if reg.Wallet.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "wallet is required")
	}

	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		identity, err := s.store.FindByID(ctx, identityID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "identity %d not found", identityID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
		}

		before := audit.Digest(identity)
		identity.Profile = reg.Profile
		identity.Wallet = reg.Wallet
		if err := s.store.Update(ctx, identity); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update identity")
		}

		return s.auditor.Record(ctx, audit.Entry{
			Operation:    audit.OpIdentityCompleted,
			Actor:        actor.String(),
			EntityKey:    identity.EntityKey(),
			BeforeDigest: before,
			AfterDigest:  audit.Digest(identity),
		})
	})
}

// LookupByCivilID resolves the natural key.
func (s *Service) LookupByCivilID(ctx context.Context, civilID domain.CivilID) (models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "identity.LookupByCivilID")
	defer span.End()

	identity, err := s.store.FindByCivilID(ctx, civilID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Identity{}, dErrors.Newf(dErrors.CodeNotFound, "civil id %s not found", civilID)
		}
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity")
	}
	return identity, nil
}

// LookupByID resolves the sequential numeric id.
func (s *Service) LookupByID(ctx context.Context, identityID domain.IdentityID) (models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "identity.LookupByID")
	defer span.End()

	if identityID.IsNil() {
		return models.Identity{}, dErrors.New(dErrors.CodeBadRequest, "identity id is required")
	}
	identity, err := s.store.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Identity{}, dErrors.Newf(dErrors.CodeNotFound, "identity %d not found", identityID)
		}
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity")
	}
	return identity, nil
}
