// Package service implements the asset registry: title registration against
// existing identities, ownership reads, and voluntary transfer with the
// under-succession guard.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"legado/internal/asset/models"
	identitymodels "legado/internal/identity/models"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
	"legado/pkg/platform/audit"
	"legado/pkg/platform/sentinel"
	"legado/pkg/platform/tx"
)

// Store persists titles. FindByIDForUpdate takes the per-entity lock for the
// enclosing transaction; mutations return sentinel.ErrNotFound when the
// asset is missing.
type Store interface {
	Insert(ctx context.Context, title models.Title) (domain.AssetID, error)
	FindByID(ctx context.Context, assetID domain.AssetID) (models.Title, error)
	FindByIDForUpdate(ctx context.Context, assetID domain.AssetID) (models.Title, error)
	ListByOwner(ctx context.Context, ownerCivilID domain.CivilID) ([]models.Title, error)
	UpdateOwner(ctx context.Context, assetID domain.AssetID, owner domain.CivilID, wallet domain.Wallet, underSuccession bool) error
	SetUnderSuccession(ctx context.Context, assetID domain.AssetID, underSuccession bool) error
}

// Identities is the slice of the identity store this module needs to
// validate owners and denormalize wallets.
type Identities interface {
	FindByCivilID(ctx context.Context, civilID domain.CivilID) (identitymodels.Identity, error)
}

// AuditRecorder appends an audit entry; failure aborts the mutation.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Metrics is the counter surface the service reports to.
type Metrics interface {
	IncTitlesRegistered()
	IncTitlesTransferred()
}

type Service struct {
	store      Store
	identities Identities
	runner     tx.Runner
	auditor    AuditRecorder
	logger     *slog.Logger
	metrics    Metrics
	tracer     trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, identities Identities, runner tx.Runner, auditor AuditRecorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("asset store is required")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity store is required")
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
		runner:     runner,
		auditor:    auditor,
		logger:     slog.Default(),
		tracer:     otel.Tracer("legado/asset"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates a title for an existing identity. The owner's current
// display wallet is copied onto the title.
//
// Errors: CodeValidation on empty description, CodeNotFound when the owner
// civil id has no identity.
func (s *Service) Register(ctx context.Context, actor domain.Wallet, ownerCivilID domain.CivilID, description string) (domain.AssetID, error) {
	ctx, span := s.tracer.Start(ctx, "asset.Register")
	defer span.End()

	if description == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "description is required")
	}

	var assigned domain.AssetID
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		owner, err := s.identities.FindByCivilID(ctx, ownerCivilID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "owner civil id %s has no identity", ownerCivilID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve owner")
		}

		title := models.Title{
			OwnerCivilID: ownerCivilID,
			Description:  description,
			OwnerWallet:  owner.Wallet,
		}
		assetID, err := s.store.Insert(ctx, title)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert title")
		}
		assigned = assetID
		title.AssetID = assetID

		return s.auditor.Record(ctx, audit.Entry{
			Operation:   audit.OpTitleRegistered,
			Actor:       actor.String(),
			EntityKey:   title.EntityKey(),
			AfterDigest: audit.Digest(title),
		})
	})
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.IncTitlesRegistered()
	}
	s.logger.InfoContext(ctx, "title registered",
		"asset_id", int64(assigned),
		"owner_civil_id", ownerCivilID.String(),
	)
	return assigned, nil
}

// Transfer reassigns a title voluntarily, outside any succession. The new
// owner's current display wallet replaces the denormalized copy.
//
// Errors: CodeNotFound when asset or new owner is missing, CodeConflict when
// the title is under succession or the transfer is a no-op.
func (s *Service) Transfer(ctx context.Context, actor domain.Wallet, assetID domain.AssetID, newOwnerCivilID domain.CivilID) error {
	ctx, span := s.tracer.Start(ctx, "asset.Transfer")
	defer span.End()

	if assetID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "asset id is required")
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		title, err := s.store.FindByIDForUpdate(ctx, assetID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "asset %d not found", assetID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load title")
		}
		if title.UnderSuccession {
			return dErrors.Newf(dErrors.CodeConflict, "asset %d is under succession", assetID)
		}
		if title.OwnerCivilID == newOwnerCivilID {
			return dErrors.New(dErrors.CodeConflict, "new owner already holds this title")
		}

		newOwner, err := s.identities.FindByCivilID(ctx, newOwnerCivilID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "new owner civil id %s has no identity", newOwnerCivilID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve new owner")
		}

		before := audit.Digest(title)
		if err := s.store.UpdateOwner(ctx, assetID, newOwnerCivilID, newOwner.Wallet, false); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update owner")
		}
		title.OwnerCivilID = newOwnerCivilID
		title.OwnerWallet = newOwner.Wallet

		return s.auditor.Record(ctx, audit.Entry{
			Operation:    audit.OpTitleTransferred,
			Actor:        actor.String(),
			EntityKey:    title.EntityKey(),
			BeforeDigest: before,
			AfterDigest:  audit.Digest(title),
		})
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncTitlesTransferred()
	}
	s.logger.InfoContext(ctx, "title transferred",
		"asset_id", int64(assetID),
		"new_owner_civil_id", newOwnerCivilID.String(),
	)
	return nil
}

// Get returns one title.
func (s *Service) Get(ctx context.Context, assetID domain.AssetID) (models.Title, error) {
	ctx, span := s.tracer.Start(ctx, "asset.Get")
	defer span.End()

	if assetID.IsNil() {
		return models.Title{}, dErrors.New(dErrors.CodeBadRequest, "asset id is required")
	}
	title, err := s.store.FindByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Title{}, dErrors.Newf(dErrors.CodeNotFound, "asset %d not found", assetID)
		}
		return models.Title{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load title")
	}
	return title, nil
}

// ListByCivilID returns the titles the civil id currently holds.
func (s *Service) ListByCivilID(ctx context.Context, civilID domain.CivilID) ([]models.Title, error) {
	ctx, span := s.tracer.Start(ctx, "asset.ListByCivilID")
	defer span.End()

	titles, err := s.store.ListByOwner(ctx, civilID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list titles")
	}
	return titles, nil
}
