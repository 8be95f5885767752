// Package service implements the succession plan engine. Each asset moves
// through NoPlan -> PlanActive -> PlanExecuted; an active plan may be
// replaced by the owner, an executed plan is terminal and immutable.
//
// Adjudication names a single heir and moves the entire title to that heir.
// The percentage shares are a recorded distribution, not a co-ownership
// split; nothing here fractions a title.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	assetmodels "legado/internal/asset/models"
	identitymodels "legado/internal/identity/models"
	"legado/internal/succession/models"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
	"legado/pkg/platform/audit"
	"legado/pkg/platform/sentinel"
	"legado/pkg/platform/tx"
)

// Store persists plans, keyed 1:1 by asset id. Insert returns
// sentinel.ErrDuplicate when a plan already exists for the asset.
type Store interface {
	Insert(ctx context.Context, plan models.Plan) error
	Replace(ctx context.Context, plan models.Plan) error
	FindByAsset(ctx context.Context, assetID domain.AssetID) (models.Plan, error)
	FindByAssetForUpdate(ctx context.Context, assetID domain.AssetID) (models.Plan, error)
	MarkExecuted(ctx context.Context, assetID domain.AssetID, executedAt time.Time) error
}

// Titles is the slice of the asset store this engine mutates: adjudication
// reassigns ownership directly, bypassing the under-succession guard that
// blocks voluntary transfers, because executing the plan is exactly what
// resolves that state.
type Titles interface {
	FindByIDForUpdate(ctx context.Context, assetID domain.AssetID) (assetmodels.Title, error)
	UpdateOwner(ctx context.Context, assetID domain.AssetID, owner domain.CivilID, wallet domain.Wallet, underSuccession bool) error
	SetUnderSuccession(ctx context.Context, assetID domain.AssetID, underSuccession bool) error
}

// Identities resolves heir civil ids.
type Identities interface {
	FindByCivilID(ctx context.Context, civilID domain.CivilID) (identitymodels.Identity, error)
}

// AuditRecorder appends an audit entry; failure aborts the mutation.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Metrics is the counter surface the service reports to.
type Metrics interface {
	IncPlansDefined()
	IncAdjudicationsExecuted()
}

type Service struct {
	store      Store
	titles     Titles
	identities Identities
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

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(store Store, titles Titles, identities Identities, runner tx.Runner, auditor AuditRecorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("plan store is required")
	}
	if titles == nil {
		return nil, fmt.Errorf("title store is required")
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
		titles:     titles,
		identities: identities,
		runner:     runner,
		auditor:    auditor,
		logger:     slog.Default(),
		tracer:     otel.Tracer("legado/succession"),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// validateDistribution enforces the share invariant: each share in [1,100]
// and the sum exactly 100, with no heir listed twice.
func validateDistribution(heirs []models.HeirShare) error {
	if len(heirs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one heir is required")
	}
	seen := make(map[domain.CivilID]bool, len(heirs))
	sum := 0
	for _, heir := range heirs {
		if heir.SharePercent < 1 || heir.SharePercent > 100 {
			return dErrors.Newf(dErrors.CodeValidation, "share for %s must be between 1 and 100", heir.HeirCivilID)
		}
		if seen[heir.HeirCivilID] {
			return dErrors.Newf(dErrors.CodeValidation, "heir %s listed more than once", heir.HeirCivilID)
		}
		seen[heir.HeirCivilID] = true
		sum += heir.SharePercent
	}
	if sum != 100 {
		return dErrors.Newf(dErrors.CodeValidation, "shares must sum to exactly 100, got %d", sum)
	}
	return nil
}

// DefinePlan stores a new plan for the asset and flags the title as under
// succession. The caller must name the current owner; a stale or wrong owner
// is refused.
//
// Errors: CodeNotFound (asset or heir missing), CodeForbidden (caller not
// the owner), CodeValidation (bad distribution), CodeConflict (active plan
// already exists; use ReplacePlan).
func (s *Service) DefinePlan(ctx context.Context, actor domain.Wallet, assetID domain.AssetID, ownerCivilID domain.CivilID, heirs []models.HeirShare) error {
	return s.definePlan(ctx, actor, assetID, ownerCivilID, heirs, false)
}

// ReplacePlan overwrites the active plan for the asset. Replacement is only
// possible while the plan is unexecuted; adjudication makes it immutable.
func (s *Service) ReplacePlan(ctx context.Context, actor domain.Wallet, assetID domain.AssetID, ownerCivilID domain.CivilID, heirs []models.HeirShare) error {
	return s.definePlan(ctx, actor, assetID, ownerCivilID, heirs, true)
}

func (s *Service) definePlan(ctx context.Context, actor domain.Wallet, assetID domain.AssetID, ownerCivilID domain.CivilID, heirs []models.HeirShare, replace bool) error {
	op := "succession.DefinePlan"
	if replace {
		op = "succession.ReplacePlan"
	}
	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	if assetID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "asset id is required")
	}
	if err := validateDistribution(heirs); err != nil {
		return err
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		title, err := s.titles.FindByIDForUpdate(ctx, assetID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "asset %d not found", assetID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load title")
		}
		if title.OwnerCivilID != ownerCivilID {
			return dErrors.Newf(dErrors.CodeForbidden, "civil id %s does not own asset %d", ownerCivilID, assetID)
		}

		for _, heir := range heirs {
			if _, err := s.identities.FindByCivilID(ctx, heir.HeirCivilID); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.Newf(dErrors.CodeNotFound, "heir civil id %s has no identity", heir.HeirCivilID)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve heir")
			}
		}

		plan := models.Plan{AssetID: assetID, Heirs: heirs}
		operation := audit.OpPlanDefined
		var before string

		if replace {
			existing, err := s.store.FindByAssetForUpdate(ctx, assetID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.Newf(dErrors.CodeNotFound, "asset %d has no plan to replace", assetID)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plan")
			}
			if existing.Executed {
				return dErrors.Newf(dErrors.CodeConflict, "plan for asset %d is already executed", assetID)
			}
			before = audit.Digest(existing)
			operation = audit.OpPlanReplaced
			if err := s.store.Replace(ctx, plan); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace plan")
			}
		} else {
			if err := s.store.Insert(ctx, plan); err != nil {
				if errors.Is(err, sentinel.ErrDuplicate) {
					return dErrors.Newf(dErrors.CodeConflict, "asset %d already has a plan", assetID)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert plan")
			}
		}

		if err := s.titles.SetUnderSuccession(ctx, assetID, true); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to flag title under succession")
		}

		return s.auditor.Record(ctx, audit.Entry{
			Operation:    operation,
			Actor:        actor.String(),
			EntityKey:    plan.EntityKey(),
			BeforeDigest: before,
			AfterDigest:  audit.Digest(plan),
		})
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncPlansDefined()
	}
	s.logger.InfoContext(ctx, "succession plan stored",
		"asset_id", int64(assetID),
		"heirs", len(heirs),
		"replaced", replace,
	)
	return nil
}

// ExecuteAdjudication resolves the plan by moving the entire title to the
// chosen heir. The plan becomes terminal; a second execution fails and
// changes nothing.
//
// Errors: CodeNotFound (no plan), CodeConflict (already executed),
// CodeValidation (chosen heir not in plan).
func (s *Service) ExecuteAdjudication(ctx context.Context, actor domain.Wallet, assetID domain.AssetID, chosenHeirCivilID domain.CivilID) error {
	ctx, span := s.tracer.Start(ctx, "succession.ExecuteAdjudication")
	defer span.End()

	if assetID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "asset id is required")
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		plan, err := s.store.FindByAssetForUpdate(ctx, assetID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "asset %d has no succession plan", assetID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plan")
		}
		if plan.Executed {
			return dErrors.Newf(dErrors.CodeConflict, "plan for asset %d is already executed", assetID)
		}
		if _, ok := plan.Share(chosenHeirCivilID); !ok {
			return dErrors.Newf(dErrors.CodeValidation, "civil id %s is not an heir in the plan for asset %d", chosenHeirCivilID, assetID)
		}

		heir, err := s.identities.FindByCivilID(ctx, chosenHeirCivilID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "heir civil id %s vanished from the registry", chosenHeirCivilID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve heir")
		}

		title, err := s.titles.FindByIDForUpdate(ctx, assetID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load title")
		}
		beforeTitle := audit.Digest(title)
		beforePlan := audit.Digest(plan)

		// Ownership moves and the under-succession flag clears in one step.
		if err := s.titles.UpdateOwner(ctx, assetID, chosenHeirCivilID, heir.Wallet, false); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reassign title")
		}
		executedAt := s.clock().UTC()
		if err := s.store.MarkExecuted(ctx, assetID, executedAt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark plan executed")
		}

		plan.Executed = true
		plan.ExecutedAt = &executedAt
		title.OwnerCivilID = chosenHeirCivilID
		title.OwnerWallet = heir.Wallet
		title.UnderSuccession = false

		if err := s.auditor.Record(ctx, audit.Entry{
			Operation:    audit.OpAdjudicationExecuted,
			Actor:        actor.String(),
			EntityKey:    plan.EntityKey(),
			BeforeDigest: beforePlan,
			AfterDigest:  audit.Digest(plan),
		}); err != nil {
			return err
		}
		return s.auditor.Record(ctx, audit.Entry{
			Operation:    audit.OpTitleTransferred,
			Actor:        actor.String(),
			EntityKey:    title.EntityKey(),
			BeforeDigest: beforeTitle,
			AfterDigest:  audit.Digest(title),
		})
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncAdjudicationsExecuted()
	}
	s.logger.InfoContext(ctx, "adjudication executed",
		"asset_id", int64(assetID),
		"heir_civil_id", chosenHeirCivilID.String(),
	)
	return nil
}

// Plan returns the stored plan for an asset.
func (s *Service) Plan(ctx context.Context, assetID domain.AssetID) (models.Plan, error) {
	ctx, span := s.tracer.Start(ctx, "succession.Plan")
	defer span.End()

	if assetID.IsNil() {
		return models.Plan{}, dErrors.New(dErrors.CodeBadRequest, "asset id is required")
	}
	plan, err := s.store.FindByAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Plan{}, dErrors.Newf(dErrors.CodeNotFound, "asset %d has no succession plan", assetID)
		}
		return models.Plan{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load plan")
	}
	return plan, nil
}

// Heirs returns the heir civil ids in plan order.
func (s *Service) Heirs(ctx context.Context, assetID domain.AssetID) ([]domain.CivilID, error) {
	plan, err := s.Plan(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return plan.HeirIDs(), nil
}

// Share returns the percentage recorded for one heir.
//
// Errors: CodeNotFound when the asset has no plan or the civil id is not an
// heir in it.
func (s *Service) Share(ctx context.Context, assetID domain.AssetID, heirCivilID domain.CivilID) (int, error) {
	plan, err := s.Plan(ctx, assetID)
	if err != nil {
		return 0, err
	}
	share, ok := plan.Share(heirCivilID)
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeNotFound, "civil id %s is not an heir for asset %d", heirCivilID, assetID)
	}
	return share, nil
}
