// Package handler exposes time-locked escrow agreements over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"legado/internal/escrow/models"
	"legado/internal/escrow/service"
	"legado/internal/platform/middleware"
	"legado/internal/transport/http/shared"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
)

// Service defines the escrow operations the handler delegates to.
type Service interface {
	Create(ctx context.Context, actor domain.Wallet, req service.CreateAgreement) (models.Agreement, error)
	ActivateProofOfDeath(ctx context.Context, caller domain.Wallet, agreementID domain.AgreementID) error
	Claim(ctx context.Context, caller domain.Wallet, agreementID domain.AgreementID) (int64, error)
	Withdraw(ctx context.Context, caller domain.Wallet, agreementID domain.AgreementID) (int64, error)
	Status(ctx context.Context, agreementID domain.AgreementID) (models.Agreement, error)
}

type Handler struct {
	logger *slog.Logger
	escrow Service
}

func New(escrow Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, escrow: escrow}
}

// Register registers the escrow routes. All transitions take the caller's
// verified wallet from the session token, not from the body.
func (h *Handler) Register(r chi.Router) {
	r.Post("/escrows", h.handleCreate)
	r.Post("/escrows/{agreementID}/proof-of-death", h.handleActivateProof)
	r.Post("/escrows/{agreementID}/claim", h.handleClaim)
	r.Post("/escrows/{agreementID}/withdraw", h.handleWithdraw)
	r.Get("/escrows/{agreementID}", h.handleStatus)
}

type createRequest struct {
	TestatorCivilID string `json:"testator_civil_id"`
	TestatorWallet  string `json:"testator_wallet"`
	HeirCivilID     string `json:"heir_civil_id"`
	HeirWallet      string `json:"heir_wallet"`
	Deposit         int64  `json:"deposit"`
	WaitingPeriodS  int64  `json:"waiting_period_seconds"`
}

type agreementResponse struct {
	AgreementID     string  `json:"agreement_id"`
	TestatorCivilID string  `json:"testator_civil_id"`
	HeirCivilID     string  `json:"heir_civil_id"`
	Balance         int64   `json:"balance"`
	ProofActivated  bool    `json:"proof_of_death_activated"`
	ActivatedAt     *string `json:"activated_at,omitempty"`
	WaitingPeriodS  int64   `json:"waiting_period_seconds"`
	State           string  `json:"state"`
}

type amountResponse struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	create, err := toCreateAgreement(req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	agreement, err := h.escrow.Create(ctx, middleware.GetWallet(ctx), create)
	if err != nil {
		h.logger.WarnContext(ctx, "create escrow failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toAgreementResponse(agreement))
}

func (h *Handler) handleActivateProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agreementID, err := domain.ParseAgreementID(chi.URLParam(r, "agreementID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.escrow.ActivateProofOfDeath(ctx, middleware.GetWallet(ctx), agreementID); err != nil {
		h.logger.WarnContext(ctx, "activate proof of death failed",
			"request_id", middleware.GetRequestID(ctx),
			"agreement_id", agreementID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agreementID, err := domain.ParseAgreementID(chi.URLParam(r, "agreementID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	amount, err := h.escrow.Claim(ctx, middleware.GetWallet(ctx), agreementID)
	if err != nil {
		h.logger.WarnContext(ctx, "claim escrow failed",
			"request_id", middleware.GetRequestID(ctx),
			"agreement_id", agreementID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, amountResponse{Amount: amount})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agreementID, err := domain.ParseAgreementID(chi.URLParam(r, "agreementID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	amount, err := h.escrow.Withdraw(ctx, middleware.GetWallet(ctx), agreementID)
	if err != nil {
		h.logger.WarnContext(ctx, "withdraw escrow failed",
			"request_id", middleware.GetRequestID(ctx),
			"agreement_id", agreementID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, amountResponse{Amount: amount})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	agreementID, err := domain.ParseAgreementID(chi.URLParam(r, "agreementID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	agreement, err := h.escrow.Status(r.Context(), agreementID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAgreementResponse(agreement))
}

func toCreateAgreement(req createRequest) (service.CreateAgreement, error) {
	testatorCivilID, err := domain.ParseCivilID(req.TestatorCivilID)
	if err != nil {
		return service.CreateAgreement{}, err
	}
	heirCivilID, err := domain.ParseCivilID(req.HeirCivilID)
	if err != nil {
		return service.CreateAgreement{}, err
	}
	testatorWallet, err := domain.ParseWallet(req.TestatorWallet)
	if err != nil {
		return service.CreateAgreement{}, err
	}
	heirWallet, err := domain.ParseWallet(req.HeirWallet)
	if err != nil {
		return service.CreateAgreement{}, err
	}
	return service.CreateAgreement{
		TestatorCivilID: testatorCivilID,
		TestatorWallet:  testatorWallet,
		HeirCivilID:     heirCivilID,
		HeirWallet:      heirWallet,
		Deposit:         req.Deposit,
		WaitingPeriod:   time.Duration(req.WaitingPeriodS) * time.Second,
	}, nil
}

func toAgreementResponse(agreement models.Agreement) agreementResponse {
	resp := agreementResponse{
		AgreementID:     agreement.ID.String(),
		TestatorCivilID: agreement.TestatorCivilID.String(),
		HeirCivilID:     agreement.HeirCivilID.String(),
		Balance:         agreement.Balance,
		ProofActivated:  agreement.ProofOfDeathActivated,
		WaitingPeriodS:  int64(agreement.WaitingPeriod / time.Second),
		State:           agreement.State.String(),
	}
	if agreement.ActivatedAt != nil {
		formatted := agreement.ActivatedAt.UTC().Format(time.RFC3339)
		resp.ActivatedAt = &formatted
	}
	return resp
}
