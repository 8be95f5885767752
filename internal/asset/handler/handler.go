// Package handler exposes the property title registry over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"legado/internal/asset/models"
	"legado/internal/platform/middleware"
	"legado/internal/transport/http/shared"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
)

// Service defines the title operations the handler delegates to.
type Service interface {
	Register(ctx context.Context, actor domain.Wallet, ownerCivilID domain.CivilID, description string) (domain.AssetID, error)
	Transfer(ctx context.Context, actor domain.Wallet, assetID domain.AssetID, newOwnerCivilID domain.CivilID) error
	Get(ctx context.Context, assetID domain.AssetID) (models.Title, error)
	ListByCivilID(ctx context.Context, civilID domain.CivilID) ([]models.Title, error)
}

type Handler struct {
	logger *slog.Logger
	titles Service
}

func New(titles Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, titles: titles}
}

// Register registers the title routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/titles", h.handleRegister)
	r.Post("/titles/{assetID}/transfer", h.handleTransfer)
	r.Get("/titles/{assetID}", h.handleGet)
	r.Get("/titles/owner/{civilID}", h.handleListByOwner)
}

type registerTitleRequest struct {
	OwnerCivilID string `json:"owner_civil_id"`
	Description  string `json:"description"`
}

type registerTitleResponse struct {
	AssetID int64 `json:"asset_id"`
}

type transferRequest struct {
	NewOwnerCivilID string `json:"new_owner_civil_id"`
}

type titleResponse struct {
	AssetID         int64  `json:"asset_id"`
	OwnerCivilID    string `json:"owner_civil_id"`
	Description     string `json:"description"`
	OwnerWallet     string `json:"owner_wallet,omitempty"`
	UnderSuccession bool   `json:"under_succession"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	ownerCivilID, err := domain.ParseCivilID(req.OwnerCivilID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	assetID, err := h.titles.Register(ctx, middleware.GetWallet(ctx), ownerCivilID, req.Description)
	if err != nil {
		h.logger.WarnContext(ctx, "register title failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, registerTitleResponse{AssetID: int64(assetID)})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assetID, err := ParseAssetIDParam(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	newOwner, err := domain.ParseCivilID(req.NewOwnerCivilID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.titles.Transfer(ctx, middleware.GetWallet(ctx), assetID, newOwner); err != nil {
		h.logger.WarnContext(ctx, "transfer title failed",
			"request_id", middleware.GetRequestID(ctx),
			"asset_id", int64(assetID),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	assetID, err := ParseAssetIDParam(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	title, err := h.titles.Get(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toTitleResponse(title))
}

func (h *Handler) handleListByOwner(w http.ResponseWriter, r *http.Request) {
	civilID, err := domain.ParseCivilID(chi.URLParam(r, "civilID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	titles, err := h.titles.ListByCivilID(r.Context(), civilID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]titleResponse, len(titles))
	for i, title := range titles {
		out[i] = toTitleResponse(title)
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

// ParseAssetIDParam converts a route parameter into an AssetID. Shared with
// the succession handler, which addresses plans by asset.
func ParseAssetIDParam(raw string) (domain.AssetID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "asset id must be numeric")
	}
	return domain.ParseAssetID(n)
}

func toTitleResponse(title models.Title) titleResponse {
	return titleResponse{
		AssetID:         int64(title.AssetID),
		OwnerCivilID:    title.OwnerCivilID.String(),
		Description:     title.Description,
		OwnerWallet:     title.OwnerWallet.String(),
		UnderSuccession: title.UnderSuccession,
	}
}
