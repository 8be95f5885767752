// Package handler exposes succession plans and adjudication over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	assethandler "legado/internal/asset/handler"
	"legado/internal/platform/middleware"
	"legado/internal/succession/models"
	"legado/internal/transport/http/shared"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
)

// Service defines the succession operations the handler delegates to.
type Service interface {
	DefinePlan(ctx context.Context, actor domain.Wallet, assetID domain.AssetID, ownerCivilID domain.CivilID, heirs []models.HeirShare) error
	ReplacePlan(ctx context.Context, actor domain.Wallet, assetID domain.AssetID, ownerCivilID domain.CivilID, heirs []models.HeirShare) error
	ExecuteAdjudication(ctx context.Context, actor domain.Wallet, assetID domain.AssetID, chosenHeirCivilID domain.CivilID) error
	Plan(ctx context.Context, assetID domain.AssetID) (models.Plan, error)
	Heirs(ctx context.Context, assetID domain.AssetID) ([]domain.CivilID, error)
	Share(ctx context.Context, assetID domain.AssetID, heirCivilID domain.CivilID) (int, error)
}

type Handler struct {
	logger     *slog.Logger
	succession Service
}

func New(succession Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, succession: succession}
}

// Register registers the succession routes. Plans are addressed by the asset
// they cover; an asset holds at most one plan.
func (h *Handler) Register(r chi.Router) {
	r.Post("/titles/{assetID}/plan", h.handleDefinePlan)
	r.Put("/titles/{assetID}/plan", h.handleReplacePlan)
	r.Post("/titles/{assetID}/adjudication", h.handleExecuteAdjudication)
	r.Get("/titles/{assetID}/plan", h.handleGetPlan)
	r.Get("/titles/{assetID}/plan/heirs", h.handleGetHeirs)
	r.Get("/titles/{assetID}/plan/share/{heirCivilID}", h.handleGetShare)
}

type heirShareRequest struct {
	HeirCivilID  string `json:"heir_civil_id"`
	SharePercent int    `json:"share_percent"`
}

type planRequest struct {
	OwnerCivilID string             `json:"owner_civil_id"`
	Heirs        []heirShareRequest `json:"heirs"`
}

type adjudicationRequest struct {
	ChosenHeirCivilID string `json:"chosen_heir_civil_id"`
}

type planResponse struct {
	AssetID    int64               `json:"asset_id"`
	Heirs      []heirShareResponse `json:"heirs"`
	Executed   bool                `json:"executed"`
	ExecutedAt *string             `json:"executed_at,omitempty"`
}

type heirShareResponse struct {
	HeirCivilID  string `json:"heir_civil_id"`
	SharePercent int    `json:"share_percent"`
}

func (h *Handler) handleDefinePlan(w http.ResponseWriter, r *http.Request) {
	h.definePlan(w, r, false)
}

func (h *Handler) handleReplacePlan(w http.ResponseWriter, r *http.Request) {
	h.definePlan(w, r, true)
}

func (h *Handler) definePlan(w http.ResponseWriter, r *http.Request, replace bool) {
	ctx := r.Context()

	assetID, err := assethandler.ParseAssetIDParam(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	ownerCivilID, err := domain.ParseCivilID(req.OwnerCivilID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	heirs, err := toHeirShares(req.Heirs)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	actor := middleware.GetWallet(ctx)
	if replace {
		err = h.succession.ReplacePlan(ctx, actor, assetID, ownerCivilID, heirs)
	} else {
		err = h.succession.DefinePlan(ctx, actor, assetID, ownerCivilID, heirs)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "define plan failed",
			"request_id", middleware.GetRequestID(ctx),
			"asset_id", int64(assetID),
			"replace", replace,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExecuteAdjudication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assetID, err := assethandler.ParseAssetIDParam(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req adjudicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	chosenHeir, err := domain.ParseCivilID(req.ChosenHeirCivilID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.succession.ExecuteAdjudication(ctx, middleware.GetWallet(ctx), assetID, chosenHeir); err != nil {
		h.logger.WarnContext(ctx, "execute adjudication failed",
			"request_id", middleware.GetRequestID(ctx),
			"asset_id", int64(assetID),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	assetID, err := assethandler.ParseAssetIDParam(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	plan, err := h.succession.Plan(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPlanResponse(plan))
}

func (h *Handler) handleGetHeirs(w http.ResponseWriter, r *http.Request) {
	assetID, err := assethandler.ParseAssetIDParam(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	heirs, err := h.succession.Heirs(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]string, len(heirs))
	for i, heir := range heirs {
		out[i] = heir.String()
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]string{"heirs": out})
}

func (h *Handler) handleGetShare(w http.ResponseWriter, r *http.Request) {
	assetID, err := assethandler.ParseAssetIDParam(chi.URLParam(r, "assetID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	heirCivilID, err := domain.ParseCivilID(chi.URLParam(r, "heirCivilID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	share, err := h.succession.Share(r.Context(), assetID, heirCivilID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"share_percent": share})
}

func toHeirShares(reqs []heirShareRequest) ([]models.HeirShare, error) {
	heirs := make([]models.HeirShare, len(reqs))
	for i, hr := range reqs {
		civilID, err := domain.ParseCivilID(hr.HeirCivilID)
		if err != nil {
			return nil, err
		}
		heirs[i] = models.HeirShare{HeirCivilID: civilID, SharePercent: hr.SharePercent}
	}
	return heirs, nil
}

func toPlanResponse(plan models.Plan) planResponse {
	resp := planResponse{
		AssetID:  int64(plan.AssetID),
		Heirs:    make([]heirShareResponse, len(plan.Heirs)),
		Executed: plan.Executed,
	}
	for i, heir := range plan.Heirs {
		resp.Heirs[i] = heirShareResponse{
			HeirCivilID:  heir.HeirCivilID.String(),
			SharePercent: heir.SharePercent,
		}
	}
	if plan.ExecutedAt != nil {
		formatted := plan.ExecutedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.ExecutedAt = &formatted
	}
	return resp
}
