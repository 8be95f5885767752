// Package handler exposes the civil identity registry over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"legado/internal/identity/models"
	"legado/internal/identity/service"
	"legado/internal/platform/middleware"
	"legado/internal/transport/http/shared"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
)

// Service defines the identity operations the handler delegates to.
type Service interface {
	RegisterEssential(ctx context.Context, actor domain.Wallet, reg service.EssentialRegistration) (domain.IdentityID, error)
	RegisterFull(ctx context.Context, actor domain.Wallet, identityID domain.IdentityID, reg service.FullRegistration) error
	LookupByCivilID(ctx context.Context, civilID domain.CivilID) (models.Identity, error)
	LookupByID(ctx context.Context, identityID domain.IdentityID) (models.Identity, error)
}

type Handler struct {
	logger   *slog.Logger
	identity Service
}

func New(identity Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, identity: identity}
}

// Register registers the identity routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identities", h.handleRegisterEssential)
	r.Put("/identities/{identityID}/profile", h.handleRegisterFull)
	r.Get("/identities/{identityID}", h.handleLookupByID)
	r.Get("/identities/civil/{civilID}", h.handleLookupByCivilID)
}

type registerEssentialRequest struct {
	CivilID    string `json:"civil_id"`
	GivenNames string `json:"given_names"`
	Surnames   string `json:"surnames"`
	Wallet     string `json:"wallet"`
}

type registerEssentialResponse struct {
	IdentityID int64 `json:"identity_id"`
}

type profileRequest struct {
	Gender        string  `json:"gender,omitempty"`
	BirthDate     *string `json:"birth_date,omitempty"`
	BirthPlace    string  `json:"birth_place,omitempty"`
	MaritalStatus string  `json:"marital_status,omitempty"`
	Address       string  `json:"address,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Profession    string  `json:"profession,omitempty"`
	Wallet        string  `json:"wallet"`
}

type identityResponse struct {
	IdentityID int64          `json:"identity_id"`
	CivilID    string         `json:"civil_id"`
	GivenNames string         `json:"given_names"`
	Surnames   string         `json:"surnames"`
	Wallet     string         `json:"wallet,omitempty"`
	Profile    profileDetails `json:"profile"`
	Complete   bool           `json:"complete"`
}

type profileDetails struct {
	Gender        string  `json:"gender,omitempty"`
	BirthDate     *string `json:"birth_date,omitempty"`
	BirthPlace    string  `json:"birth_place,omitempty"`
	MaritalStatus string  `json:"marital_status,omitempty"`
	Address       string  `json:"address,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Profession    string  `json:"profession,omitempty"`
}

func (h *Handler) handleRegisterEssential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerEssentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	civilID, err := domain.ParseCivilID(req.CivilID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	wallet, err := domain.ParseWallet(req.Wallet)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	identityID, err := h.identity.RegisterEssential(ctx, middleware.GetWallet(ctx), service.EssentialRegistration{
		CivilID:    civilID,
		GivenNames: req.GivenNames,
		Surnames:   req.Surnames,
		Wallet:     wallet,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "register essential failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, registerEssentialResponse{IdentityID: int64(identityID)})
}

func (h *Handler) handleRegisterFull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, err := parseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	wallet, err := domain.ParseWallet(req.Wallet)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	profile, err := toProfile(req)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	err = h.identity.RegisterFull(ctx, middleware.GetWallet(ctx), identityID, service.FullRegistration{
		Profile: profile,
		Wallet:  wallet,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "register full failed",
			"request_id", middleware.GetRequestID(ctx),
			"identity_id", int64(identityID),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLookupByID(w http.ResponseWriter, r *http.Request) {
	identityID, err := parseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	identity, err := h.identity.LookupByID(r.Context(), identityID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toIdentityResponse(identity))
}

func (h *Handler) handleLookupByCivilID(w http.ResponseWriter, r *http.Request) {
	civilID, err := domain.ParseCivilID(chi.URLParam(r, "civilID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	identity, err := h.identity.LookupByCivilID(r.Context(), civilID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toIdentityResponse(identity))
}

func parseIdentityID(raw string) (domain.IdentityID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "identity id must be numeric")
	}
	return domain.ParseIdentityID(n)
}

const birthDateLayout = "2006-01-02"

func toProfile(req profileRequest) (models.Profile, error) {
	gender, err := domain.ParseGender(req.Gender)
	if err != nil {
		return models.Profile{}, err
	}
	maritalStatus, err := domain.ParseMaritalStatus(req.MaritalStatus)
	if err != nil {
		return models.Profile{}, err
	}
	profile := models.Profile{
		Gender:        gender,
		BirthPlace:    req.BirthPlace,
		MaritalStatus: maritalStatus,
		Address:       req.Address,
		Phone:         req.Phone,
		Profession:    req.Profession,
	}
	if req.BirthDate != nil && *req.BirthDate != "" {
		at, err := time.Parse(birthDateLayout, *req.BirthDate)
		if err != nil {
			return models.Profile{}, dErrors.New(dErrors.CodeInvalidInput, "birth date must be YYYY-MM-DD")
		}
		profile.BirthDate = &at
	}
	return profile, nil
}

func toIdentityResponse(identity models.Identity) identityResponse {
	resp := identityResponse{
		IdentityID: int64(identity.ID),
		CivilID:    identity.CivilID.String(),
		GivenNames: identity.GivenNames,
		Surnames:   identity.Surnames,
		Wallet:     identity.Wallet.String(),
		Profile: profileDetails{
			Gender:        identity.Profile.Gender.String(),
			BirthPlace:    identity.Profile.BirthPlace,
			MaritalStatus: identity.Profile.MaritalStatus.String(),
			Address:       identity.Profile.Address,
			Phone:         identity.Profile.Phone,
			Profession:    identity.Profile.Profession,
		},
		Complete: identity.Profile.Complete(),
	}
	if identity.Profile.BirthDate != nil {
		formatted := identity.Profile.BirthDate.Format(birthDateLayout)
		resp.Profile.BirthDate = &formatted
	}
	return resp
}
