// Package httptransport assembles the HTTP surface of the registry.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"legado/internal/platform/middleware"
	"legado/internal/platform/ratelimit"
	"legado/internal/transport/http/shared"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
)

const requestTimeout = 30 * time.Second

// RouteRegistrar is implemented by every module handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// SessionIssuer mints session tokens binding a wallet credential.
type SessionIssuer interface {
	GenerateSessionToken(wallet domain.Wallet, civilID string, expiresIn time.Duration) (string, error)
}

// HealthChecker reports the health of one dependency.
type HealthChecker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps carries everything the router needs; main assembles it.
type Deps struct {
	Logger    *slog.Logger
	Metrics   middleware.LatencyObserver
	Validator middleware.WalletValidator
	Sessions  SessionIssuer
	// Limiter throttles requests when set; nil disables throttling.
	Limiter ratelimit.Limiter
	// Protected handlers run behind RequireWallet.
	Protected []RouteRegistrar
	// Public handlers (audit reads) skip authentication.
	Public []RouteRegistrar
	Health []HealthChecker
}

const sessionTokenTTL = time.Hour

// NewRouter wires the middleware chain and all module routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Device)
	if deps.Metrics != nil {
		r.Use(middleware.LatencyMiddleware(deps.Metrics))
	}
	if deps.Limiter != nil {
		r.Use(middleware.RateLimit(deps.Limiter, deps.Logger))
	}

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/session", handleSession(deps.Sessions, deps.Logger))

	for _, h := range deps.Public {
		h.Register(r)
	}

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireWallet(deps.Validator, deps.Logger))
		for _, h := range deps.Protected {
			h.Register(protected)
		}
	})

	return r
}

type sessionRequest struct {
	Wallet  string `json:"wallet"`
	CivilID string `json:"civil_id,omitempty"`
}

type sessionResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// handleSession mints a wallet-bound session token. Wallet ownership is
// asserted, not proven; deployments needing signature challenges put a
// verifier in front of this endpoint.
func handleSession(issuer SessionIssuer, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
		wallet, err := domain.ParseWallet(req.Wallet)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		token, err := issuer.GenerateSessionToken(wallet, req.CivilID, sessionTokenTTL)
		if err != nil {
			logger.ErrorContext(r.Context(), "session token generation failed", "error", err.Error())
			shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token"))
			return
		}
		shared.WriteJSON(w, http.StatusOK, sessionResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(sessionTokenTTL / time.Second),
		})
	}
}

func handleHealth(checks []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				results[check.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[check.Name] = "ok"
		}
		shared.WriteJSON(w, status, map[string]any{
			"status": http.StatusText(status),
			"checks": results,
		})
	}
}
