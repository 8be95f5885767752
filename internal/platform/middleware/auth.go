package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"legado/pkg/domain"
)

// WalletValidator validates a bearer token and yields the caller's verified
// wallet credential.
type WalletValidator interface {
	ValidateToken(tokenString string) (*WalletClaims, error)
}

// WalletClaims are the claims extracted from a validated session token. The
// Wallet here is the caller credential that access control decisions compare
// against, never a display value.
type WalletClaims struct {
	Wallet  string
	CivilID string
}

type contextKeyWallet struct{}
type contextKeyCallerCivilID struct{}

// GetWallet retrieves the verified caller wallet from the context.
func GetWallet(ctx context.Context) domain.Wallet {
	if w, ok := ctx.Value(contextKeyWallet{}).(domain.Wallet); ok {
		return w
	}
	return ""
}

// GetCallerCivilID retrieves the caller's civil id claim, when present.
func GetCallerCivilID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyCallerCivilID{}).(string); ok {
		return id
	}
	return ""
}

// WithWallet injects a caller wallet into a context. For handler tests that
// skip the full middleware chain.
func WithWallet(ctx context.Context, wallet domain.Wallet) context.Context {
	return context.WithValue(ctx, contextKeyWallet{}, wallet)
}

// RequireWallet rejects requests without a valid bearer token and stores the
// verified wallet credential in the request context.
func RequireWallet(validator WalletValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access, missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			wallet, err := domain.ParseWallet(claims.Wallet)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, token without wallet",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Token carries no wallet credential")
				return
			}

			ctx = context.WithValue(ctx, contextKeyWallet{}, wallet)
			ctx = context.WithValue(ctx, contextKeyCallerCivilID{}, claims.CivilID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
