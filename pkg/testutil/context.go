package testutil

import (
	"net/http"

	"legado/internal/platform/middleware"
	"legado/pkg/domain"
)

// WithWallet attaches a wallet credential to the request context, simulating
// what the session middleware does for authenticated requests.
func WithWallet(req *http.Request, wallet domain.Wallet) *http.Request {
	return req.WithContext(middleware.WithWallet(req.Context(), wallet))
}
