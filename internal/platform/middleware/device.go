package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/mssola/useragent"
)

type contextKeyDeviceFingerprint struct{}

// GetDeviceFingerprint retrieves the device fingerprint from the context.
// Empty when the client sent no user agent.
func GetDeviceFingerprint(ctx context.Context) string {
	if fp, ok := ctx.Value(contextKeyDeviceFingerprint{}).(string); ok {
		return fp
	}
	return ""
}

// WithDeviceFingerprint injects a fingerprint into a context. For tests that
// skip the HTTP middleware chain.
func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, contextKeyDeviceFingerprint{}, fingerprint)
}

// Device derives a coarse device fingerprint (browser, OS, platform) from the
// User-Agent header. The registry records it as the audit actor's device
// context; it is intentionally too coarse to track individuals.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uaHeader := r.UserAgent()
		if uaHeader == "" {
			next.ServeHTTP(w, r)
			return
		}
		ua := useragent.New(uaHeader)
		name, version := ua.Browser()
		sum := sha256.Sum256([]byte(name + "/" + version + "/" + ua.OS() + "/" + ua.Platform()))
		fingerprint := hex.EncodeToString(sum[:8])
		ctx := context.WithValue(r.Context(), contextKeyDeviceFingerprint{}, fingerprint)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
