// Package auth verifies the shared API key that every device and
// dashboard client must present in the x-api-key header.
package auth

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/nesarahmed/airsense/pkg/httpx"
)

// HeaderName is the request header carrying the API key.
const HeaderName = "x-api-key"

// Verifier checks presented API keys against the configured secret.
type Verifier struct {
	key       string
	devBypass bool
}

// NewVerifier creates a verifier for the configured key. devBypass
// must only ever be true in an explicitly non-production environment;
// callers are expected to gate it on their environment setting.
func NewVerifier(key string, devBypass bool) *Verifier {
	if key == "" {
		log.Println("API key is not configured; all authenticated requests will be rejected")
	}
	if devBypass {
		log.Println("Auth bypass enabled; do not run this configuration in production")
	}
	return &Verifier{key: key, devBypass: devBypass}
}

// Verify reports whether the candidate matches the configured key.
// The comparison is constant-time over the full key length so that
// response timing leaks nothing about the secret's content.
func (v *Verifier) Verify(candidate string) bool {
	if v.devBypass {
		return true
	}
	if v.key == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(v.key)) == 1
}

// Middleware rejects requests without a valid x-api-key header before
// any store access happens.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !v.Verify(r.Header.Get(HeaderName)) {
			log.Printf("Unauthorized access attempt: %s %s", r.Method, r.URL.Path)
			httpx.RespondErrorCode(w, http.StatusUnauthorized,
				"Unauthorized - Valid API key required", "INVALID_API_KEY")
			return
		}
		next.ServeHTTP(w, r)
	})
}
