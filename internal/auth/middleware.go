// Package auth guards the JSON API with a static bearer token. The token is
// configured as a bcrypt hash so the clear value never lives in the
// environment of the running process.
package auth

import (
	"crypto/sha256"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/sentinel-iga/sentinel/internal/platform/httpx"
)

// Middleware verifies the Authorization header against the configured hash.
type Middleware struct {
	hash   []byte
	logger *slog.Logger

	mu       sync.Mutex
	verified [sha256.Size]byte
	hasMatch bool
}

// NewMiddleware constructs the guard. An empty hash disables verification,
// which is only intended for local development.
func NewMiddleware(tokenHash string, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenHash == "" {
		logger.Warn("api token hash not configured, requests are unauthenticated")
	}
	return &Middleware{hash: []byte(tokenHash), logger: logger}
}

// RequireToken rejects requests that do not carry the expected bearer token.
func (m *Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.hash) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		if !m.verify(token) {
			m.logger.Warn("rejected api token", slog.String("path", r.URL.Path))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// verify runs the bcrypt comparison once per token value and remembers the
// digest of the last accepted token, since bcrypt is too slow to run on
// every request.
func (m *Middleware) verify(token string) bool {
	digest := sha256.Sum256([]byte(token))
	m.mu.Lock()
	if m.hasMatch && m.verified == digest {
		m.mu.Unlock()
		return true
	}
	m.mu.Unlock()

	if err := bcrypt.CompareHashAndPassword(m.hash, []byte(token)); err != nil {
		return false
	}
	m.mu.Lock()
	m.verified = digest
	m.hasMatch = true
	m.mu.Unlock()
	return true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
