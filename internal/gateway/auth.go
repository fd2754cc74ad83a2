package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/flemzord/sclaw-console/internal/config"
	"github.com/flemzord/sclaw-console/internal/security"
)

// authMiddleware validates a Bearer token or Basic auth credentials using
// constant-time comparison. Failures are logged with the remote address.
func authMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				logger.Debug("auth failure", "reason", "missing authorization header", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "unauthorized"})
				return
			}

			if cfg.BearerToken != "" {
				if after, ok := strings.CutPrefix(auth, "Bearer "); ok && constantTimeEqual(after, cfg.BearerToken) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				// Evaluate both comparisons to keep timing independent of
				// which half is wrong.
				userOK := constantTimeEqual(user, cfg.BasicUser)
				passOK := constantTimeEqual(pass, cfg.BasicPass)
				if ok && userOK && passOK {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("auth failure", "reason", "invalid credentials", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "unauthorized"})
		})
	}
}

// writeLimit rate-limits mutating requests per client host. Reads are not
// limited.
func writeLimit(rl *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if err := rl.Allow(clientHost(r)); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
