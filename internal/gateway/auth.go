package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flemzord/crondeck/internal/audit"
)

// authMiddleware returns a chi-compatible middleware that validates Bearer token
// or Basic auth credentials using constant-time comparison.
// Failed attempts are recorded in the audit log when one is provided.
func authMiddleware(cfg AuthConfig, auditLogger *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				emitAuthFailure(auditLogger, r, "missing authorization header")
				unauthorized(w, cfg)
				return
			}

			// Try Bearer token first.
			if cfg.BearerToken != "" {
				if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
					if constantTimeEqual(after, cfg.BearerToken) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			// Try Basic auth.
			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
					next.ServeHTTP(w, r)
					return
				}
			}

			emitAuthFailure(auditLogger, r, "invalid credentials")
			unauthorized(w, cfg)
		})
	}
}

func unauthorized(w http.ResponseWriter, cfg AuthConfig) {
	if cfg.BasicUser != "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="crondeck"`)
	}
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}

// emitAuthFailure records a rejected request.
func emitAuthFailure(logger *audit.Logger, r *http.Request, detail string) {
	logger.Record(audit.Event{
		Action: audit.AuthFailure,
		Source: "api",
		Detail: detail,
		Fields: map[string]string{
			"remote_addr": r.RemoteAddr,
			"method":      r.Method,
			"path":        r.URL.Path,
		},
	})
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
