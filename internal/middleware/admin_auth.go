package middleware

import (
	"net/http"
	"strings"

	"github.com/fcf-tessere/unlock-server-go/internal/audit"
	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
	"github.com/fcf-tessere/unlock-server-go/internal/util"
)

// AdminAuthMiddleware checks a bearer token against a bcrypt hash. With no
// hash configured every request is rejected.
type AdminAuthMiddleware struct {
	tokenHash string
}

func NewAdminAuthMiddleware(tokenHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{tokenHash: tokenHash}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tokenHash == "" {
			writeError(w, apperrors.Unauthorized("Admin access is not configured"))
			return
		}

		token, ok := bearerToken(r)
		if !ok || !util.CheckPasswordHash(token, m.tokenHash) {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"method": r.Method, "token_present": ok},
			})
			writeError(w, apperrors.Unauthorized("Invalid admin token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
