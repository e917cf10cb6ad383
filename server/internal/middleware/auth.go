package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/quadhq/quad/internal/domain/services"
	"github.com/quadhq/quad/server/internal/session"
)

type contextKey string

const claimsContextKey contextKey = "session_claims"

// AuthMiddleware validates the session token on protected routes
type AuthMiddleware struct {
	sessionManager *session.Manager
	tokenService   *services.TokenService
	log            *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(sessionManager *session.Manager, tokenService *services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		sessionManager: sessionManager,
		tokenService:   tokenService,
		log:            slog.Default().With(slog.String("component", "auth_middleware")),
	}
}

// RequireAuth ensures the request carries a valid session token and places
// the validated claims in the request context
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.sessionManager.GetToken(r)
		if err != nil || token == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		claims, err := m.tokenService.Validate(r.Context(), token)
		if err != nil {
			m.log.Debug("rejecting invalid session token", slog.Any("error", err))
			if clearErr := m.sessionManager.ClearToken(r, w); clearErr != nil {
				m.log.Error("failed to clear session", slog.Any("error", clearErr))
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		// Report the identity back to the request logger wrapping the chain
		if ident, ok := r.Context().Value(identityContextKey).(*requestIdentity); ok {
			ident.userID = claims.UserID
			ident.tenantID = claims.TenantID
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the validated session claims placed by RequireAuth
func ClaimsFromContext(ctx context.Context) (*services.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*services.SessionClaims)
	return claims, ok
}
