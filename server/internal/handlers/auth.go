package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/quadhq/quad/internal/domain/entities"
)

// Login initiates the OAuth authorization code flow for the requested provider
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	// Already signed in, nothing to do
	if token, err := h.sessionManager.GetToken(r); err == nil && token != "" {
		if _, err := h.tokens.Validate(r.Context(), token); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	providerName := r.URL.Query().Get("provider")
	if providerName == "" {
		names := h.providers.List()
		if len(names) != 1 {
			h.writeJSON(w, http.StatusOK, map[string]interface{}{"providers": names})
			return
		}
		providerName = names[0]
	}

	provider, err := h.providers.Get(providerName)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unknown provider")
		return
	}

	state, err := generateState()
	if err != nil {
		h.log.Error("failed to generate state", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "failed to start login")
		return
	}

	if err := h.sessionManager.SetOAuthState(r, w, state, providerName); err != nil {
		h.log.Error("failed to save session", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "failed to start login")
		return
	}

	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// AuthCallback handles the OAuth callback. It exchanges the authorization
// code, fetches the asserted identity, runs the admission procedure, and
// routes the browser by the resulting decision.
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	if errorParam := r.URL.Query().Get("error"); errorParam != "" {
		h.log.Warn("oauth error received",
			slog.String("error", errorParam),
			slog.String("error_description", r.URL.Query().Get("error_description")))
		h.writeError(w, http.StatusBadRequest, "authentication failed")
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		h.writeError(w, http.StatusBadRequest, "missing state or code")
		return
	}

	storedState, providerName, err := h.sessionManager.ConsumeOAuthState(r, w)
	if err != nil || storedState == "" || storedState != state {
		h.log.Warn("oauth state mismatch", slog.String("provider", providerName))
		h.writeError(w, http.StatusBadRequest, "invalid state")
		return
	}

	provider, err := h.providers.Get(providerName)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unknown provider")
		return
	}

	token, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.log.Error("failed to exchange authorization code",
			slog.String("provider", providerName),
			slog.Any("error", err))
		h.writeError(w, http.StatusBadGateway, "authentication failed")
		return
	}

	assertion, err := provider.FetchIdentity(r.Context(), token)
	if err != nil {
		h.log.Error("failed to fetch identity",
			slog.String("provider", providerName),
			slog.Any("error", err))
		h.writeError(w, http.StatusBadGateway, "authentication failed")
		return
	}

	decision, err := h.admission.Admit(r.Context(), *assertion)
	if err != nil {
		h.log.Error("admission procedure failed",
			slog.String("provider", providerName),
			slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	switch decision.Outcome {
	case entities.OutcomeAllow:
		h.finishSignIn(w, r, decision.Account)

	case entities.OutcomeRedirectUpgrade:
		http.Redirect(w, r, "/upgrade?reason="+url.QueryEscape(decision.Reason), http.StatusSeeOther)

	case entities.OutcomeRedirectSignup:
		http.Redirect(w, r, "/signup?reason=no-company&email="+url.QueryEscape(decision.Email), http.StatusSeeOther)

	default:
		h.writeError(w, http.StatusForbidden, "sign-in denied")
	}
}

// finishSignIn issues the session token for an admitted account and stores it
// in the cookie session
func (h *Handler) finishSignIn(w http.ResponseWriter, r *http.Request, account *entities.Account) {
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP = forwarded
	}
	userAgent := r.UserAgent()

	token, err := h.tokens.Issue(r.Context(), account, &clientIP, &userAgent)
	if err != nil {
		h.log.Error("failed to issue session token",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	if err := h.sessionManager.SetToken(r, w, token); err != nil {
		h.log.Error("failed to save session", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	h.log.Info("sign-in complete",
		slog.String("account_id", account.ID),
		slog.String("tenant_id", account.TenantID))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout revokes the backing session row and clears the cookie session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := h.sessionManager.GetToken(r); err == nil && token != "" {
		if err := h.tokens.Revoke(r.Context(), token); err != nil {
			h.log.Error("failed to revoke session", slog.Any("error", err))
		}
	}

	if err := h.sessionManager.ClearToken(r, w); err != nil {
		h.log.Error("failed to clear session", slog.Any("error", err))
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// generateState returns a random URL-safe CSRF state value
func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
