package session

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	// SessionName is the name of the session cookie
	SessionName = "quad_session"

	// TokenKey is the session key for storing the JWT token
	TokenKey = "token"

	// OAuthStateKey is the session key for the OAuth CSRF state
	OAuthStateKey = "oauth_state"

	// OAuthProviderKey is the session key for the provider of an in-flight login
	OAuthProviderKey = "oauth_provider"
)

// Manager wraps gorilla/sessions for our use case
type Manager struct {
	store *sessions.CookieStore
}

// NewManager creates a new session manager.
// secretKey should be 32 bytes.
func NewManager(secretKey []byte) *Manager {
	store := sessions.NewCookieStore(secretKey)

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   24 * 60 * 60, // matches the JWT lifetime
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		store: store,
	}
}

// SetToken stores the session JWT in the cookie session
func (m *Manager) SetToken(r *http.Request, w http.ResponseWriter, token string) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		session, _ = m.store.New(r, SessionName)
	}

	session.Values[TokenKey] = token
	return session.Save(r, w)
}

// GetToken retrieves the session JWT from the cookie session
func (m *Manager) GetToken(r *http.Request) (string, error) {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return "", err
	}

	token, ok := session.Values[TokenKey].(string)
	if !ok {
		return "", http.ErrNoCookie
	}

	return token, nil
}

// ClearToken removes the session (logout)
func (m *Manager) ClearToken(r *http.Request, w http.ResponseWriter) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return nil // Session doesn't exist, nothing to clear
	}

	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// SetOAuthState stores the CSRF state and provider of an in-flight login
func (m *Manager) SetOAuthState(r *http.Request, w http.ResponseWriter, state, provider string) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		session, _ = m.store.New(r, SessionName)
	}

	session.Values[OAuthStateKey] = state
	session.Values[OAuthProviderKey] = provider
	return session.Save(r, w)
}

// ConsumeOAuthState returns and clears the stored CSRF state and provider.
// Clearing makes each state single use.
func (m *Manager) ConsumeOAuthState(r *http.Request, w http.ResponseWriter) (state, provider string, err error) {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return "", "", err
	}

	state, _ = session.Values[OAuthStateKey].(string)
	provider, _ = session.Values[OAuthProviderKey].(string)

	delete(session.Values, OAuthStateKey)
	delete(session.Values, OAuthProviderKey)
	if err := session.Save(r, w); err != nil {
		return "", "", err
	}

	return state, provider, nil
}

// GetSession returns the session object for storing additional data
func (m *Manager) GetSession(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, SessionName)
}
