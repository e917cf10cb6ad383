package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/quadhq/quad/internal/config"
)

func TestNewProvider_WellKnownEndpoints(t *testing.T) {
	provider, err := NewProvider(config.ProviderConfig{
		Name:     "google",
		ClientID: "client-id",
	}, "https://quad.example/auth/callback")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	url := provider.AuthCodeURL("state-123")
	if !strings.HasPrefix(url, "https://accounts.google.com/o/oauth2/v2/auth") {
		t.Errorf("unexpected auth URL: %s", url)
	}
	if !strings.Contains(url, "state=state-123") {
		t.Errorf("auth URL missing state: %s", url)
	}
	if !strings.Contains(url, "client_id=client-id") {
		t.Errorf("auth URL missing client id: %s", url)
	}
}

func TestNewProvider_IssuerDerivedEndpoints(t *testing.T) {
	provider, err := NewProvider(config.ProviderConfig{
		Name:     "okta",
		ClientID: "client-id",
		Issuer:   "https://acme.okta.example",
	}, "https://quad.example/auth/callback")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	url := provider.AuthCodeURL("s")
	if !strings.HasPrefix(url, "https://acme.okta.example/oauth2/v1/authorize") {
		t.Errorf("unexpected auth URL: %s", url)
	}
}

func TestNewProvider_MissingEndpoints(t *testing.T) {
	_, err := NewProvider(config.ProviderConfig{
		Name:     "custom",
		ClientID: "client-id",
	}, "https://quad.example/auth/callback")
	if err == nil {
		t.Fatal("expected an error for a provider with no endpoints")
	}
}

func TestFetchIdentity_StandardClaims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-token" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sub":     "subject-1",
			"email":   "dev@acme.example",
			"name":    "Dev One",
			"picture": "https://img.example/a.png",
		})
	}))
	defer srv.Close()

	provider := testProvider(t, srv.URL)

	assertion, err := provider.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "access-token"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if assertion.Email != "dev@acme.example" {
		t.Errorf("expected email dev@acme.example, got %q", assertion.Email)
	}
	if assertion.ProviderAccountID != "subject-1" {
		t.Errorf("expected subject-1, got %q", assertion.ProviderAccountID)
	}
	if assertion.DisplayName != "Dev One" {
		t.Errorf("expected Dev One, got %q", assertion.DisplayName)
	}
	if assertion.AvatarURL != "https://img.example/a.png" {
		t.Errorf("unexpected avatar: %q", assertion.AvatarURL)
	}
}

func TestFetchIdentity_GitHubShapedClaims(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         12345,
			"login":      "devone",
			"email":      "dev@acme.example",
			"avatar_url": "https://img.example/gh.png",
		})
	}))
	defer srv.Close()

	provider := testProvider(t, srv.URL)

	assertion, err := provider.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "t"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if assertion.ProviderAccountID != "12345" {
		t.Errorf("expected numeric id mapped to 12345, got %q", assertion.ProviderAccountID)
	}
	if assertion.DisplayName != "devone" {
		t.Errorf("expected login fallback, got %q", assertion.DisplayName)
	}
	if assertion.AvatarURL != "https://img.example/gh.png" {
		t.Errorf("unexpected avatar: %q", assertion.AvatarURL)
	}
}

func TestFetchIdentity_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	provider := testProvider(t, srv.URL)

	if _, err := provider.FetchIdentity(context.Background(), &oauth2.Token{AccessToken: "t"}); err == nil {
		t.Fatal("expected an error when the userinfo endpoint rejects the token")
	}
}

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry([]config.ProviderConfig{
		{Name: "google", ClientID: "a"},
		{Name: "github", ClientID: "b"},
	}, "https://quad.example/auth/callback")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := registry.Get("google"); err != nil {
		t.Errorf("expected google to be registered: %v", err)
	}
	if _, err := registry.Get("gitlab"); err == nil {
		t.Error("expected unknown provider error")
	}

	names := registry.List()
	if len(names) != 2 || names[0] != "github" || names[1] != "google" {
		t.Errorf("expected sorted provider names, got %v", names)
	}
}

func testProvider(t *testing.T, userInfoURL string) *Provider {
	t.Helper()
	provider, err := NewProvider(config.ProviderConfig{
		Name:        "test",
		ClientID:    "client-id",
		AuthURL:     userInfoURL + "/authorize",
		TokenURL:    userInfoURL + "/token",
		UserInfoURL: userInfoURL,
	}, "https://quad.example/auth/callback")
	if err != nil {
		t.Fatalf("failed to build provider: %v", err)
	}
	return provider
}
