package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUpgrade_SeatLimitReason(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/upgrade?reason=user-limit", nil)
	rec := httptest.NewRecorder()

	h.Upgrade(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "user limit") {
		t.Errorf("expected seat-limit message, got: %s", rec.Body.String())
	}
}

func TestSignup_CarriesEmail(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/signup?reason=no-company&email=dev%40acme.example", nil)
	rec := httptest.NewRecorder()

	h.Signup(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "dev@acme.example") {
		t.Errorf("expected asserted email prefilled, got: %s", body)
	}
	if !strings.Contains(body, "Request access") {
		t.Errorf("expected request-access form, got: %s", body)
	}
}

func TestHome_NotFoundOnOtherPaths(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()

	h.Home(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
