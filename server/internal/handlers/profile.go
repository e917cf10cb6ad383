package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/quadhq/quad/internal/domain/repositories"
	"github.com/quadhq/quad/server/internal/middleware"
)

// CompanyProfile serves the authenticated account's company profile
func (h *Handler) CompanyProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	profile, err := h.profiles.GetByEmail(r.Context(), claims.Email)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrAccountNotFound),
			errors.Is(err, repositories.ErrAccountInactive),
			errors.Is(err, repositories.ErrTenantNotFound):
			h.writeError(w, http.StatusNotFound, "profile not found")
		default:
			h.log.Error("failed to load company profile",
				slog.String("email", claims.Email),
				slog.Any("error", err))
			h.writeError(w, http.StatusInternalServerError, "failed to load profile")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": profile.Account,
		"company": map[string]interface{}{
			"id":               profile.Tenant.ID,
			"name":             profile.Tenant.Name,
			"size":             profile.Tenant.Size,
			"adoptionLevel":    profile.Tenant.AdoptionLevel,
			"estimationPreset": profile.Tenant.EstimationPreset,
			"refreshInterval":  profile.Tenant.RefreshInterval,
		},
		"activeSeats":  profile.ActiveSeats,
		"integrations": profile.Integrations,
	})
}
