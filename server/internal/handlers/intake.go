package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/services"
)

// accessRequestPayload is the JSON body of an access-request submission
type accessRequestPayload struct {
	CompanyName string `json:"companyName"`
	AdminEmail  string `json:"adminEmail"`
	CompanySize string `json:"companySize"`
	SSOProvider string `json:"ssoProvider"`
	Message     string `json:"message"`
}

// RequestAccess accepts an access-request submission from the signup page
func (h *Handler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var payload accessRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	tenant, err := h.intake.SubmitAccessRequest(r.Context(), services.AccessRequest{
		CompanyName: payload.CompanyName,
		AdminEmail:  payload.AdminEmail,
		CompanySize: entities.SizeClass(payload.CompanySize),
		SSOProvider: payload.SSOProvider,
		Message:     payload.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrIntakeMissingFields),
			errors.Is(err, services.ErrIntakeInvalidEmail),
			errors.Is(err, services.ErrIntakeInvalidSize):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrIntakeDuplicate):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.log.Error("failed to submit access request", slog.Any("error", err))
			h.writeError(w, http.StatusInternalServerError, "failed to submit request")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status":   "pending",
		"tenantId": tenant.ID,
	})
}
