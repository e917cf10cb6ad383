package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quadhq/quad/internal/auth"
	"github.com/quadhq/quad/internal/domain/services"
	"github.com/quadhq/quad/server/internal/session"
)

// Handler holds dependencies for all web handlers
type Handler struct {
	admission      *services.AdmissionService
	tokens         *services.TokenService
	intake         *services.IntakeService
	profiles       *services.ProfileService
	providers      *auth.Registry
	sessionManager *session.Manager
	log            *slog.Logger
}

// New creates a new handler with dependencies
func New(
	admission *services.AdmissionService,
	tokens *services.TokenService,
	intake *services.IntakeService,
	profiles *services.ProfileService,
	providers *auth.Registry,
	sessionManager *session.Manager,
) *Handler {
	return &Handler{
		admission:      admission,
		tokens:         tokens,
		intake:         intake,
		profiles:       profiles,
		providers:      providers,
		sessionManager: sessionManager,
		log:            slog.Default().With(slog.String("component", "web_handler")),
	}
}

// writeJSON writes a JSON response with the given status code
func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
