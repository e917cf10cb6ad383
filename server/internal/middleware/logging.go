package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/quadhq/quad/internal/pkg/logger"
	"github.com/quadhq/quad/internal/pkg/metrics"
)

// requestIdentity is installed into the request context before the handler
// chain runs and filled in by RequireAuth once the session is validated, so
// the request log line can carry the signed-in identity.
type requestIdentity struct {
	userID   string
	tenantID string
}

const identityContextKey contextKey = "request_identity"

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// LogRequest logs HTTP requests in structured form and records request metrics
func LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip health checks and metrics scrapes to reduce noise
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     200, // default if WriteHeader not called
		}

		ident := &requestIdentity{}
		r = r.WithContext(context.WithValue(r.Context(), identityContextKey, ident))

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, r.URL.Path, wrapped.statusCode, duration)

		// Consider X-Forwarded-For if behind a proxy
		clientIP := r.RemoteAddr
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			clientIP = forwarded
		} else if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			clientIP = realIP
		}

		log := logger.WithHTTPRequest(slog.Default(), r.Method, r.URL.Path).With("client_ip", clientIP)
		if ident.userID != "" {
			log = log.With("user_id", ident.userID, "tenant_id", ident.tenantID)
		}

		if wrapped.statusCode >= 500 {
			log.Error("request failed",
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"bytes", wrapped.written)
			return
		}

		log.Info("request",
			"status", wrapped.statusCode,
			"duration_ms", duration.Milliseconds(),
			"bytes", wrapped.written,
			"user_agent", r.UserAgent())
	})
}
