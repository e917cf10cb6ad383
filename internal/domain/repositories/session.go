package repositories

import (
	"context"
	"time"

	"github.com/quadhq/quad/internal/domain/entities"
)

// SessionRepository defines the interface for login session data access
type SessionRepository interface {
	// Create stores a new session
	Create(ctx context.Context, session *entities.Session) error

	// GetByToken retrieves a session by its token
	GetByToken(ctx context.Context, token string) (*entities.Session, error)

	// Touch updates the session's last-activity timestamp
	Touch(ctx context.Context, token string, at time.Time) error

	// Delete removes a session by token (logout)
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes sessions that expired before the given time,
	// returning the number removed
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
