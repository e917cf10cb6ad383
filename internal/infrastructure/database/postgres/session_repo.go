package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/repositories"
	"github.com/quadhq/quad/internal/pkg/idgen"
	"github.com/quadhq/quad/internal/pkg/metrics"
)

// SessionRepository implements the SessionRepository interface for PostgreSQL
type SessionRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) repositories.SessionRepository {
	return &SessionRepository{
		db:  db,
		log: slog.Default().With(slog.String("repo", "session")),
	}
}

// sessionRow represents a session as stored in the database
type sessionRow struct {
	ID             string         `db:"id"`
	AccountID      string         `db:"account_id"`
	Token          string         `db:"token"`
	ExpiresAt      time.Time      `db:"expires_at"`
	IPAddress      sql.NullString `db:"ip_address"`
	UserAgent      sql.NullString `db:"user_agent"`
	CreatedAt      time.Time      `db:"created_at"`
	LastActivityAt sql.NullTime   `db:"last_activity_at"`
}

// toEntity converts a sessionRow to a domain entity
func (r *sessionRow) toEntity() *entities.Session {
	session := &entities.Session{
		ID:        r.ID,
		AccountID: r.AccountID,
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}

	if r.IPAddress.Valid {
		session.IPAddress = &r.IPAddress.String
	}

	if r.UserAgent.Valid {
		session.UserAgent = &r.UserAgent.String
	}

	if r.LastActivityAt.Valid {
		session.LastActivityAt = &r.LastActivityAt.Time
	}

	return session
}

// sessionRowFromEntity converts a domain entity to a sessionRow
func sessionRowFromEntity(session *entities.Session) *sessionRow {
	row := &sessionRow{
		ID:        session.ID,
		AccountID: session.AccountID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	}

	if session.IPAddress != nil {
		row.IPAddress = sql.NullString{String: *session.IPAddress, Valid: true}
	}

	if session.UserAgent != nil {
		row.UserAgent = sql.NullString{String: *session.UserAgent, Valid: true}
	}

	if session.LastActivityAt != nil {
		row.LastActivityAt = sql.NullTime{Time: *session.LastActivityAt, Valid: true}
	}

	return row
}

// Create stores a new session
func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("session", "create", time.Since(start), 1, err)
	}()

	if session.ID == "" {
		session.ID = idgen.GenerateID()
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	r.log.Debug("creating session",
		slog.String("id", session.ID),
		slog.String("account_id", session.AccountID),
		slog.Time("expires_at", session.ExpiresAt))

	row := sessionRowFromEntity(session)

	query := `INSERT INTO sessions (
			id, account_id, token, expires_at, ip_address, user_agent, created_at, last_activity_at
		) VALUES (
			:id, :account_id, :token, :expires_at, :ip_address, :user_agent, :created_at, :last_activity_at
		)`

	_, err = r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByToken retrieves a session by its token
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*entities.Session, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("session", "get_by_token", time.Since(start), rowCount, err)
	}()

	var row sessionRow
	query := `
		SELECT id, account_id, token, expires_at, ip_address, user_agent, created_at, last_activity_at
		FROM sessions
		WHERE token = $1`

	err = r.db.GetContext(ctx, &row, query, token)
	if err != nil {
		if err == sql.ErrNoRows {
			err = repositories.ErrSessionNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	rowCount = 1
	return row.toEntity(), nil
}

// Touch updates the session's last-activity timestamp
func (r *SessionRepository) Touch(ctx context.Context, token string, at time.Time) error {
	start := time.Now()
	var err error
	var rowsAffected int64
	defer func() {
		metrics.RecordDBOperation("session", "touch", time.Since(start), rowsAffected, err)
	}()

	query := `UPDATE sessions SET last_activity_at = $1 WHERE token = $2`

	result, err := r.db.ExecContext(ctx, query, at, token)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err = repositories.ErrSessionNotFound
		return err
	}

	return nil
}

// Delete removes a session by token
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	start := time.Now()
	var err error
	var rowsAffected int64
	defer func() {
		metrics.RecordDBOperation("session", "delete", time.Since(start), rowsAffected, err)
	}()

	query := `DELETE FROM sessions WHERE token = $1`

	result, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, _ = result.RowsAffected()
	// Logout is idempotent, a missing session is not an error
	return nil
}

// DeleteExpired removes sessions that expired before the given time
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	start := time.Now()
	var err error
	var rowsAffected int64
	defer func() {
		metrics.RecordDBOperation("session", "delete_expired", time.Since(start), rowsAffected, err)
	}()

	query := `DELETE FROM sessions WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
