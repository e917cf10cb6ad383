package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quadhq/quad/internal/domain/entities"
	"github.com/quadhq/quad/internal/domain/repositories"
	"github.com/quadhq/quad/internal/pkg/idgen"
	"github.com/quadhq/quad/internal/pkg/metrics"
)

// AccountRepository implements the AccountRepository interface for PostgreSQL
type AccountRepository struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db *sqlx.DB) repositories.AccountRepository {
	return &AccountRepository{
		db:  db,
		log: slog.Default().With(slog.String("repo", "account")),
	}
}

// accountRow represents an account as stored in the database
type accountRow struct {
	ID            string         `db:"id"`
	TenantID      string         `db:"tenant_id"`
	Email         string         `db:"email"`
	FullName      sql.NullString `db:"full_name"`
	AvatarURL     sql.NullString `db:"avatar_url"`
	OAuthProvider sql.NullString `db:"oauth_provider"`
	OAuthID       sql.NullString `db:"oauth_id"`
	Role          string         `db:"role"`
	IsActive      bool           `db:"is_active"`
	EmailVerified bool           `db:"email_verified"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	LastLoginAt   sql.NullTime   `db:"last_login_at"`
}

// toEntity converts an accountRow to a domain entity
func (r *accountRow) toEntity() *entities.Account {
	account := &entities.Account{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Email:         r.Email,
		Role:          entities.Role(r.Role),
		IsActive:      r.IsActive,
		EmailVerified: r.EmailVerified,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}

	if r.FullName.Valid {
		account.FullName = &r.FullName.String
	}

	if r.AvatarURL.Valid {
		account.AvatarURL = &r.AvatarURL.String
	}

	if r.OAuthProvider.Valid {
		account.OAuthProvider = &r.OAuthProvider.String
	}

	if r.OAuthID.Valid {
		account.OAuthID = &r.OAuthID.String
	}

	if r.LastLoginAt.Valid {
		account.LastLoginAt = &r.LastLoginAt.Time
	}

	return account
}

// accountRowFromEntity converts a domain entity to an accountRow
func accountRowFromEntity(account *entities.Account) *accountRow {
	row := &accountRow{
		ID:            account.ID,
		TenantID:      account.TenantID,
		Email:         account.Email,
		Role:          string(account.Role),
		IsActive:      account.IsActive,
		EmailVerified: account.EmailVerified,
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
	}

	if account.FullName != nil {
		row.FullName = sql.NullString{String: *account.FullName, Valid: true}
	}

	if account.AvatarURL != nil {
		row.AvatarURL = sql.NullString{String: *account.AvatarURL, Valid: true}
	}

	if account.OAuthProvider != nil {
		row.OAuthProvider = sql.NullString{String: *account.OAuthProvider, Valid: true}
	}

	if account.OAuthID != nil {
		row.OAuthID = sql.NullString{String: *account.OAuthID, Valid: true}
	}

	if account.LastLoginAt != nil {
		row.LastLoginAt = sql.NullTime{Time: *account.LastLoginAt, Valid: true}
	}

	return row
}

const accountColumns = `id, tenant_id, email, full_name, avatar_url, oauth_provider, oauth_id,
       role, is_active, email_verified, created_at, updated_at, last_login_at`

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("account", "get_by_id", time.Since(start), rowCount, err)
	}()

	var row accountRow
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	err = r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			err = repositories.ErrAccountNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	rowCount = 1
	return row.toEntity(), nil
}

// GetByEmail retrieves an account by exact email match. Inactive accounts
// are returned as-is; callers that care check Active() themselves.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entities.Account, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("account", "get_by_email", time.Since(start), rowCount, err)
	}()

	var row accountRow
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	err = r.db.GetContext(ctx, &row, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			err = repositories.ErrAccountNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	rowCount = 1
	return row.toEntity(), nil
}

// Create inserts a new account with no seat-limit enforcement
func (r *AccountRepository) Create(ctx context.Context, account *entities.Account) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("account", "create", time.Since(start), 1, err)
	}()

	if account.ID == "" {
		account.ID = idgen.GenerateID()
	}

	r.log.Debug("creating account",
		slog.String("id", account.ID),
		slog.String("tenant_id", account.TenantID),
		slog.String("email", account.Email))

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	row := accountRowFromEntity(account)

	query := `INSERT INTO accounts (
			id, tenant_id, email, full_name, avatar_url, oauth_provider, oauth_id,
			role, is_active, email_verified, created_at, updated_at, last_login_at
		) VALUES (
			:id, :tenant_id, :email, :full_name, :avatar_url, :oauth_provider, :oauth_id,
			:role, :is_active, :email_verified, :created_at, :updated_at, :last_login_at
		)`

	_, err = r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		if isUniqueViolation(err) {
			err = repositories.ErrDuplicateEmail
			return err
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// CreateInTenant inserts a new account for a tenant. With a positive
// seatCeiling the insert runs in a transaction that locks the tenant row,
// re-counts active accounts under the lock, and refuses the insert with
// ErrSeatLimitReached once the ceiling is hit. Two concurrent sign-ins
// racing for the last seat serialize on the tenant row, so only one wins.
func (r *AccountRepository) CreateInTenant(ctx context.Context, account *entities.Account, seatCeiling int) error {
	start := time.Now()
	var err error
	defer func() {
		metrics.RecordDBOperation("account", "create_in_tenant", time.Since(start), 1, err)
	}()

	if account.ID == "" {
		account.ID = idgen.GenerateID()
	}

	r.log.Debug("creating account in tenant",
		slog.String("id", account.ID),
		slog.String("tenant_id", account.TenantID),
		slog.String("email", account.Email),
		slog.Int("seat_ceiling", seatCeiling))

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	row := accountRowFromEntity(account)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if seatCeiling > 0 {
		var tenantID string
		err = tx.GetContext(ctx, &tenantID,
			`SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, account.TenantID)
		if err != nil {
			if err == sql.ErrNoRows {
				err = repositories.ErrTenantNotFound
				return err
			}
			return fmt.Errorf("failed to lock tenant: %w", err)
		}

		var active int
		err = tx.GetContext(ctx, &active,
			`SELECT COUNT(*) FROM accounts WHERE tenant_id = $1 AND is_active = true`, account.TenantID)
		if err != nil {
			return fmt.Errorf("failed to count active accounts: %w", err)
		}

		if active >= seatCeiling {
			err = repositories.ErrSeatLimitReached
			return err
		}
	}

	query := `INSERT INTO accounts (
			id, tenant_id, email, full_name, avatar_url, oauth_provider, oauth_id,
			role, is_active, email_verified, created_at, updated_at, last_login_at
		) VALUES (
			:id, :tenant_id, :email, :full_name, :avatar_url, :oauth_provider, :oauth_id,
			:role, :is_active, :email_verified, :created_at, :updated_at, :last_login_at
		)`

	_, err = tx.NamedExecContext(ctx, query, row)
	if err != nil {
		if isUniqueViolation(err) {
			err = repositories.ErrDuplicateEmail
			return err
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateIdentityLink updates an account's linked OAuth identity fields and
// last-login timestamp. Writing the same identity twice converges to the
// same stored state, so repeated sign-ins are safe.
func (r *AccountRepository) UpdateIdentityLink(ctx context.Context, accountID, provider, providerAccountID string, avatarURL *string, loginTime time.Time) error {
	start := time.Now()
	var err error
	var rowsAffected int64
	defer func() {
		metrics.RecordDBOperation("account", "update_identity_link", time.Since(start), rowsAffected, err)
	}()

	r.log.Debug("updating identity link",
		slog.String("account_id", accountID),
		slog.String("provider", provider))

	avatar := sql.NullString{}
	if avatarURL != nil {
		avatar = sql.NullString{String: *avatarURL, Valid: true}
	}

	query := `
		UPDATE accounts SET
			oauth_provider = $1,
			oauth_id = $2,
			avatar_url = COALESCE($3, avatar_url),
			last_login_at = $4,
			updated_at = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query, provider, providerAccountID, avatar, loginTime, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update identity link: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err = repositories.ErrAccountNotFound
		return err
	}

	return nil
}

// UpdateLastLogin updates the account's last login timestamp
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, accountID string, loginTime time.Time) error {
	start := time.Now()
	var err error
	var rowsAffected int64
	defer func() {
		metrics.RecordDBOperation("account", "update_last_login", time.Since(start), rowsAffected, err)
	}()

	query := `UPDATE accounts SET last_login_at = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, loginTime, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err = repositories.ErrAccountNotFound
		return err
	}

	return nil
}

// CountActiveInTenant counts active accounts belonging to a tenant
func (r *AccountRepository) CountActiveInTenant(ctx context.Context, tenantID string) (int, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("account", "count_active_in_tenant", time.Since(start), rowCount, err)
	}()

	var count int
	query := `SELECT COUNT(*) FROM accounts WHERE tenant_id = $1 AND is_active = true`

	err = r.db.GetContext(ctx, &count, query, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to count active accounts: %w", err)
	}

	rowCount = int64(count)
	return count, nil
}

// ExistsByEmail checks if an account exists by email
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	start := time.Now()
	var err error
	var rowCount int64
	defer func() {
		metrics.RecordDBOperation("account", "exists_by_email", time.Since(start), rowCount, err)
	}()

	var count int
	query := `SELECT COUNT(*) FROM accounts WHERE email = $1`

	err = r.db.GetContext(ctx, &count, query, email)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence by email: %w", err)
	}

	rowCount = int64(count)
	return count > 0, nil
}
