package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophAuth/internal/db"
	"github.com/google/uuid"
)

// ErrResetTokenNotFound is returned when a reset token is unknown, used or expired.
var ErrResetTokenNotFound = errors.New("reset token not found")

// ResetTokenRepository stores hashed single-use password reset tokens.
type ResetTokenRepository struct {
	DB      *sql.DB
	dialect db.Dialect
}

// NewResetTokenRepository creates a ResetTokenRepository over an opened database.
func NewResetTokenRepository(conn *sql.DB, dialect db.Dialect) *ResetTokenRepository {
	return &ResetTokenRepository{DB: conn, dialect: dialect}
}

// Create stores a token hash for the account valid until expiresAt.
func (r *ResetTokenRepository) Create(ctx context.Context, tokenHash string, accountID uuid.UUID, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(
		ctx,
		r.dialect.Rebind(`INSERT INTO password_resets (token_hash, account_id, expires_at, used) VALUES ($1, $2, $3, FALSE)`),
		tokenHash, accountID, toMillis(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

// Consume marks a live token as used and returns the account it belongs to.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error) {
	var accountID uuid.UUID
	err := r.DB.QueryRowContext(
		ctx,
		r.dialect.Rebind(`UPDATE password_resets SET used = TRUE WHERE token_hash = $1 AND used = FALSE AND expires_at > $2 RETURNING account_id`),
		tokenHash, toMillis(now),
	).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrResetTokenNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("consume reset token: %w", err)
	}
	return accountID, nil
}
