// Package repository provides persistence implementations for accounts and
// password reset tokens on top of database/sql.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophAuth/internal/db"
	"github.com/atinyakov/GophAuth/internal/models"
	"github.com/google/uuid"
)

// AccountRepository implements account persistence for PostgreSQL and SQLite.
type AccountRepository struct {
	// DB is the database handle for executing queries.
	DB      *sql.DB
	dialect db.Dialect
}

// NewAccountRepository creates an AccountRepository over an opened database.
func NewAccountRepository(conn *sql.DB, dialect db.Dialect) *AccountRepository {
	return &AccountRepository{DB: conn, dialect: dialect}
}

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Insert persists a new account. A duplicate email yields models.ErrDuplicateEmail.
func (r *AccountRepository) Insert(ctx context.Context, account models.Account) error {
	_, err := r.DB.ExecContext(
		ctx,
		r.dialect.Rebind(`INSERT INTO accounts (id, email, password_hash, full_name, created_at) VALUES ($1, $2, $3, $4, $5)`),
		account.ID, account.Email, account.PasswordHash, account.FullName, toMillis(account.CreatedAt),
	)
	if r.dialect.IsUniqueViolation(err) {
		return models.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// ExistsByEmail reports whether an account with exactly this email exists.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		r.dialect.Rebind(`SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`),
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// FindByEmail loads the account registered with email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	row := r.DB.QueryRowContext(
		ctx,
		r.dialect.Rebind(`SELECT id, email, password_hash, full_name, created_at FROM accounts WHERE email = $1`),
		email,
	)
	return scanAccount(row)
}

// FindByID loads the account with the given id.
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (models.Account, error) {
	row := r.DB.QueryRowContext(
		ctx,
		r.dialect.Rebind(`SELECT id, email, password_hash, full_name, created_at FROM accounts WHERE id = $1`),
		id,
	)
	return scanAccount(row)
}

// Delete removes the account. Deleting a missing account returns
// models.ErrAccountNotFound, so a repeated delete only ever reports "not found".
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM accounts WHERE id = $1`), id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireAffected(res)
}

// UpdatePasswordHash replaces the stored password hash.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.DB.ExecContext(
		ctx,
		r.dialect.Rebind(`UPDATE accounts SET password_hash = $1 WHERE id = $2`),
		hash, id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (models.Account, error) {
	var (
		account   models.Account
		fullName  sql.NullString
		createdAt int64
	)
	err := row.Scan(&account.ID, &account.Email, &account.PasswordHash, &fullName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, models.ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("scan account: %w", err)
	}
	account.FullName = fullName.String
	account.CreatedAt = fromMillis(createdAt)
	return account, nil
}
