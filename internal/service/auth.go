// Package service provides authentication business logic on top of the
// account store, the registration orchestrator and the token issuer.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/GophAuth/internal/models"
	"github.com/atinyakov/GophAuth/internal/registration"
	"github.com/atinyakov/GophAuth/internal/repository"
	"github.com/atinyakov/GophAuth/internal/token"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountLocked is returned while an email is locked out after repeated failures.
	ErrAccountLocked = errors.New("too many failed login attempts")
	// ErrInvalidResetToken is returned for an unknown, used or expired reset token.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// DefaultResetTokenTTL is used when Deps.ResetTokenTTL is not set.
const DefaultResetTokenTTL = 30 * time.Minute

// AccountRepository defines the persistence operations
// required by the authentication service.
type AccountRepository interface {
	// FindByEmail returns the account registered with exactly this email
	// or models.ErrAccountNotFound.
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	// FindByID returns the account with the given id or models.ErrAccountNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (models.Account, error)
	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// ResetTokenRepository stores hashed password reset tokens.
type ResetTokenRepository interface {
	// Create stores tokenHash for accountID until expiresAt.
	Create(ctx context.Context, tokenHash string, accountID uuid.UUID, expiresAt time.Time) error
	// Consume marks a live token as used and returns its account id.
	Consume(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
}

// TokenIssuer issues and validates access tokens.
type TokenIssuer interface {
	Issue(account models.Account) (string, time.Time, error)
	Validate(raw string) (*token.Claims, error)
}

// LoginGuard tracks failed logins per email.
type LoginGuard interface {
	// Locked reports whether the email may not log in right now.
	Locked(ctx context.Context, email string) (bool, error)
	// Fail records one failed attempt.
	Fail(ctx context.Context, email string) (int64, error)
	// Reset clears the failures after a successful login.
	Reset(ctx context.Context, email string) error
}

// ResetNotifier delivers a plaintext reset token to the account owner.
type ResetNotifier interface {
	NotifyReset(ctx context.Context, account models.Account, token string, expiresAt time.Time) error
}

// Registrar runs a registration to completion.
type Registrar interface {
	Register(ctx context.Context, req models.RegistrationRequest) registration.Outcome
}

// Deps groups the collaborators of Service. Guard and Notifier are optional.
type Deps struct {
	Accounts      AccountRepository
	Resets        ResetTokenRepository
	Hasher        PasswordHasher
	Tokens        TokenIssuer
	Registrar     Registrar
	Guard         LoginGuard
	Notifier      ResetNotifier
	Logger        *zap.Logger
	ResetTokenTTL time.Duration
}

// Service implements authentication operations.
type Service struct {
	accounts  AccountRepository
	resets    ResetTokenRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	registrar Registrar
	guard     LoginGuard
	notifier  ResetNotifier
	log       *zap.Logger
	resetTTL  time.Duration
	now       func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// NewAuthService constructs a Service from d.
func NewAuthService(d Deps) *Service {
	s := &Service{
		accounts:  d.Accounts,
		resets:    d.Resets,
		hasher:    d.Hasher,
		tokens:    d.Tokens,
		registrar: d.Registrar,
		guard:     d.Guard,
		notifier:  d.Notifier,
		log:       d.Logger,
		resetTTL:  d.ResetTokenTTL,
		now:       time.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.guard == nil {
		s.guard = nopGuard{}
	}
	if s.notifier == nil {
		s.notifier = NewLogResetNotifier(s.log, false)
	}
	if s.resetTTL <= 0 {
		s.resetTTL = DefaultResetTokenTTL
	}
	return s
}

// Register creates the local account and its remote profile.
func (s *Service) Register(ctx context.Context, req models.RegistrationRequest) registration.Outcome {
	return s.registrar.Register(ctx, req)
}

// Login verifies the credentials and issues an access token.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (models.Session, error) {
	locked, err := s.guard.Locked(ctx, email)
	if err != nil {
		s.log.Warn("login guard unavailable", zap.Error(err))
	}
	if locked {
		return models.Session{}, ErrAccountLocked
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrAccountNotFound) {
		// Spend the same verify cost as a wrong password.
		if dummy := s.dummyHash(); dummy != "" {
			_, _ = s.hasher.Verify(password, dummy)
		}
		s.recordFailure(ctx, email)
		return models.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("find account: %w", err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return models.Session{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.recordFailure(ctx, email)
		return models.Session{}, ErrInvalidCredentials
	}

	if err := s.guard.Reset(ctx, email); err != nil {
		s.log.Warn("failed to reset login attempts", zap.Error(err))
	}

	signed, expiresAt, err := s.tokens.Issue(account)
	if err != nil {
		return models.Session{}, fmt.Errorf("issue token: %w", err)
	}
	return models.Session{Token: signed, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

func (s *Service) dummyHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("gophauth-unknown-account")
		if err != nil {
			s.log.Warn("failed to prepare dummy password hash", zap.Error(err))
			return
		}
		s.dummy = h
	})
	return s.dummy
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	n, err := s.guard.Fail(ctx, email)
	if err != nil {
		s.log.Warn("failed to record login attempt", zap.Error(err))
		return
	}
	s.log.Debug("login failed", zap.Int64("attempts", n))
}

// ForgotPassword issues a reset token for email and hands it to the notifier.
// An unknown email is not an error.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrAccountNotFound) {
		s.log.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}

	raw, err := newResetToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().UTC().Add(s.resetTTL)
	if err := s.resets.Create(ctx, hashResetToken(raw), account.ID, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if err := s.notifier.NotifyReset(ctx, account, raw, expiresAt); err != nil {
		return fmt.Errorf("notify reset: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password. Weak or
// mismatched passwords return a *registration.ValidationError.
func (s *Service) ResetPassword(ctx context.Context, resetToken, password, confirm string) error {
	if resetToken == "" {
		return ErrInvalidResetToken
	}
	if err := registration.ValidatePassword(password, confirm); err != nil {
		return err
	}

	// Hash before consuming so a hashing failure leaves the token usable.
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	id, err := s.resets.Consume(ctx, hashResetToken(resetToken), s.now().UTC())
	if errors.Is(err, repository.ErrResetTokenNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, id, hash); err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("update password: %w", err)
	}

	if account, err := s.accounts.FindByID(ctx, id); err == nil {
		if err := s.guard.Reset(ctx, account.Email); err != nil {
			s.log.Warn("failed to reset login attempts", zap.Error(err))
		}
	}
	s.log.Info("password reset", zap.Stringer("account_id", id))
	return nil
}

// Profile returns the local account with the given id.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (models.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// ValidateToken verifies an access token and returns its claims.
func (s *Service) ValidateToken(raw string) (*token.Claims, error) {
	return s.tokens.Validate(raw)
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// hashResetToken is what the store keys on; the plaintext never reaches it.
func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type nopGuard struct{}

func (nopGuard) Locked(context.Context, string) (bool, error) { return false, nil }
func (nopGuard) Fail(context.Context, string) (int64, error)  { return 0, nil }
func (nopGuard) Reset(context.Context, string) error          { return nil }
