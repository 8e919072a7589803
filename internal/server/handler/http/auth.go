// Package http provides HTTP handlers for registration, login, password
// reset and profile lookup.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/GophAuth/internal/middleware"
	"github.com/atinyakov/GophAuth/internal/models"
	"github.com/atinyakov/GophAuth/internal/registration"
	"github.com/atinyakov/GophAuth/internal/service"
)

const maxRequestBody = 1 << 20

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates the local account and its remote profile.
	Register(ctx context.Context, req models.RegistrationRequest) registration.Outcome
	// Login checks credentials and issues an access token.
	Login(ctx context.Context, email, password string) (models.Session, error)
	// ForgotPassword issues a reset token when the email is known.
	ForgotPassword(ctx context.Context, email string) error
	// ResetPassword sets a new password using a reset token.
	ResetPassword(ctx context.Context, token, password, confirm string) error
	// Profile returns the local account by id.
	Profile(ctx context.Context, id uuid.UUID) (models.Account, error)
}

// AuthHandler handles HTTP requests for the /api/auth endpoints.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Logger receives handler level failures.
	Logger *zap.Logger
	// LockoutWindow is advertised in Retry-After when a login is locked out.
	LockoutWindow time.Duration
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the JSON payload for a reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the JSON payload for a password reset.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"fullName"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// TokenInfoResponse describes a validated access token.
type TokenInfoResponse struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Register handles registration requests and maps the outcome onto
// 201, 400, 409, 503 or 500.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	out := h.AuthService.Register(r.Context(), req)
	status := RegistrationStatus(out.Kind)
	switch out.Kind {
	case registration.Created:
		writeJSON(w, status, AccountResponse{
			ID:       out.Account.ID.String(),
			Email:    out.Account.Email,
			FullName: out.Account.FullName,
		})
	case registration.ValidationFailed, registration.PhoneConflict:
		writeError(w, status, out.Message)
	case registration.EmailConflict:
		writeError(w, status, "email already registered")
	case registration.UpstreamUnavailable:
		writeError(w, status, "profile service unavailable, try again later")
	default:
		writeError(w, status, "internal error")
	}
}

// RegistrationStatus is the HTTP status for a registration outcome.
func RegistrationStatus(kind registration.Kind) int {
	switch kind {
	case registration.Created:
		return http.StatusCreated
	case registration.ValidationFailed:
		return http.StatusBadRequest
	case registration.EmailConflict, registration.PhoneConflict:
		return http.StatusConflict
	case registration.UpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Login handles credential login and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(w, r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	session, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, session)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountLocked):
		if secs := int(math.Ceil(h.LockoutWindow.Seconds())); secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		h.internal(w, "login failed", err)
	}
}

// ForgotPassword always answers 202 for a well-formed request so that
// registered emails cannot be discovered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decode(w, r, &req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		h.internal(w, "forgot password failed", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ResetPassword sets a new password from a reset token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.AuthService.ResetPassword(r.Context(), req.Token, req.Password, req.ConfirmPassword)
	var verr *registration.ValidationError
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, service.ErrInvalidResetToken):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.internal(w, "reset password failed", err)
	}
}

// Me returns the account of the authenticated caller.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token subject")
		return
	}

	account, err := h.AuthService.Profile(r.Context(), id)
	if errors.Is(err, models.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		h.internal(w, "profile lookup failed", err)
		return
	}

	createdAt := account.CreatedAt
	writeJSON(w, http.StatusOK, AccountResponse{
		ID:        account.ID.String(),
		Email:     account.Email,
		FullName:  account.FullName,
		CreatedAt: &createdAt,
	})
}

// Validate describes the caller's token. Sibling services use it to check
// bearer tokens they receive.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	resp := TokenInfoResponse{UserID: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) internal(w http.ResponseWriter, msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, zap.Error(err))
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
