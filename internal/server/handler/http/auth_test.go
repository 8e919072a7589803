package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/GophAuth/internal/models"
	"github.com/atinyakov/GophAuth/internal/registration"
	"github.com/atinyakov/GophAuth/internal/service"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	outcome    registration.Outcome
	gotRequest models.RegistrationRequest

	session  models.Session
	loginErr error

	forgotErr  error
	forgotFor  string
	resetErr   error
	account    models.Account
	profileErr error
}

func (f *fakeAuthService) Register(_ context.Context, req models.RegistrationRequest) registration.Outcome {
	f.gotRequest = req
	return f.outcome
}

func (f *fakeAuthService) Login(context.Context, string, string) (models.Session, error) {
	return f.session, f.loginErr
}

func (f *fakeAuthService) ForgotPassword(_ context.Context, email string) error {
	f.forgotFor = email
	return f.forgotErr
}

func (f *fakeAuthService) ResetPassword(context.Context, string, string, string) error {
	return f.resetErr
}

func (f *fakeAuthService) Profile(_ context.Context, id uuid.UUID) (models.Account, error) {
	if f.profileErr != nil {
		return models.Account{}, f.profileErr
	}
	if id != f.account.ID {
		return models.Account{}, models.ErrAccountNotFound
	}
	return f.account, nil
}

var testAccount = models.Account{
	ID:        uuid.MustParse("7b0f3a52-3f0c-4d55-9a57-6b7a1f1e9d10"),
	Email:     "ada@example.com",
	FullName:  "Ada Lovelace",
	CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
}

const registerBody = `{"email":"ada@example.com","password":"Password123!","confirmPassword":"Password123!","fullName":"Ada Lovelace","phoneNumber":"+4915112345678","address":"London"}`

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		outcome        registration.Outcome
		expectedCode   int
		expectedSubstr string
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "created",
			body:           registerBody,
			outcome:        registration.Outcome{Kind: registration.Created, Account: testAccount},
			expectedCode:   http.StatusCreated,
			expectedSubstr: `"id":"7b0f3a52-3f0c-4d55-9a57-6b7a1f1e9d10"`,
		},
		{
			name:           "validation failed",
			body:           registerBody,
			outcome:        registration.Outcome{Kind: registration.ValidationFailed, Message: "passwords do not match"},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "passwords do not match",
		},
		{
			name:           "email conflict",
			body:           registerBody,
			outcome:        registration.Outcome{Kind: registration.EmailConflict},
			expectedCode:   http.StatusConflict,
			expectedSubstr: "email already registered",
		},
		{
			name:           "phone conflict",
			body:           registerBody,
			outcome:        registration.Outcome{Kind: registration.PhoneConflict, Message: "duplicate phone"},
			expectedCode:   http.StatusConflict,
			expectedSubstr: "duplicate phone",
		},
		{
			name:           "upstream unavailable",
			body:           registerBody,
			outcome:        registration.Outcome{Kind: registration.UpstreamUnavailable, UpstreamStatus: 502},
			expectedCode:   http.StatusServiceUnavailable,
			expectedSubstr: "profile service unavailable",
		},
		{
			name:           "internal error",
			body:           registerBody,
			outcome:        registration.Outcome{Kind: registration.InternalError, Err: errors.New("db down")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{outcome: tt.outcome}
			h := &AuthHandler{AuthService: svc}
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			h.Register(rec, req)

			if rec.Code != tt.expectedCode {
				t.Errorf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
			if strings.Contains(rec.Body.String(), "db down") {
				t.Error("internal causes must not leak to the client")
			}
		})
	}
}

func TestAuthHandler_Register_DecodesRequest(t *testing.T) {
	svc := &fakeAuthService{outcome: registration.Outcome{Kind: registration.Created, Account: testAccount}}
	h := &AuthHandler{AuthService: svc}
	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(registerBody)))

	want := models.RegistrationRequest{
		Email:           "ada@example.com",
		Password:        "Password123!",
		ConfirmPassword: "Password123!",
		FullName:        "Ada Lovelace",
		PhoneNumber:     "+4915112345678",
		Address:         "London",
	}
	if svc.gotRequest != want {
		t.Errorf("decoded request = %+v; want %+v", svc.gotRequest, want)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["email"] != "ada@example.com" || resp["fullName"] != "Ada Lovelace" {
		t.Errorf("unexpected response %v", resp)
	}
	if _, ok := resp["createdAt"]; ok {
		t.Error("register response must not include createdAt")
	}
}

func TestRegistrationStatus(t *testing.T) {
	want := map[registration.Kind]int{
		registration.Created:             http.StatusCreated,
		registration.ValidationFailed:    http.StatusBadRequest,
		registration.EmailConflict:       http.StatusConflict,
		registration.PhoneConflict:       http.StatusConflict,
		registration.UpstreamUnavailable: http.StatusServiceUnavailable,
		registration.InternalError:       http.StatusInternalServerError,
	}
	for kind, code := range want {
		if got := RegistrationStatus(kind); got != code {
			t.Errorf("RegistrationStatus(%v) = %d; want %d", kind, got, code)
		}
	}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		service        *fakeAuthService
		expectedCode   int
		expectedSubstr string
	}{
		{
			name:           "missing password",
			body:           `{"email":"ada@example.com"}`,
			service:        &fakeAuthService{},
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "invalid request",
		},
		{
			name:           "success",
			body:           `{"email":"ada@example.com","password":"Password123!"}`,
			service:        &fakeAuthService{session: models.Session{Token: "jwt", TokenType: "Bearer", ExpiresAt: time.Unix(1700000000, 0).UTC()}},
			expectedCode:   http.StatusOK,
			expectedSubstr: `"tokenType":"Bearer"`,
		},
		{
			name:           "bad credentials",
			body:           `{"email":"ada@example.com","password":"nope"}`,
			service:        &fakeAuthService{loginErr: service.ErrInvalidCredentials},
			expectedCode:   http.StatusUnauthorized,
			expectedSubstr: "invalid email or password",
		},
		{
			name:           "locked",
			body:           `{"email":"ada@example.com","password":"nope"}`,
			service:        &fakeAuthService{loginErr: service.ErrAccountLocked},
			expectedCode:   http.StatusTooManyRequests,
			expectedSubstr: "too many failed login attempts",
		},
		{
			name:           "store failure",
			body:           `{"email":"ada@example.com","password":"nope"}`,
			service:        &fakeAuthService{loginErr: errors.New("db error")},
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &AuthHandler{AuthService: tt.service}
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			h.Login(rec, req)

			if rec.Code != tt.expectedCode {
				t.Errorf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestAuthHandler_Login_RetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		window time.Duration
		want   string
	}{
		{name: "configured window", window: 5 * time.Minute, want: "300"},
		{name: "partial seconds round up", window: 1500 * time.Millisecond, want: "2"},
		{name: "no window", window: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &AuthHandler{
				AuthService:   &fakeAuthService{loginErr: service.ErrAccountLocked},
				LockoutWindow: tt.window,
			}
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
				bytes.NewBufferString(`{"email":"ada@example.com","password":"nope"}`))
			rec := httptest.NewRecorder()

			h.Login(rec, req)

			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.want {
				t.Errorf("Retry-After = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestAuthHandler_ForgotPassword(t *testing.T) {
	svc := &fakeAuthService{}
	h := &AuthHandler{AuthService: svc}

	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":"ada@example.com"}`)))
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
	if svc.forgotFor != "ada@example.com" {
		t.Errorf("ForgotPassword called for %q", svc.forgotFor)
	}

	rec = httptest.NewRecorder()
	h.ForgotPassword(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing email, got %d", rec.Code)
	}

	svc.forgotErr = errors.New("db error")
	rec = httptest.NewRecorder()
	h.ForgotPassword(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":"ada@example.com"}`)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestAuthHandler_ResetPassword(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedCode   int
		expectedSubstr string
	}{
		{name: "success", expectedCode: http.StatusNoContent},
		{name: "weak password", err: &registration.ValidationError{Message: "passwords do not match"}, expectedCode: http.StatusBadRequest, expectedSubstr: "passwords do not match"},
		{name: "bad token", err: service.ErrInvalidResetToken, expectedCode: http.StatusBadRequest, expectedSubstr: "invalid or expired reset token"},
		{name: "store failure", err: errors.New("db error"), expectedCode: http.StatusInternalServerError, expectedSubstr: "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &AuthHandler{AuthService: &fakeAuthService{resetErr: tt.err}}
			body := `{"token":"t","password":"NewPassw0rd!","confirmPassword":"NewPassw0rd!"}`
			rec := httptest.NewRecorder()

			h.ResetPassword(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body)))

			if rec.Code != tt.expectedCode {
				t.Errorf("expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}
