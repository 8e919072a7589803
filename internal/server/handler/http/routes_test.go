package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/GophAuth/internal/middleware"
	"github.com/atinyakov/GophAuth/internal/models"
	"github.com/atinyakov/GophAuth/internal/token"
)

type issuerValidator struct {
	*token.Issuer
}

func (v issuerValidator) ValidateToken(raw string) (*token.Claims, error) {
	return v.Validate(raw)
}

func newTestRouter(t *testing.T, svc *fakeAuthService, limiter *middleware.RateLimiter) (http.Handler, *token.Issuer) {
	t.Helper()
	issuer := token.NewIssuer("test-secret", "gophauth", time.Hour)
	h := &AuthHandler{AuthService: svc, Logger: zap.NewNop()}
	return NewRouter(h, issuerValidator{issuer}, limiter, zap.NewNop()), issuer
}

func bearer(t *testing.T, issuer *token.Issuer, account models.Account) string {
	t.Helper()
	signed, _, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return "Bearer " + signed
}

func TestRouter_Me(t *testing.T) {
	router, issuer := newTestRouter(t, &fakeAuthService{account: testAccount}, nil)

	tests := []struct {
		name         string
		auth         string
		expectedCode int
	}{
		{name: "no token", expectedCode: http.StatusUnauthorized},
		{name: "forged token", auth: "Bearer abc.def.ghi", expectedCode: http.StatusUnauthorized},
		{name: "valid token", auth: bearer(t, issuer, testAccount), expectedCode: http.StatusOK},
		{name: "deleted account", auth: bearer(t, issuer, models.Account{ID: uuid.New(), Email: "gone@example.com"}), expectedCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedCode, rec.Code, rec.Body.String())
			}
			if tt.expectedCode != http.StatusOK {
				return
			}
			var resp AccountResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.ID != testAccount.ID.String() || resp.CreatedAt == nil || !resp.CreatedAt.Equal(testAccount.CreatedAt) {
				t.Errorf("unexpected response %+v", resp)
			}
		})
	}
}

func TestRouter_Validate(t *testing.T) {
	router, issuer := newTestRouter(t, &fakeAuthService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/validate", nil)
	req.Header.Set("Authorization", bearer(t, issuer, testAccount))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp TokenInfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != testAccount.ID.String() || resp.Email != testAccount.Email || resp.ExpiresAt.IsZero() {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestRouter_PublicEndpointsRequireJSON(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("email=ada"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestRouter_RateLimitsPublicEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, &fakeAuthService{}, middleware.NewRateLimiter(10))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password", bytes.NewBufferString(`{"email":"ada@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.10:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusAccepted {
		t.Fatalf("first request: expected 202, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}
}
