// Package profile is the HTTP client for the remote profile service.
//
// Only the wire contract matters here:
//
//	GET  /api/users/phone-exists/{phoneNumber} → 200 {"exists": bool}
//	POST /api/users                            → 201 on success, 409 {"error": string} on duplicate
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atinyakov/GophAuth/internal/models"
)

const maxBodySize = 1 << 20

// DefaultTimeout bounds a call when the client is built without one.
const DefaultTimeout = 5 * time.Second

// StatusError is returned when the profile service answers with an
// unexpected HTTP status.
type StatusError struct {
	// StatusCode is the HTTP status returned by the service.
	StatusCode int
	// Message is the "error" field of the JSON body, empty when absent or unparseable.
	Message string
	// Body is the raw (size-limited) response body.
	Body []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("profile service: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("profile service: status %d", e.StatusCode)
}

// Client talks to the profile service over JSON/HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient builds a Client for baseURL. A nil httpClient gets a default one;
// a non-positive timeout falls back to DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// PhoneExists asks whether phone is already attached to a profile. Anything
// other than a 200 with a decodable body is an error.
func (c *Client) PhoneExists(ctx context.Context, phone string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/api/users/phone-exists/" + url.PathEscape(phone)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build phone check request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("phone check request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return false, fmt.Errorf("read phone check response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, newStatusError(resp.StatusCode, body)
	}

	var payload struct {
		Exists *bool `json:"exists"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, fmt.Errorf("decode phone check response: %w", err)
	}
	if payload.Exists == nil {
		return false, fmt.Errorf("decode phone check response: missing exists field")
	}
	return *payload.Exists, nil
}

// CreateProfile provisions the profile for a freshly created account.
func (c *Client) CreateProfile(ctx context.Context, in models.ProfileRequest) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode profile request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/users", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read profile response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp.StatusCode, body)
	}
	return nil
}

func newStatusError(status int, body []byte) *StatusError {
	e := &StatusError{StatusCode: status, Body: body}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Message = strings.TrimSpace(payload.Error)
	}
	return e
}
