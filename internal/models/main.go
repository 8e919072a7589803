// Package models defines the core data structures for accounts, registration
// requests and the remote profile contract.
package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAccountNotFound is returned by stores when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned by stores when the email unique index rejects an insert.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Account is the locally persisted identity of a registered user.
type Account struct {
	// ID is generated on creation and shared with the remote profile.
	ID uuid.UUID
	// Email is the unique login, compared case-sensitively as stored.
	Email string
	// PasswordHash is the opaque value produced by the password hasher.
	PasswordHash string
	// FullName is the display name given at registration.
	FullName string
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
}

// RegistrationRequest is the payload accepted by the register endpoint.
// It lives only for the duration of one call.
type RegistrationRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FullName        string `json:"fullName"`
	PhoneNumber     string `json:"phoneNumber"`
	Address         string `json:"address,omitempty"`
}

// ProfileRequest is the body sent to the remote profile service.
type ProfileRequest struct {
	UserID      string `json:"userId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

// Session is an issued access token.
type Session struct {
	// Token is the signed bearer token.
	Token string `json:"token"`
	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`
	// ExpiresAt is the token expiry in UTC.
	ExpiresAt time.Time `json:"expiresAt"`
}
