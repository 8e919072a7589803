package registration

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/atinyakov/GophAuth/internal/models"
)

// MinPasswordLength is the shortest password the strength policy accepts.
const MinPasswordLength = 8

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)
)

// ValidationError names the first rule a request violated.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// Validate checks the structural rules of a registration request in a fixed
// order and reports only the first violation.
func Validate(req models.RegistrationRequest) error {
	if strings.TrimSpace(req.FullName) == "" {
		return invalid("full name is required")
	}
	if req.Email == "" {
		return invalid("email is required")
	}
	if !emailPattern.MatchString(req.Email) {
		return invalid("email format is invalid")
	}
	if err := ValidatePassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}
	if req.PhoneNumber == "" {
		return invalid("phone number is required")
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		return invalid("phone number must be 10 to 15 digits with an optional leading +")
	}
	return nil
}

// ValidatePassword applies the password presence, confirmation and strength rules.
func ValidatePassword(password, confirm string) error {
	if password == "" {
		return invalid("password is required")
	}
	if confirm == "" {
		return invalid("confirm password is required")
	}
	if password != confirm {
		return invalid("passwords do not match")
	}
	if !strongPassword(password) {
		return invalid("password must be at least 8 characters and contain an uppercase letter, a lowercase letter, a digit and a special character")
	}
	return nil
}

func strongPassword(p string) bool {
	if utf8.RuneCountInString(p) < MinPasswordLength {
		return false
	}
	var lower, upper, digit, other bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	return lower && upper && digit && other
}
