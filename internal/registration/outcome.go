package registration

import (
	"errors"
	"fmt"

	"github.com/atinyakov/GophAuth/internal/models"
)

// Kind tags the variant of an Outcome.
type Kind int

const (
	// Created means the local account and the remote profile both exist.
	Created Kind = iota
	// ValidationFailed means the request broke a structural rule; nothing was touched.
	ValidationFailed
	// EmailConflict means the email is already registered locally.
	EmailConflict
	// PhoneConflict means the phone number belongs to an existing profile.
	PhoneConflict
	// UpstreamUnavailable means the profile service could not serve the request.
	UpstreamUnavailable
	// InternalError covers every other failure.
	InternalError
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case ValidationFailed:
		return "validation_failed"
	case EmailConflict:
		return "email_conflict"
	case PhoneConflict:
		return "phone_conflict"
	case UpstreamUnavailable:
		return "upstream_unavailable"
	case InternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one Register call.
type Outcome struct {
	Kind Kind
	// Account is set only when Kind is Created.
	Account models.Account
	// Message is the client-facing reason for ValidationFailed and PhoneConflict.
	Message string
	// UpstreamStatus is the profile service status code when it answered
	// with an unexpected status.
	UpstreamStatus int
	// Err is the underlying cause, for logging only.
	Err error
}

const (
	emailTakenMessage = "email already registered"
	phoneTakenMessage = "phone number already registered"
)

// ErrEmailTaken reports that the email is already used by a local account.
var ErrEmailTaken = errors.New(emailTakenMessage)

// PhoneConflictError reports that the phone number is already attached to a profile.
type PhoneConflictError struct {
	Message string
}

func (e *PhoneConflictError) Error() string {
	return e.Message
}

// UpstreamError reports a profile service failure that the caller may retry
// by resubmitting the whole request.
type UpstreamError struct {
	Op string
	// StatusCode is zero when no HTTP response was received.
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: upstream unavailable: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// classify maps the pipeline result onto exactly one Outcome kind.
func classify(account models.Account, err error) Outcome {
	if err == nil {
		return Outcome{Kind: Created, Account: account}
	}

	var (
		validation *ValidationError
		phone      *PhoneConflictError
		upstream   *UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		return Outcome{Kind: ValidationFailed, Message: validation.Message, Err: err}
	case errors.Is(err, ErrEmailTaken):
		return Outcome{Kind: EmailConflict, Message: emailTakenMessage, Err: err}
	case errors.As(err, &phone):
		return Outcome{Kind: PhoneConflict, Message: phone.Message, Err: err}
	case errors.As(err, &upstream):
		return Outcome{Kind: UpstreamUnavailable, UpstreamStatus: upstream.StatusCode, Err: err}
	default:
		return Outcome{Kind: InternalError, Err: err}
	}
}
