package registration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/atinyakov/GophAuth/internal/models"
	"github.com/atinyakov/GophAuth/internal/profile"
)

// DefaultCompensationTimeout bounds the rollback delete when none is configured.
const DefaultCompensationTimeout = 5 * time.Second

type provisioner struct {
	accounts AccountStore
	profiles ProfileService
	log      *zap.Logger
	timeout  time.Duration
}

// provision creates the remote profile. Any failure rolls back the local
// account before the failure is classified.
func (p provisioner) provision(ctx context.Context, account models.Account, req models.RegistrationRequest) error {
	err := p.profiles.CreateProfile(ctx, profileRequest(account, req))
	if err == nil {
		return nil
	}
	p.compensate(ctx, account, err)
	return remoteFailure(err)
}

// compensate deletes the local account. It runs detached from the caller's
// cancellation and never changes the outcome.
func (p provisioner) compensate(ctx context.Context, account models.Account, cause error) {
	span := trace.SpanFromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	fields := []zap.Field{
		zap.Stringer("account_id", account.ID),
		zap.String("email", account.Email),
		zap.NamedError("cause", cause),
	}

	err := p.accounts.Delete(ctx, account.ID)
	switch {
	case err == nil:
		p.log.Warn("local account rolled back", fields...)
	case errors.Is(err, models.ErrAccountNotFound):
		p.log.Warn("local account already absent on rollback", fields...)
	default:
		p.log.Error("rollback failed, local account orphaned",
			append(fields, zap.Bool("orphaned", true), zap.NamedError("delete_error", err))...)
	}
	span.AddEvent(string(stateCompensated), trace.WithAttributes(
		attribute.Bool("rollback.ok", err == nil || errors.Is(err, models.ErrAccountNotFound)),
	))
}

func remoteFailure(err error) error {
	var se *profile.StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("create profile: %w", err)
	}
	if se.StatusCode == http.StatusConflict {
		msg := se.Message
		if msg == "" {
			msg = phoneTakenMessage
		}
		return &PhoneConflictError{Message: msg}
	}
	return &UpstreamError{Op: "create profile", StatusCode: se.StatusCode, Err: err}
}

func profileRequest(account models.Account, req models.RegistrationRequest) models.ProfileRequest {
	first, last := splitName(req.FullName)
	return models.ProfileRequest{
		UserID:      account.ID.String(),
		FirstName:   first,
		LastName:    last,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	}
}

// splitName takes the first whitespace-separated token as the first name and
// joins the rest with single spaces.
func splitName(fullName string) (first, last string) {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
