package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/GophAuth/internal/profile"
)

type uniquenessChecker struct {
	accounts AccountStore
	profiles ProfileService
}

func (c uniquenessChecker) checkEmail(ctx context.Context, email string) error {
	exists, err := c.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check email uniqueness: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}
	return nil
}

// checkPhone treats every failure of the remote lookup as unavailability,
// so registration stops before any local write.
func (c uniquenessChecker) checkPhone(ctx context.Context, phone string) error {
	exists, err := c.profiles.PhoneExists(ctx, phone)
	if err != nil {
		return &UpstreamError{Op: "phone check", StatusCode: statusOf(err), Err: err}
	}
	if exists {
		return &PhoneConflictError{Message: phoneTakenMessage}
	}
	return nil
}

func statusOf(err error) int {
	var se *profile.StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
