package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/GophAuth/internal/models"
)

type registrar struct {
	accounts AccountStore
	hasher   Hasher
	now      func() time.Time
	newID    func() (uuid.UUID, error)
}

// create hashes the password and persists a new account. When the insert
// itself fails the returned account still carries the generated id.
func (r registrar) create(ctx context.Context, req models.RegistrationRequest) (models.Account, error) {
	hash, err := r.hasher.Hash(req.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := r.newID()
	if err != nil {
		return models.Account{}, fmt.Errorf("generate account id: %w", err)
	}

	account := models.Account{
		ID:           id,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		// The store keeps millisecond precision.
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
	}

	if err := r.accounts.Insert(ctx, account); err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			return account, ErrEmailTaken
		}
		return account, fmt.Errorf("persist account: %w", err)
	}
	return account, nil
}
