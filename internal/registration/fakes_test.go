package registration

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/atinyakov/GophAuth/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]models.Account
	calls    []string

	existsErr error
	insertErr error
	deleteErr error
	// afterInsert runs once the account has been stored.
	afterInsert func() error
}

func newFakeStore(seed ...models.Account) *fakeStore {
	s := &fakeStore{accounts: map[uuid.UUID]models.Account{}}
	for _, a := range seed {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *fakeStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "exists")
	if s.existsErr != nil {
		return false, s.existsErr
	}
	for _, a := range s.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Insert(_ context.Context, account models.Account) error {
	s.mu.Lock()
	s.calls = append(s.calls, "insert")
	if s.insertErr != nil {
		s.mu.Unlock()
		return s.insertErr
	}
	s.accounts[account.ID] = account
	hook := s.afterInsert
	s.mu.Unlock()

	if hook != nil {
		return hook()
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "delete")
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.accounts[id]; !ok {
		return models.ErrAccountNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *fakeStore) find(id uuid.UUID) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	return a, ok
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *fakeStore) called() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type fakeProfiles struct {
	mu            sync.Mutex
	phoneCalls    int
	createCalls   int
	lastRequest   models.ProfileRequest
	phoneExists   func(ctx context.Context, phone string) (bool, error)
	createProfile func(ctx context.Context, req models.ProfileRequest) error
}

func (p *fakeProfiles) PhoneExists(ctx context.Context, phone string) (bool, error) {
	p.mu.Lock()
	p.phoneCalls++
	fn := p.phoneExists
	p.mu.Unlock()
	if fn == nil {
		return false, nil
	}
	return fn(ctx, phone)
}

func (p *fakeProfiles) CreateProfile(ctx context.Context, req models.ProfileRequest) error {
	p.mu.Lock()
	p.createCalls++
	p.lastRequest = req
	fn := p.createProfile
	p.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, req)
}

type fakeHasher struct {
	err error
}

func (h fakeHasher) Hash(plaintext string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plaintext, nil
}

var errBoom = errors.New("boom")

func validRequest() models.RegistrationRequest {
	return models.RegistrationRequest{
		Email:           "ada@example.com",
		Password:        "Password123!",
		ConfirmPassword: "Password123!",
		FullName:        "Ada  King Lovelace",
		PhoneNumber:     "+4915112345678",
		Address:         "12 St James's Square, London",
	}
}
