package register

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
)

// Service registers new users. Passwords are never chosen by callers;
// a UUIDv4 is generated server side, returned to the caller once, and
// only its bcrypt hash is persisted.
type Service struct {
	repository Repository
	hasher     PasswordHasher
}

// NewService creates a registration service over the given repository.
func NewService(repository Repository, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = &BcryptHasher{}
	}
	return &Service{
		repository: repository,
		hasher:     hasher,
	}
}

// Register creates a user with a generated password and returns the
// user along with the plaintext password. This is the only time the
// plaintext exists.
func (s *Service) Register(ctx context.Context, username, email string) (*User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, "", errors.New(errors.ErrCodeInvalidInput, "username is required")
	}

	password := uuid.New().String()

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.ErrCodeInternal, "failed to hash generated password")
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repository.Insert(ctx, user); err != nil {
		return nil, "", err
	}

	slog.Info("Registered user", "username", username)
	return user, password, nil
}

// Authenticate verifies a username/password pair against the stored hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repository.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to verify password")
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid username or password")
	}

	return user, nil
}
