package register

import (
	"context"
	"sync"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
)

// Repository defines persistence for registered users. Usernames are
// unique; inserting a duplicate fails with ErrCodeAlreadyExists.
type Repository interface {
	Insert(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// InMemoryRepository keeps users in a map guarded by a mutex. Suitable
// for tests and single-process deployments without a database.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewInMemoryRepository creates an empty in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users: make(map[string]User),
	}
}

// Insert stores a new user, rejecting duplicate usernames.
func (r *InMemoryRepository) Insert(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return errors.Newf(errors.ErrCodeAlreadyExists, "username %s is already registered", user.Username)
	}

	r.users[user.Username] = *user
	return nil
}

// GetByUsername returns the user with the given username.
func (r *InMemoryRepository) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "user %s not found", username)
	}
	return &user, nil
}
