package register

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL user repository
func NewPostgresRepository(db *pgxpool.Pool) (*PostgresRepository, error) {
	if db == nil {
		return nil, errors.New(errors.ErrCodeStore, "database connection cannot be nil")
	}

	return &PostgresRepository{
		db: db,
	}, nil
}

// Insert persists a new user, rejecting duplicate usernames.
func (r *PostgresRepository) Insert(ctx context.Context, user *User) error {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, createdAt)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStore, "failed to insert user %s", user.Username)
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeAlreadyExists, "username %s is already registered", user.Username)
	}

	return nil
}

// GetByUsername returns the user with the given username.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = $1
	`

	var user User
	err := r.db.QueryRow(ctx, query, username).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.Newf(errors.ErrCodeNotFound, "user %s not found", username)
		}
		return nil, errors.Wrapf(err, errors.ErrCodeStore, "failed to get user %s", username)
	}

	return &user, nil
}
