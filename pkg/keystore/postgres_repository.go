package keystore

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

// NewPostgresRepository creates a new PostgreSQL key store repository
func NewPostgresRepository(db *pgxpool.Pool) (*PostgresRepository, error) {
	if db == nil {
		return nil, errors.New(errors.ErrCodeStore, "database connection cannot be nil")
	}

	return &PostgresRepository{
		db: db,
	}, nil
}

// Insert persists a new record
func (r *PostgresRepository) Insert(ctx context.Context, record *Record) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO keys (kid, private_key, expiry, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(ctx, query, record.Kid, record.PrivateKeyDER, record.Expiry, createdAt)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStore, "failed to insert key record %s", record.Kid)
	}

	return nil
}

// List returns all persisted records in insertion order
func (r *PostgresRepository) List(ctx context.Context) ([]Record, error) {
	query := `
		SELECT kid, private_key, expiry, created_at
		FROM keys
		ORDER BY created_at ASC, kid ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "failed to list key records")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.Kid, &record.PrivateKeyDER, &record.Expiry, &record.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStore, "failed to scan key record row")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "error iterating over key record rows")
	}

	return records, nil
}

// Get retrieves a record by its key identifier
func (r *PostgresRepository) Get(ctx context.Context, kid string) (*Record, error) {
	query := `
		SELECT kid, private_key, expiry, created_at
		FROM keys
		WHERE kid = $1
	`

	var record Record
	err := r.db.QueryRow(ctx, query, kid).Scan(&record.Kid, &record.PrivateKeyDER, &record.Expiry, &record.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.Newf(errors.ErrCodeNotFound, "key record not found: %s", kid)
		}
		return nil, errors.Wrapf(err, errors.ErrCodeStore, "failed to get key record %s", kid)
	}

	return &record, nil
}

// Count returns the total number of records
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM keys").Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeStore, "failed to count key records")
	}
	return count, nil
}
