// Package authlog records token issuance requests for auditing. Logging
// is best effort; a failure to record an entry never fails the request
// that triggered it.
package authlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
)

// Entry is a single recorded authentication request.
type Entry struct {
	RequestIP string    `json:"request_ip"`
	Subject   string    `json:"subject,omitempty"`
	Kid       string    `json:"kid"`
	Expired   bool      `json:"expired"`
	Timestamp time.Time `json:"timestamp"`
}

// Repository defines persistence for auth log entries.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context) ([]Entry, error)
}

// InMemoryRepository keeps entries in a slice guarded by a mutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemoryRepository creates an empty in-memory auth log.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Record appends an entry.
func (r *InMemoryRepository) Record(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// List returns all recorded entries in order.
func (r *InMemoryRepository) List(_ context.Context) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL auth log repository
func NewPostgresRepository(db *pgxpool.Pool) (*PostgresRepository, error) {
	if db == nil {
		return nil, errors.New(errors.ErrCodeStore, "database connection cannot be nil")
	}
	return &PostgresRepository{db: db}, nil
}

// Record inserts an entry.
func (r *PostgresRepository) Record(ctx context.Context, entry *Entry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := `
		INSERT INTO auth_logs (request_ip, subject, kid, expired, request_timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, entry.RequestIP, entry.Subject, entry.Kid, entry.Expired, ts)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "failed to insert auth log entry")
	}
	return nil
}

// List returns all recorded entries in request order.
func (r *PostgresRepository) List(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT request_ip, subject, kid, expired, request_timestamp
		FROM auth_logs
		ORDER BY request_timestamp ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "failed to list auth log entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.RequestIP, &entry.Subject, &entry.Kid, &entry.Expired, &entry.Timestamp); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStore, "failed to scan auth log row")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "error iterating over auth log rows")
	}

	return entries, nil
}

// RecordBestEffort records an entry and only logs on failure. Auth log
// persistence problems must not surface to token issuance callers.
func RecordBestEffort(ctx context.Context, repository Repository, entry *Entry) {
	if repository == nil {
		return
	}
	if err := repository.Record(ctx, entry); err != nil {
		slog.Error("Failed to record auth log entry", "err", err)
	}
}
