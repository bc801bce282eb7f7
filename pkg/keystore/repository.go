package keystore

import (
	"context"
	"sync"
	"time"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
)

// Record is the durable encoding of a key pair: identifier, PKCS#1 DER
// private key bytes, and a signed absolute expiry in Unix seconds. The signed
// expiry allows already-expired records to be persisted for rotation and
// rejection-path scenarios.
type Record struct {
	Kid           string    `json:"kid"`
	PrivateKeyDER []byte    `json:"private_key_der"`
	Expiry        int64     `json:"expiry"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository defines the persistence boundary for key pair records. The store
// is append-only: records are inserted and listed, never updated or deleted.
// List returns records in insertion order.
type Repository interface {
	// Insert persists a new record
	Insert(ctx context.Context, record *Record) error

	// List returns all persisted records in insertion order
	List(ctx context.Context) ([]Record, error)

	// Get retrieves a record by its key identifier
	Get(ctx context.Context, kid string) (*Record, error)

	// Count returns the total number of records
	Count(ctx context.Context) (int64, error)
}

// InMemoryRepository implements Repository using in-memory storage. Suitable
// for ephemeral and test deployments only; records do not survive a restart.
type InMemoryRepository struct {
	records []Record
	mutex   sync.RWMutex
}

// NewInMemoryRepository creates a new in-memory key store repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: []Record{},
	}
}

// Insert persists a new record
func (r *InMemoryRepository) Insert(ctx context.Context, record *Record) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.records {
		if existing.Kid == record.Kid {
			return errors.Newf(errors.ErrCodeAlreadyExists, "key record already exists: %s", record.Kid)
		}
	}

	stored := *record
	stored.PrivateKeyDER = append([]byte(nil), record.PrivateKeyDER...)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.records = append(r.records, stored)
	return nil
}

// List returns all persisted records in insertion order
func (r *InMemoryRepository) List(ctx context.Context) ([]Record, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	records := make([]Record, len(r.records))
	for i, record := range r.records {
		records[i] = record
		records[i].PrivateKeyDER = append([]byte(nil), record.PrivateKeyDER...)
	}

	return records, nil
}

// Get retrieves a record by its key identifier
func (r *InMemoryRepository) Get(ctx context.Context, kid string) (*Record, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, record := range r.records {
		if record.Kid == kid {
			found := record
			found.PrivateKeyDER = append([]byte(nil), record.PrivateKeyDER...)
			return &found, nil
		}
	}

	return nil, errors.Newf(errors.ErrCodeNotFound, "key record not found: %s", kid)
}

// Count returns the total number of records
func (r *InMemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return int64(len(r.records)), nil
}
