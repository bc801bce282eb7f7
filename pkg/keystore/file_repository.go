package keystore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
)

const keyStoreFileName = "keystore.json"

// FileRepository implements Repository using file-based storage. Records are
// kept in a single JSON file under the data directory and rewritten on each
// insert. Suitable for single-node deployments.
type FileRepository struct {
	dataDir string
	records []Record
	mutex   sync.RWMutex
}

// NewFileRepository creates a new file-based key store repository, creating
// the data directory if needed and loading any existing records.
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStore, "failed to create data directory")
	}

	repo := &FileRepository{
		dataDir: dataDir,
		records: []Record{},
	}

	if err := repo.load(); err != nil {
		return nil, err
	}

	return repo, nil
}

// Insert persists a new record
func (r *FileRepository) Insert(ctx context.Context, record *Record) error {
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
	return r.save()
}

// List returns all persisted records in insertion order
func (r *FileRepository) List(ctx context.Context) ([]Record, error) {
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
func (r *FileRepository) Get(ctx context.Context, kid string) (*Record, error) {
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
func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return int64(len(r.records)), nil
}

// load reads the key store file into memory; a missing file is an empty store
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, keyStoreFileName)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeStore, "failed to read key store file")
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "failed to parse key store file")
	}

	r.records = records
	return nil
}

// save writes all records to the key store file; the file holds private key
// material and is written with owner-only permissions
func (r *FileRepository) save() error {
	data, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "failed to marshal key store")
	}

	filePath := filepath.Join(r.dataDir, keyStoreFileName)
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrCodeStore, "failed to write key store file")
	}

	return nil
}
