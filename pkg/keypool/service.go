package keypool

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypair"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keystore"
)

// Bounds for the randomized expiry offsets drawn at seed time. The minimum
// magnitude keeps a freshly seeded valid key from lapsing while the rest of
// the batch is still generating.
const (
	minSeedOffsetSeconds = 60
	maxSeedOffsetSeconds = 3600
)

// Service binds a key store repository to an in-memory pool. The repository
// is the source of truth for key material across restarts; the pool is either
// a boot-time snapshot or refreshed from the store on every read, depending
// on the configured mode.
type Service struct {
	repository   keystore.Repository
	pool         *Pool
	keyStrength  int
	reloadOnRead bool
}

// NewService creates a key pool service. keyStrength is the RSA bit size used
// when a caller does not supply one. With reloadOnRead enabled, every read
// reconstructs the pool from the store's current record set; disabled, the
// boot-time snapshot is served until the next explicit create.
func NewService(repository keystore.Repository, keyStrength int, reloadOnRead bool) *Service {
	return &Service{
		repository:   repository,
		pool:         NewPool(nil),
		keyStrength:  keyStrength,
		reloadOnRead: reloadOnRead,
	}
}

// Pool returns the underlying pool
func (s *Service) Pool() *Pool {
	return s.pool
}

// Seed populates the store and pool with n freshly generated key pairs whose
// expiry offsets are randomized with alternating sign, so the pool always
// holds both valid and already-expired keys. Key generation is CPU-bound and
// happens here, at startup, off the per-request path.
func (s *Service) Seed(ctx context.Context, n int) error {
	if n <= 0 {
		return errors.Newf(errors.ErrCodeInvalidInput, "pool size must be positive, got %d", n)
	}

	keys := make([]*keypair.KeyPair, 0, n)
	for i := 0; i < n; i++ {
		offset := rand.Int63n(maxSeedOffsetSeconds-minSeedOffsetSeconds+1) + minSeedOffsetSeconds
		if i%2 == 1 {
			offset = -offset
		}

		kp, err := s.createKey(ctx, s.keyStrength, offset)
		if err != nil {
			return err
		}
		keys = append(keys, kp)
	}

	s.pool.Replace(keys)
	slog.Info("Seeded key pool", "size", n, "key_strength", s.keyStrength)
	return nil
}

// CreateKey generates a new key pair, persists it, and appends it to the
// pool. A non-positive bits value falls back to the configured key strength.
// This is the only pool writer after boot.
func (s *Service) CreateKey(ctx context.Context, bits int, offsetSeconds int64) (*keypair.KeyPair, error) {
	if bits <= 0 {
		bits = s.keyStrength
	}

	kp, err := s.createKey(ctx, bits, offsetSeconds)
	if err != nil {
		return nil, err
	}

	s.pool.Append(kp)
	slog.Info("Created key pair", "kid", kp.Kid, "expiry", kp.Expiry)
	return kp, nil
}

// Reload reconstructs every record from the store and installs the result as
// the new pool snapshot
func (s *Service) Reload(ctx context.Context) ([]*keypair.KeyPair, error) {
	records, err := s.repository.List(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]*keypair.KeyPair, 0, len(records))
	for _, record := range records {
		kp, err := keypair.Reconstruct(record.Kid, record.PrivateKeyDER, record.Expiry)
		if err != nil {
			return nil, err
		}
		keys = append(keys, kp)
	}

	s.pool.Replace(keys)
	return keys, nil
}

// View returns the current pool membership per the configured freshness mode
func (s *Service) View(ctx context.Context) ([]*keypair.KeyPair, error) {
	if s.reloadOnRead {
		return s.Reload(ctx)
	}
	return s.pool.Keys(), nil
}

// SelectForIssue returns the first current pool member whose expiry state
// matches wantExpired
func (s *Service) SelectForIssue(ctx context.Context, wantExpired bool) (*keypair.KeyPair, error) {
	now, err := keypair.NowUnix()
	if err != nil {
		return nil, err
	}

	keys, err := s.View(ctx)
	if err != nil {
		return nil, err
	}

	return SelectForIssue(keys, wantExpired, now)
}

// createKey generates and persists a single key pair without touching the pool
func (s *Service) createKey(ctx context.Context, bits int, offsetSeconds int64) (*keypair.KeyPair, error) {
	kp, err := keypair.Generate(uuid.New().String(), bits, offsetSeconds)
	if err != nil {
		return nil, err
	}

	record := &keystore.Record{
		Kid:           kp.Kid,
		PrivateKeyDER: keypair.EncodePrivateKeyDER(kp.PrivateKey),
		Expiry:        kp.Expiry,
	}

	if err := s.repository.Insert(ctx, record); err != nil {
		return nil, err
	}

	return kp, nil
}
