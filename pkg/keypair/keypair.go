package keypair

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"math"
	"time"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
)

// KeyPair represents an RSA key pair with a unique identifier and an absolute
// expiry timestamp. A KeyPair is immutable after construction.
//
// The private key is optional: a pair reconstructed from public material can
// serve verification-shaped operations (JWKS projection) but never issuance.
type KeyPair struct {
	// Kid is the unique key identifier, unique within a pool
	Kid string

	// PublicKey is always the public half of PrivateKey when both exist
	PublicKey *rsa.PublicKey

	// PrivateKey is owned exclusively by this pair and is never serialized
	PrivateKey *rsa.PrivateKey

	// Expiry is an absolute point in time, Unix seconds. Signed so that
	// deliberately pre-expired keys encode naturally.
	Expiry int64
}

// Generate creates a new RSA key pair of the given bit strength. The expiry is
// computed as now + offsetSeconds; a negative offset manufactures a key that
// is already expired at creation. The arithmetic saturates at the int64
// bounds rather than wrapping.
func Generate(kid string, bits int, offsetSeconds int64) (*KeyPair, error) {
	if bits <= 0 {
		return nil, errors.Newf(errors.ErrCodeKeyPair, "invalid key strength: %d", bits)
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeKeyPair, "failed to generate %d-bit RSA key pair", bits)
	}

	now, err := NowUnix()
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Kid:        kid,
		PublicKey:  &privateKey.PublicKey,
		PrivateKey: privateKey,
		Expiry:     ExpiryAt(now, offsetSeconds),
	}, nil
}

// Reconstruct decodes a PKCS#1 DER private key and rebuilds a KeyPair with the
// stored absolute expiry. The expiry is persisted as an absolute timestamp, so
// reloading a key never shifts its effective lifetime.
func Reconstruct(kid string, privateKeyDER []byte, expiry int64) (*KeyPair, error) {
	privateKey, err := DecodePrivateKeyDER(privateKeyDER)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Kid:        kid,
		PublicKey:  &privateKey.PublicKey,
		PrivateKey: privateKey,
		Expiry:     expiry,
	}, nil
}

// IsExpiredAt reports whether the key pair is expired at the given instant.
// The canonical contract is expiry <= now: the boundary instant itself counts
// as expired.
func (kp *KeyPair) IsExpiredAt(now int64) bool {
	return kp.Expiry <= now
}

// IsExpired checks the key pair against the current wall clock
func (kp *KeyPair) IsExpired() bool {
	return kp.IsExpiredAt(time.Now().Unix())
}

// CanSign reports whether this pair holds private material and may be used
// for issuance
func (kp *KeyPair) CanSign() bool {
	return kp.PrivateKey != nil
}

// ExpiresAt returns the expiry as a time.Time
func (kp *KeyPair) ExpiresAt() time.Time {
	return time.Unix(kp.Expiry, 0).UTC()
}

// ExpiryAt computes now + offsetSeconds with saturation at the int64 bounds
func ExpiryAt(now, offsetSeconds int64) int64 {
	if offsetSeconds >= 0 {
		if now > math.MaxInt64-offsetSeconds {
			return math.MaxInt64
		}
		return now + offsetSeconds
	}
	if now < math.MinInt64-offsetSeconds {
		return math.MinInt64
	}
	return now + offsetSeconds
}

// NowUnix returns the current wall clock as Unix seconds. A pre-epoch reading
// indicates an unusable clock and is reported as a system time error.
func NowUnix() (int64, error) {
	now := time.Now().Unix()
	if now < 0 {
		return 0, errors.Newf(errors.ErrCodeSystemTime, "system clock reads before the Unix epoch: %d", now)
	}
	return now, nil
}

// MarshalJSON serializes the public fields of the key pair. The private key is
// never included in any serialized representation.
func (kp *KeyPair) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kid          string `json:"kid"`
		PublicKeyPEM string `json:"public_key_pem"`
		Expiry       int64  `json:"expiry"`
	}{
		Kid:          kp.Kid,
		PublicKeyPEM: EncodePublicKeyToPEM(kp.PublicKey),
		Expiry:       kp.Expiry,
	})
}

// UnmarshalJSON rebuilds a verification-only key pair from its public
// serialization
func (kp *KeyPair) UnmarshalJSON(data []byte) error {
	aux := &struct {
		Kid          string `json:"kid"`
		PublicKeyPEM string `json:"public_key_pem"`
		Expiry       int64  `json:"expiry"`
	}{}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	publicKey, err := DecodePublicKeyFromPEM(aux.PublicKeyPEM)
	if err != nil {
		return err
	}

	kp.Kid = aux.Kid
	kp.PublicKey = publicKey
	kp.PrivateKey = nil
	kp.Expiry = aux.Expiry

	return nil
}
