package jwks

import (
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypair"
)

// Project builds the key set published at /.well-known/jwks.json.
// Expired key pairs never appear in the set; relying parties only ever
// see material they may still trust. The set preserves the insertion
// order of the input and an empty projection still carries an empty
// (non-nil) Keys slice so the document serializes as {"keys":[]}.
func Project(keys []*keypair.KeyPair, now int64) *JWKS {
	set := &JWKS{Keys: make([]JWK, 0, len(keys))}
	for _, kp := range keys {
		if kp.IsExpiredAt(now) {
			continue
		}
		set.Keys = append(set.Keys, ToJWK(kp))
	}
	return set
}
