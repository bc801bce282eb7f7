package jwks

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keysWithOffsets generates key pairs whose expiries sit at now+offset
// for each given offset, in order.
func keysWithOffsets(t *testing.T, now int64, offsets []int64) []*keypair.KeyPair {
	t.Helper()
	keys := make([]*keypair.KeyPair, 0, len(offsets))
	for i, off := range offsets {
		kp, err := keypair.Generate(fmt.Sprintf("key-%d", i), 1024, 0)
		require.NoError(t, err)
		kp.Expiry = now + off
		keys = append(keys, kp)
	}
	return keys
}

func TestProject(t *testing.T) {
	const now int64 = 1_700_000_000

	t.Run("OmitsExpiredKeys", func(t *testing.T) {
		keys := keysWithOffsets(t, now, []int64{-3, -2, -1, 1, 2, 3, 4, 5})

		set := Project(keys, now)

		require.Len(t, set.Keys, 5)
		for i, jwk := range set.Keys {
			assert.Equal(t, fmt.Sprintf("key-%d", i+3), jwk.Kid)
		}
	})

	t.Run("BoundaryInstantCountsAsExpired", func(t *testing.T) {
		keys := keysWithOffsets(t, now, []int64{0, 1})

		set := Project(keys, now)

		require.Len(t, set.Keys, 1)
		assert.Equal(t, "key-1", set.Keys[0].Kid)
	})

	t.Run("PreservesInsertionOrder", func(t *testing.T) {
		keys := keysWithOffsets(t, now, []int64{100, 200, 300})

		set := Project(keys, now)

		require.Len(t, set.Keys, 3)
		for i, jwk := range set.Keys {
			assert.Equal(t, fmt.Sprintf("key-%d", i), jwk.Kid)
		}
	})

	t.Run("EmptySetSerializesWithEmptyKeysArray", func(t *testing.T) {
		set := Project(nil, now)

		data, err := json.Marshal(set)
		require.NoError(t, err)
		assert.JSONEq(t, `{"keys":[]}`, string(data))
	})

	t.Run("AllExpiredYieldsEmptySet", func(t *testing.T) {
		keys := keysWithOffsets(t, now, []int64{-300, -200, -100})

		set := Project(keys, now)

		assert.NotNil(t, set.Keys)
		assert.Empty(t, set.Keys)
	})
}

func TestToJWK(t *testing.T) {
	kp, err := keypair.Generate("jwk-test", 1024, 3600)
	require.NoError(t, err)

	jwk := ToJWK(kp)

	assert.Equal(t, "RSA", jwk.Kty)
	assert.Equal(t, "sig", jwk.Use)
	assert.Equal(t, "RS256", jwk.Alg)
	assert.Equal(t, "jwk-test", jwk.Kid)
	assert.Equal(t, keypair.EncodeModulus(kp.PublicKey), jwk.N)
	assert.Equal(t, keypair.EncodeExponent(kp.PublicKey), jwk.E)

	// base64url without padding
	assert.NotContains(t, jwk.N, "=")
	assert.NotContains(t, jwk.E, "=")
	assert.NotContains(t, jwk.N, "+")
	assert.NotContains(t, jwk.N, "/")
}
