package token

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypair"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer mints RS256-signed JWTs from pool key pairs. The token's exp
// claim is always the signing key's own expiry, so a token signed with
// an expired key arrives already expired and exercises a verifier's
// rejection path.
type Issuer struct {
	issuer   string
	audience string
}

// NewIssuer creates an issuer that stamps the given iss and aud claims
// on every token. Either may be empty, in which case the claim is omitted.
func NewIssuer(issuer, audience string) *Issuer {
	return &Issuer{
		issuer:   issuer,
		audience: audience,
	}
}

// Issue creates a signed token using the given key pair. The subject
// defaults to the key's kid when empty, and the kid is always carried
// in the token header so verifiers can find the matching JWK.
func (i *Issuer) Issue(kp *keypair.KeyPair, subject string) (string, error) {
	if kp == nil || kp.PrivateKey == nil {
		return "", errors.New(errors.ErrCodeKeyPair, "key pair has no private key to sign with")
	}

	if subject == "" {
		subject = kp.Kid
	}

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Unix(kp.Expiry, 0).UTC()),
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		Subject:   subject,
		ID:        uuid.New().String(),
	}
	if i.issuer != "" {
		claims.Issuer = i.issuer
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kp.Kid

	signed, err := tok.SignedString(kp.PrivateKey)
	if err != nil {
		slog.Error("Failed to sign RSA JWT token", "kid", kp.Kid, "err", err)
		return "", errors.Wrap(err, errors.ErrCodeTokenCreation, "failed to sign token")
	}

	return signed, nil
}

// Verify parses a token string against the given key pair's public key.
// Expiry validation follows the standard claims, so tokens signed with
// an expired key fail here by construction.
func Verify(tokenStr string, kp *keypair.KeyPair) (*jwt.Token, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return kp.PublicKey, nil
	})
	if err != nil {
		return tok, err
	}
	if !tok.Valid {
		return tok, fmt.Errorf("invalid token")
	}
	return tok, nil
}
