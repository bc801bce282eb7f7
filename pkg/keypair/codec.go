package keypair

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"math/big"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
)

// EncodePrivateKeyDER encodes an RSA private key as PKCS#1 DER. This is the
// format-stable encoding used by the key store.
func EncodePrivateKeyDER(privateKey *rsa.PrivateKey) []byte {
	return x509.MarshalPKCS1PrivateKey(privateKey)
}

// DecodePrivateKeyDER decodes a PKCS#1 DER encoded RSA private key
func DecodePrivateKeyDER(der []byte) (*rsa.PrivateKey, error) {
	privateKey, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeKeyPair, "failed to parse PKCS#1 private key")
	}
	return privateKey, nil
}

// EncodePrivateKeyToPEM encodes an RSA private key to PKCS#1 PEM format
func EncodePrivateKeyToPEM(privateKey *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}))
}

// DecodePrivateKeyFromPEM decodes an RSA private key from PEM format.
// Supports both PKCS#1 (RSA PRIVATE KEY) and PKCS#8 (PRIVATE KEY) blocks.
func DecodePrivateKeyFromPEM(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New(errors.ErrCodeKeyPair, "failed to decode PEM block")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeKeyPair, "failed to parse PKCS#1 private key")
		}
		return privateKey, nil
	case "PRIVATE KEY":
		parsedKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeKeyPair, "failed to parse PKCS#8 private key")
		}
		privateKey, ok := parsedKey.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New(errors.ErrCodeKeyPair, "parsed key is not an RSA private key")
		}
		return privateKey, nil
	default:
		return nil, errors.Newf(errors.ErrCodeKeyPair, "invalid PEM block type: %s", block.Type)
	}
}

// EncodePublicKeyToPEM encodes an RSA public key to PKIX PEM format
func EncodePublicKeyToPEM(publicKey *rsa.PublicKey) string {
	publicKeyBytes, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return ""
	}
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	}))
}

// DecodePublicKeyFromPEM decodes an RSA public key from PKIX PEM format
func DecodePublicKeyFromPEM(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New(errors.ErrCodeKeyPair, "failed to decode PEM block")
	}

	if block.Type != "PUBLIC KEY" {
		return nil, errors.Newf(errors.ErrCodeKeyPair, "invalid PEM block type: %s", block.Type)
	}

	publicKeyInterface, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeKeyPair, "failed to parse public key")
	}

	publicKey, ok := publicKeyInterface.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New(errors.ErrCodeKeyPair, "key is not an RSA public key")
	}

	return publicKey, nil
}

// EncodeModulus encodes the RSA public key modulus as unpadded base64url of
// the unsigned big-endian bytes
func EncodeModulus(publicKey *rsa.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes())
}

// EncodeExponent encodes the RSA public key exponent as unpadded base64url of
// the unsigned big-endian bytes
func EncodeExponent(publicKey *rsa.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes())
}
