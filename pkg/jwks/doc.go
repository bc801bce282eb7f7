// Package jwks projects RSA key pairs into the JSON Web Key Set
// document served at /.well-known/jwks.json, per RFC 7517. Only
// unexpired public key material is published; private keys never
// enter this package's types.
package jwks
