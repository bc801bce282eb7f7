package api

// KeyPairResponse is the public projection of a key pair returned by
// GET /create-key-pair. It never carries private key material.
type KeyPairResponse struct {
	Kid          string `json:"kid"`
	Alg          string `json:"alg"`
	Expiry       int64  `json:"expiry"`
	PublicKeyPEM string `json:"public_key_pem"`
}

// AuthRequest is the optional credentials body accepted by POST /auth.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest carries the fields accepted by POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RegisterResponse is returned once on successful registration with the
// generated plaintext password.
type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
