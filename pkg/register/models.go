package register

import "time"

// User represents a registered account. Only the bcrypt hash of the
// generated password is retained; the plaintext is returned to the
// caller exactly once at registration time.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
