package model

import "time"

// Roles carried in the JWT "role" claim and stored on profiles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a row of the `users` table: the credentials of the built-in
// identity issuer.  Accounts created by an external provider have a profile
// but no users row.
type User struct {
	ID           string    // users.id (uuid, shared with profiles.id)
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
