package domain

import "time"

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// ValidRole reports whether role is one of the roles accepted at registration.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleClient
}

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // bcrypt, never plaintext
	Role         string
	CreatedAt    time.Time
}

// IsAdmin reports whether the user may call administrator-only operations.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
