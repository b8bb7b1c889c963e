package domain

import (
	"strings"
	"time"
)

const RoleAdmin = "admin"

// User is a board operator. PasswordHash is a bcrypt hash; plaintext
// passwords are never stored.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
