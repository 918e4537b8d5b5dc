package user

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is an account able to authenticate against the API.
type User struct {
	ID             int64
	Email          string
	HashedPassword string
	CreatedAt      time.Time
}

// NormalizeEmail lowercases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
