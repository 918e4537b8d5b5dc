package outbound

import (
	"context"

	"go-realtime-template/internal/domain/user"
)

// UserRepository persists users. Lookups return user.ErrNotFound when
// nothing matches and Create returns user.ErrEmailTaken on duplicates.
type UserRepository interface {
	Create(ctx context.Context, email, hashedPassword string) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

// TokenIssuer issues and validates access tokens whose subject is a user id.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
	Subject(token string) (int64, error)
}
