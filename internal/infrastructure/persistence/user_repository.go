package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"go-realtime-template/internal/domain/user"
	"go-realtime-template/internal/port/outbound"
)

const pgUniqueViolation = "23505"

type UserRepository struct {
	db *Database
}

var _ outbound.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, email, hashedPassword string) (*user.User, error) {
	u := &user.User{
		Email:          user.NormalizeEmail(email),
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}

	query := r.db.Rebind(`INSERT INTO users (email, hashed_password, created_at) VALUES (?, ?, ?) RETURNING id`)
	err := r.db.QueryRowContext(ctx, query, u.Email, u.HashedPassword, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, user.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, `SELECT id, email, hashed_password, created_at FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `SELECT id, email, hashed_password, created_at FROM users WHERE email = ?`, user.NormalizeEmail(email))
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	var u user.User
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), arg).Scan(&u.ID, &u.Email, &u.HashedPassword, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}
