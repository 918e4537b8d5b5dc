package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"

	"go-realtime-template/internal/domain/user"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url     string
		driver  string
		dsn     string
		dialect goose.Dialect
	}{
		{"postgres://u:p@db:5432/app", "pgx", "postgres://u:p@db:5432/app", goose.DialectPostgres},
		{"postgresql://db/app", "pgx", "postgresql://db/app", goose.DialectPostgres},
		{"sqlite://app.db", "sqlite", "app.db", goose.DialectSQLite3},
		{"sqlite:///tmp/app.db", "sqlite", "tmp/app.db", goose.DialectSQLite3},
		{"data/app.db", "sqlite", "data/app.db", goose.DialectSQLite3},
		{"", "sqlite", ":memory:", goose.DialectSQLite3},
	}

	for _, tt := range tests {
		driver, dsn, dialect := parseURL(tt.url)
		if driver != tt.driver || dsn != tt.dsn || dialect != tt.dialect {
			t.Errorf("parseURL(%q) = (%s, %s, %s), want (%s, %s, %s)",
				tt.url, driver, dsn, dialect, tt.driver, tt.dsn, tt.dialect)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &Database{dialect: goose.DialectPostgres}
	if got := pg.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("Unexpected postgres query: %s", got)
	}

	lite := &Database{dialect: goose.DialectSQLite3}
	if got := lite.Rebind("a = ?"); got != "a = ?" {
		t.Errorf("SQLite query should be untouched, got %s", got)
	}
}

func TestMigrate_IsRepeatable(t *testing.T) {
	db := newTestDatabase(t)

	applied, err := db.Migrate(context.Background())
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Expected no pending migrations, got %v", applied)
	}
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDatabase(t))

	created, err := repo.Create(ctx, " Alice@Example.com ", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("Expected a generated id")
	}
	if created.Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %s", created.Email)
	}

	byID, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Email != created.Email || byID.HashedPassword != "hash" {
		t.Errorf("Unexpected user: %+v", byID)
	}

	byEmail, err := repo.GetByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Errorf("Expected id %d, got %d", created.ID, byEmail.ID)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDatabase(t))

	if _, err := repo.Create(ctx, "bob@example.com", "hash"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := repo.Create(ctx, "Bob@example.com", "other")
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDatabase(t))

	if _, err := repo.GetByID(ctx, 42); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by id, got %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by email, got %v", err)
	}
}

type countingRepository struct {
	*UserRepository
	byID int
}

func (c *countingRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	c.byID++
	return c.UserRepository.GetByID(ctx, id)
}

func TestCachedUserRepository_GetByIDHitsCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepository{UserRepository: NewUserRepository(newTestDatabase(t))}

	cached, err := NewCachedUserRepository(inner)
	if err != nil {
		t.Fatalf("NewCachedUserRepository: %v", err)
	}
	defer cached.Close()

	u, err := inner.Create(ctx, "carol@example.com", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := cached.GetByID(ctx, u.ID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	cached.Wait()

	got, err := cached.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "carol@example.com" {
		t.Errorf("Unexpected user: %+v", got)
	}
	if inner.byID != 1 {
		t.Errorf("Expected 1 store lookup, got %d", inner.byID)
	}
}

func TestCachedUserRepository_MissPropagatesNotFound(t *testing.T) {
	cached, err := NewCachedUserRepository(NewUserRepository(newTestDatabase(t)))
	if err != nil {
		t.Fatalf("NewCachedUserRepository: %v", err)
	}
	defer cached.Close()

	if _, err := cached.GetByID(context.Background(), 7); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
