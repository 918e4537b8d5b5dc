package persistence

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"go-realtime-template/internal/domain/user"
	"go-realtime-template/internal/port/outbound"
)

const (
	defaultCacheEntries = 10_000
	defaultCacheTTL     = 5 * time.Minute
)

// CachedUserRepository keeps users looked up by id in an in-process cache.
// Authenticated requests resolve the token subject on every call, so this
// sits in front of the SQL repository.
type CachedUserRepository struct {
	next  outbound.UserRepository
	cache *ristretto.Cache[int64, *user.User]
	ttl   time.Duration
}

var _ outbound.UserRepository = (*CachedUserRepository)(nil)

func NewCachedUserRepository(next outbound.UserRepository) (*CachedUserRepository, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[int64, *user.User]{
		NumCounters: defaultCacheEntries * 10,
		MaxCost:     defaultCacheEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedUserRepository{next: next, cache: cache, ttl: defaultCacheTTL}, nil
}

func (r *CachedUserRepository) Create(ctx context.Context, email, hashedPassword string) (*user.User, error) {
	u, err := r.next.Create(ctx, email, hashedPassword)
	if err != nil {
		return nil, err
	}
	r.cache.SetWithTTL(u.ID, u, 1, r.ttl)
	return u, nil
}

func (r *CachedUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if u, ok := r.cache.Get(id); ok {
		return u, nil
	}
	u, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.SetWithTTL(id, u, 1, r.ttl)
	return u, nil
}

// GetByEmail always reaches the underlying store since credentials are
// checked against it.
func (r *CachedUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.next.GetByEmail(ctx, email)
}

// Wait blocks until pending cache writes are applied.
func (r *CachedUserRepository) Wait() {
	r.cache.Wait()
}

func (r *CachedUserRepository) Close() {
	r.cache.Close()
}
