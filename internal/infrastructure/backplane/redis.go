package backplane

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis is a Backplane over Redis PUBLISH/SUBSCRIBE.
type Redis struct {
	rdb    *goredis.Client
	closed bool
	mu     sync.Mutex
}

var _ Backplane = (*Redis)(nil)

// OpenRedis builds a client from a redis:// URL. No connection is made until
// the first command.
func OpenRedis(rawURL string) (*Redis, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 2 * time.Second
	}
	// A dead backplane must fail fast so the hub can fall back to local delivery.
	opts.MaxRetries = 1

	return &Redis{rdb: goredis.NewClient(opts)}, nil
}

// NewRedis wraps an existing go-redis client.
func NewRedis(rdb *goredis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Ping(ctx context.Context) error {
	pong, err := r.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", pong)
	}
	return nil
}

func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := r.rdb.Subscribe(ctx, channel)

	// Wait for the subscribe confirmation so nothing published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	return &redisSubscription{ps: ps}, nil
}

// Close closes the client. Safe to call multiple times.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.rdb.Close()
}

type redisSubscription struct {
	ps   *goredis.PubSub
	once sync.Once
}

func (s *redisSubscription) Receive(ctx context.Context) ([]byte, error) {
	msg, err := s.ps.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (s *redisSubscription) Close() error {
	var err error
	// Closing the pubsub connection drops the subscription server side,
	// so no UNSUBSCRIBE round trip is needed when the server is gone.
	s.once.Do(func() { err = s.ps.Close() })
	return err
}
