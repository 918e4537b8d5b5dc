// Package backplane connects hub instances through an external
// publish/subscribe channel. Redis pub/sub and NATS core subjects are
// supported; the URL scheme selects the implementation.
package backplane

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedScheme is returned for URLs no backplane understands.
var ErrUnsupportedScheme = errors.New("unsupported backplane scheme")

// Backplane is a connection to an external pub/sub system.
type Backplane interface {
	// Ping verifies the external system is reachable.
	Ping(ctx context.Context) error
	// Publish sends payload to every subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns once the subscription is active on the server.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// Subscription yields messages published on one channel.
type Subscription interface {
	// Receive blocks until a message arrives, ctx is done or the
	// subscription is closed.
	Receive(ctx context.Context) ([]byte, error)
	// Close is safe to call more than once and unblocks Receive.
	Close() error
}

// Kind returns the backplane kind ("redis" or "nats") for rawURL.
func Kind(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse backplane url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "redis", "rediss", "unix":
		return "redis", nil
	case "nats", "tls":
		return "nats", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}

// Open creates the backplane for rawURL. Redis clients connect lazily, NATS
// connects immediately, so callers should Ping before relying on it.
func Open(ctx context.Context, rawURL string) (Backplane, error) {
	kind, err := Kind(rawURL)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "nats":
		return OpenNATS(ctx, rawURL)
	default:
		return OpenRedis(rawURL)
	}
}

// Redact hides credentials in rawURL for logging.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}
