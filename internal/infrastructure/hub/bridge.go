package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-realtime-template/internal/infrastructure/backplane"
	"go-realtime-template/internal/infrastructure/logger"
)

// DefaultChannel is the backplane channel used when none is configured.
const DefaultChannel = "realtime:events"

// ErrBackplaneUnavailable is returned by Start when the backplane could not
// be engaged. The hub keeps working in local-only mode.
var ErrBackplaneUnavailable = errors.New("backplane unavailable")

// OpenFunc opens a backplane for a URL. Tests substitute their own.
type OpenFunc func(ctx context.Context, rawURL string) (backplane.Backplane, error)

const (
	probeTimeout     = 3 * time.Second
	receiveRetryWait = 500 * time.Millisecond
)

// bridge connects one hub to an external pub/sub channel. It is either
// Disabled (bp == nil) or Connected (bp, sub and the consumer set).
type bridge struct {
	mu      sync.Mutex
	url     string
	channel string
	open    OpenFunc

	bp     backplane.Backplane
	sub    backplane.Subscription
	cancel context.CancelFunc
	done   chan struct{}

	deliver func(ctx context.Context, payload []byte)
	logger  logger.Logger
}

func newBridge(open OpenFunc, deliver func(context.Context, []byte), log logger.Logger) *bridge {
	return &bridge{
		channel: DefaultChannel,
		open:    open,
		deliver: deliver,
		logger:  log.WithField("component", "backplane"),
	}
}

func (b *bridge) configure(rawURL, channel string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL != "" {
		if _, err := backplane.Kind(rawURL); err != nil {
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bp != nil {
		return errors.New("backplane already connected")
	}
	b.url = rawURL
	if channel != "" {
		b.channel = channel
	}
	return nil
}

func (b *bridge) state() BackplaneState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bp != nil {
		return BackplaneConnected
	}
	return BackplaneDisabled
}

// start moves the bridge to Connected. With no URL configured it is a no-op.
func (b *bridge) start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bp != nil || b.url == "" {
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	bp, err := b.open(probeCtx, b.url)
	if err != nil {
		b.logger.WithError(err).Warn("Unable to open backplane; falling back to in-process broadcasting")
		return fmt.Errorf("%w: %v", ErrBackplaneUnavailable, err)
	}

	if err := bp.Ping(probeCtx); err != nil {
		_ = bp.Close()
		b.logger.WithError(err).Warn("Unable to reach backplane; falling back to in-process broadcasting")
		return fmt.Errorf("%w: %v", ErrBackplaneUnavailable, err)
	}

	sub, err := bp.Subscribe(probeCtx, b.channel)
	if err != nil {
		_ = bp.Close()
		b.logger.WithError(err).Warn("Unable to subscribe to backplane; falling back to in-process broadcasting")
		return fmt.Errorf("%w: %v", ErrBackplaneUnavailable, err)
	}

	consumeCtx, stop := context.WithCancel(context.Background())
	b.bp = bp
	b.sub = sub
	b.cancel = stop
	b.done = make(chan struct{})

	go b.consume(consumeCtx, sub, b.done)

	b.logger.Infof("Realtime backplane enabled url=%s channel=%s", backplane.Redact(b.url), b.channel)
	return nil
}

// publish sends payload through the backplane. It reports false when the
// bridge is Disabled or the publish failed, leaving local delivery to the
// caller.
func (b *bridge) publish(ctx context.Context, payload []byte) bool {
	b.mu.Lock()
	bp, channel := b.bp, b.channel
	b.mu.Unlock()

	if bp == nil {
		return false
	}

	if err := bp.Publish(ctx, channel, payload); err != nil {
		b.logger.WithError(err).Error("Failed to publish realtime event to backplane; using in-process fallback")
		return false
	}
	return true
}

// consume delivers every message received on the channel locally. It never
// publishes, so events do not echo between instances.
func (b *bridge) consume(ctx context.Context, sub backplane.Subscription, done chan struct{}) {
	defer close(done)
	defer sub.Close()

	for {
		payload, err := sub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.WithError(err).Warn("Backplane receive failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(receiveRetryWait):
			}
			continue
		}

		if !json.Valid(payload) {
			b.logger.Warnf("Skipping malformed backplane message (%d bytes)", len(payload))
			continue
		}

		b.deliver(ctx, payload)
	}
}

// stop returns the bridge to Disabled. Waiting for the consumer is bounded
// by ctx so an unreachable backplane cannot hang shutdown.
func (b *bridge) stop(ctx context.Context) error {
	b.mu.Lock()
	bp, sub, cancel, done := b.bp, b.sub, b.cancel, b.done
	b.bp, b.sub, b.cancel, b.done = nil, nil, nil, nil
	b.mu.Unlock()

	if bp == nil {
		return nil
	}

	cancel()
	// Closing the subscription unblocks a Receive that ignores ctx.
	_ = sub.Close()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for backplane consumer: %w", ctx.Err())
		b.logger.WithError(err).Warn("Backplane consumer did not exit in time")
	}

	if cerr := bp.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close backplane: %w", cerr)
	}

	b.logger.Info("Realtime backplane disabled")
	return err
}
