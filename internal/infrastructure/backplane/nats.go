package backplane

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS is a Backplane over core NATS subjects. The hub channel name is used
// as the subject.
type NATS struct {
	nc *nats.Conn
}

var _ Backplane = (*NATS)(nil)

// OpenNATS connects to the NATS server at rawURL.
func OpenNATS(ctx context.Context, rawURL string) (*NATS, error) {
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			timeout = d
		}
	}

	nc, err := nats.Connect(rawURL,
		nats.Name("realtime-hub"),
		nats.Timeout(timeout),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATS{nc: nc}, nil
}

func (n *NATS) Ping(ctx context.Context) error {
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats ping failed: %w", err)
	}
	return nil
}

func (n *NATS) Publish(_ context.Context, channel string, payload []byte) error {
	if err := n.nc.Publish(channel, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", channel, err)
	}
	return nil
}

func (n *NATS) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub, err := n.nc.SubscribeSync(channel)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", channel, err)
	}
	// Flush so the server has registered interest before we return.
	if err := n.nc.FlushWithContext(ctx); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("nats subscribe %s: %w", channel, err)
	}
	return &natsSubscription{sub: sub}, nil
}

func (n *NATS) Close() error {
	n.nc.Close()
	return nil
}

type natsSubscription struct {
	sub  *nats.Subscription
	once sync.Once
}

func (s *natsSubscription) Receive(ctx context.Context) ([]byte, error) {
	msg, err := s.sub.NextMsgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

func (s *natsSubscription) Close() error {
	var err error
	s.once.Do(func() { err = s.sub.Unsubscribe() })
	return err
}
