package hub

import "context"

// Connection is a live two-way transport handed to the hub. The hub keys
// connections by identity, so implementations must be pointer types.
type Connection interface {
	ID() string
	// Send writes one serialized event and returns once it is on the wire.
	Send(ctx context.Context, payload []byte) error
	Close() error
}

// Counts is a snapshot of the registry sizes.
type Counts struct {
	SSE         int `json:"sse_connections"`
	Connections int `json:"ws_connections"`
}

// BackplaneState is the state of the hub's external pub/sub bridge.
type BackplaneState int

const (
	BackplaneDisabled BackplaneState = iota
	BackplaneConnected
)

func (s BackplaneState) String() string {
	if s == BackplaneConnected {
		return "connected"
	}
	return "disabled"
}
