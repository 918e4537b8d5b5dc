package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go-realtime-template/internal/infrastructure/backplane"
	"go-realtime-template/internal/infrastructure/logger"
)

// Hub fans serialized events out to SSE subscribers and two-way
// connections, optionally through a backplane shared with other instances.
type Hub struct {
	// mu guards the registry only and is never held across delivery I/O.
	mu            sync.Mutex
	nextID        uint64
	subscribers   map[uint64]*Subscriber
	connections   map[Connection]struct{}
	queueCapacity int

	running   bool
	runningMu sync.RWMutex

	bridge *bridge
	logger logger.Logger
}

// Option configures a Hub.
type Option func(*options)

type options struct {
	queueCapacity int
	open          OpenFunc
}

// WithQueueCapacity sets the per-subscriber SSE queue capacity.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithBackplaneOpener replaces how the backplane is opened.
func WithBackplaneOpener(open OpenFunc) Option {
	return func(o *options) {
		if open != nil {
			o.open = open
		}
	}
}

// New creates a new Hub instance
func New(log logger.Logger, opts ...Option) *Hub {
	o := options{
		queueCapacity: DefaultQueueCapacity,
		open:          backplane.Open,
	}
	for _, opt := range opts {
		opt(&o)
	}

	h := &Hub{
		subscribers:   make(map[uint64]*Subscriber),
		connections:   make(map[Connection]struct{}),
		queueCapacity: o.queueCapacity,
		logger:        log.WithField("component", "hub"),
	}
	h.bridge = newBridge(o.open, h.deliverLocal, h.logger)
	return h
}

// Configure sets the backplane URL and channel. A blank URL keeps the hub
// local-only.
func (h *Hub) Configure(rawURL, channel string) error {
	if err := h.bridge.configure(rawURL, channel); err != nil {
		return fmt.Errorf("configure backplane: %w", err)
	}
	return nil
}

// Start marks the hub running and engages the backplane if one is
// configured. A backplane failure is returned wrapping
// ErrBackplaneUnavailable, but the hub is running in local-only mode
// regardless.
func (h *Hub) Start(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return fmt.Errorf("hub is already running")
	}
	h.running = true

	if err := h.bridge.start(ctx); err != nil {
		h.logger.Info("Hub started in local-only mode")
		return err
	}

	h.logger.Infof("Hub started successfully (backplane %s)", h.bridge.state())
	return nil
}

// Stop disables the backplane, releases every SSE subscriber and closes
// every two-way connection.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if !h.running {
		return nil
	}
	h.running = false

	err := h.bridge.stop(ctx)

	h.mu.Lock()
	subscribers := h.subscribers
	connections := h.connections
	h.subscribers = make(map[uint64]*Subscriber)
	h.connections = make(map[Connection]struct{})
	h.mu.Unlock()

	for _, sub := range subscribers {
		sub.close()
	}
	for conn := range connections {
		if cerr := conn.Close(); cerr != nil {
			h.logger.Errorf("Failed to close connection %s: %v", conn.ID(), cerr)
		}
	}

	h.logger.Info("Hub stopped successfully")
	return err
}

// IsRunning returns true if the hub is currently running
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// BackplaneState reports whether broadcasts go through the backplane.
func (h *Hub) BackplaneState() BackplaneState {
	return h.bridge.state()
}

// RegisterSSE allocates a new SSE subscriber.
func (h *Hub) RegisterSSE() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := newSubscriber(h.nextID, h.queueCapacity)
	h.subscribers[sub.id] = sub
	return sub
}

// UnregisterSSE removes the subscriber. Unknown ids are ignored.
func (h *Hub) UnregisterSSE(id uint64) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	delete(h.subscribers, id)
	h.mu.Unlock()

	if ok {
		sub.close()
	}
}

// AddConnection registers a two-way connection. Adding it twice is a no-op.
func (h *Hub) AddConnection(conn Connection) {
	h.mu.Lock()
	h.connections[conn] = struct{}{}
	h.mu.Unlock()

	h.logger.Debugf("Connection %s registered", conn.ID())
}

// RemoveConnection forgets a two-way connection. It does not close it.
func (h *Hub) RemoveConnection(conn Connection) {
	h.mu.Lock()
	_, ok := h.connections[conn]
	delete(h.connections, conn)
	h.mu.Unlock()

	if ok {
		h.logger.Debugf("Connection %s unregistered", conn.ID())
	}
}

// Counts returns the number of registered subscribers and connections.
func (h *Hub) Counts() Counts {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Counts{
		SSE:         len(h.subscribers),
		Connections: len(h.connections),
	}
}

// Broadcast serializes event once and hands it to the backplane, or
// delivers it locally when the backplane is disabled or publishing fails.
// The only error is a serialization failure.
func (h *Hub) Broadcast(ctx context.Context, event any) (Counts, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Counts{}, fmt.Errorf("serialize event: %w", err)
	}

	h.Publish(ctx, payload)
	return h.Counts(), nil
}

// Publish dispatches an already serialized JSON event.
func (h *Hub) Publish(ctx context.Context, payload []byte) {
	if h.bridge.publish(ctx, payload) {
		// Delivered back to this instance by the consumer.
		return
	}
	h.deliverLocal(ctx, payload)
}

// deliverLocal fans payload out to a snapshot of the registry.
func (h *Hub) deliverLocal(ctx context.Context, payload []byte) {
	h.mu.Lock()
	subscribers := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subscribers = append(subscribers, sub)
	}
	connections := make([]Connection, 0, len(h.connections))
	for conn := range h.connections {
		connections = append(connections, conn)
	}
	h.mu.Unlock()

	h.deliverSSE(payload, subscribers)
	h.deliverConnections(ctx, payload, connections)
}

func (h *Hub) deliverSSE(payload []byte, subscribers []*Subscriber) {
	for _, sub := range subscribers {
		if !sub.offer(payload) {
			h.logger.Debugf("Dropped event for SSE subscriber %d", sub.id)
		}
	}
}

// deliverConnections sends to each connection in turn and evicts (and
// closes) those whose send failed.
func (h *Hub) deliverConnections(ctx context.Context, payload []byte, connections []Connection) {
	var stale []Connection
	for _, conn := range connections {
		if err := conn.Send(ctx, payload); err != nil {
			h.logger.Warnf("Failed to send broadcast to connection %s: %v", conn.ID(), err)
			stale = append(stale, conn)
		}
	}

	if len(stale) == 0 {
		return
	}

	h.mu.Lock()
	for _, conn := range stale {
		delete(h.connections, conn)
	}
	h.mu.Unlock()

	for _, conn := range stale {
		_ = conn.Close()
	}
	h.logger.Infof("Evicted %d stale connections", len(stale))
}
