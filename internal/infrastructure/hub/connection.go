package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"go-realtime-template/internal/infrastructure/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrConnectionClosed is returned by Send after Close.
var ErrConnectionClosed = errors.New("connection is closed")

// WebSocketConnection implements Connection over a gorilla websocket.
// Writes are serialized with a mutex; gorilla allows one concurrent writer.
type WebSocketConnection struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex

	closed   bool
	closedMu sync.RWMutex
	done     chan struct{}

	logger logger.Logger
}

var _ Connection = (*WebSocketConnection)(nil)

// NewWebSocketConnection wraps an upgraded connection and starts its ping
// loop. The caller owns the read side via ReadMessage.
func NewWebSocketConnection(id string, conn *websocket.Conn, log logger.Logger) *WebSocketConnection {
	c := &WebSocketConnection{
		id:     id,
		conn:   conn,
		done:   make(chan struct{}),
		logger: log.WithField("connection_id", id),
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.keepAlive()

	return c
}

// ID returns unique connection identifier
func (c *WebSocketConnection) ID() string {
	return c.id
}

// Send writes payload as a single text frame.
func (c *WebSocketConnection) Send(ctx context.Context, payload []byte) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// SendJSON writes v as a single JSON text frame.
func (c *WebSocketConnection) SendJSON(v any) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// ReadMessage reads the next text frame from the peer. Binary frames are
// skipped.
func (c *WebSocketConnection) ReadMessage() (string, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warnf("WebSocket read error: %v", err)
			}
			return "", err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if messageType == websocket.TextMessage {
			return string(data), nil
		}
		c.logger.Debugf("Ignoring binary message of length %d", len(data))
	}
}

// Close sends a normal close frame and closes the socket. Safe to call
// multiple times.
func (c *WebSocketConnection) Close() error {
	return c.CloseWithReason(websocket.CloseNormalClosure, "")
}

// CloseWithReason closes the connection with the given close code.
func (c *WebSocketConnection) CloseWithReason(code int, reason string) error {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.closedMu.Unlock()

	// WriteControl may run concurrently with other writes.
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	err := c.conn.Close()

	c.logger.Debug("WebSocket connection closed")
	return err
}

// IsClosed returns true if connection is closed
func (c *WebSocketConnection) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// keepAlive pings the peer so dead connections surface as read errors.
func (c *WebSocketConnection) keepAlive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debugf("Failed to send ping: %v", err)
				return
			}
		case <-c.done:
			return
		}
	}
}
