package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/infrastructure/hub"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/interfaces/middleware"
)

const (
	DefaultKeepAlive = 15 * time.Second
	MaxEventsLimit   = 1000
)

type ServerSentEventHandler struct {
	hub       *hub.Hub
	keepAlive time.Duration
	logger    logger.Logger
}

func NewServerSentEventHandler(hubInstance *hub.Hub, keepAlive time.Duration, logger logger.Logger) *ServerSentEventHandler {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &ServerSentEventHandler{
		hub:       hubInstance,
		keepAlive: keepAlive,
		logger:    logger.WithField("handler", "sse"),
	}
}

// Connect streams hub events to the caller until it disconnects, the hub
// shuts down or max_events frames (the connected frame included) were sent.
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
	maxEvents, err := parseMaxEvents(c.Query("max_events"))
	if err != nil {
		middleware.AbortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if !h.hub.IsRunning() {
		middleware.AbortWithDetail(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}

	current := middleware.CurrentUser(c)
	w := c.Writer

	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debugf("Could not clear write deadline: %v", err)
	}
	setHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	sub := h.hub.RegisterSSE()
	defer h.hub.UnregisterSSE(sub.ID())

	log := h.logger.WithFields(logger.Fields{
		"subscriber_id": sub.ID(),
		"user_id":       current.ID,
	})
	log.Info("SSE subscriber connected")
	defer log.Info("SSE subscriber disconnected")

	connected, err := json.Marshal(hub.ConnectedEvent(current.ID))
	if err != nil {
		log.WithError(err).Error("Failed to encode connected event")
		return
	}
	if err := writeEvent(w, hub.EventTypeConnected, connected); err != nil {
		return
	}
	w.Flush()

	sent := 1
	if maxEvents > 0 && sent >= maxEvents {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-sub.Done():
			return

		case payload := <-sub.Events():
			if err := writeEvent(w, hub.TypeOf(payload), payload); err != nil {
				log.Debugf("Write failed: %v", err)
				return
			}
			w.Flush()

			sent++
			if maxEvents > 0 && sent >= maxEvents {
				return
			}

		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			w.Flush()
		}
	}
}

func parseMaxEvents(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxEventsLimit {
		return 0, fmt.Errorf("max_events must be an integer between 1 and %d", MaxEventsLimit)
	}
	return n, nil
}

func setHeaders(header http.Header) {
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
}

var eventNameReplacer = strings.NewReplacer("\r", "", "\n", "")

// writeEvent writes one SSE frame. A payload spanning several lines is
// split across data fields.
func writeEvent(w io.Writer, eventType hub.EventType, payload []byte) error {
	var b bytes.Buffer
	b.WriteString("event: ")
	b.WriteString(eventNameReplacer.Replace(string(eventType)))
	b.WriteByte('\n')
	for _, line := range bytes.Split(bytes.TrimRight(payload, "\r\n"), []byte("\n")) {
		b.WriteString("data: ")
		b.Write(bytes.TrimSuffix(line, []byte("\r")))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	_, err := w.Write(b.Bytes())
	return err
}
