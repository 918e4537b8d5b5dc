package websocket

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-realtime-template/internal/domain/user"
	"go-realtime-template/internal/infrastructure/hub"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/interfaces/middleware"
	"go-realtime-template/internal/port/inbound"
)

// WebSocketHandler upgrades authenticated clients into hub connections and
// turns their text frames into broadcasts.
type WebSocketHandler struct {
	hub      *hub.Hub
	users    inbound.UserUseCase
	logger   logger.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hubInstance *hub.Hub, users inbound.UserUseCase, logger logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hubInstance,
		users:  users,
		logger: logger.WithField("handler", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// CORS is allow-all for the whole API.
				return true
			},
		},
	}
}

func (h *WebSocketHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		middleware.AbortWithDetail(c, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := hub.NewWebSocketConnection("ws-"+uuid.NewString(), conn, h.logger)
	log := h.logger.WithField("connection_id", wsConn.ID())

	current, reason := h.authenticate(c.Request.Context(), c)
	if current == nil {
		log.Warnf("Rejecting WebSocket connection: %s", reason)
		_ = wsConn.CloseWithReason(websocket.ClosePolicyViolation, reason)
		return
	}
	log = log.WithField("user_id", current.ID)

	if err := wsConn.SendJSON(hub.ConnectedEvent(current.ID)); err != nil {
		log.WithError(err).Warn("Failed to send connected event")
		_ = wsConn.Close()
		return
	}

	h.hub.AddConnection(wsConn)
	log.Info("WebSocket connection registered")

	defer func() {
		h.hub.RemoveConnection(wsConn)
		_ = wsConn.Close()
		log.Info("WebSocket connection disconnected")
	}()

	for {
		text, err := wsConn.ReadMessage()
		if err != nil {
			return
		}

		if _, err := h.hub.Broadcast(context.Background(), hub.MessageEvent(current.ID, text)); err != nil {
			log.WithError(err).Error("Failed to broadcast message")
		}
	}
}

// authenticate resolves the caller from a bearer header or a token query
// parameter. On failure it returns the close reason.
func (h *WebSocketHandler) authenticate(ctx context.Context, c *gin.Context) (*user.User, string) {
	token := middleware.BearerToken(c.Request)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		return nil, "Missing authentication token"
	}

	u, err := h.users.Authenticate(ctx, token)
	switch {
	case errors.Is(err, user.ErrNotFound):
		return nil, "User not found"
	case err != nil:
		return nil, "Invalid authentication token"
	}
	return u, ""
}
