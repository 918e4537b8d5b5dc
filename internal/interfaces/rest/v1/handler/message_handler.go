package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/infrastructure/hub"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/interfaces/middleware"
)

// MessageHandler exposes the hub to plain HTTP callers.
type MessageHandler struct {
	hub    *hub.Hub
	logger logger.Logger
}

type MessageRequest struct {
	Message string `json:"message" binding:"required,min=1,max=1000"`
}

type StatsResponse struct {
	hub.Counts
	HubRunning bool   `json:"hub_running"`
	Backplane  string `json:"backplane"`
}

func NewMessageHandler(hubInstance *hub.Hub, logger logger.Logger) *MessageHandler {
	return &MessageHandler{
		hub:    hubInstance,
		logger: logger.WithField("handler", "messages"),
	}
}

// PostMessage broadcasts the caller's message and answers with the
// current registry counts.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	current := middleware.CurrentUser(c)
	counts, err := h.hub.Broadcast(c.Request.Context(), hub.MessageEvent(current.ID, req.Message))
	if err != nil {
		h.logger.Errorf("Failed to broadcast message: %v", err)
		middleware.AbortWithDetail(c, http.StatusInternalServerError, "Failed to broadcast message")
		return
	}

	h.logger.Debugf("Message from user %d sent to %d subscribers and %d connections",
		current.ID, counts.SSE, counts.Connections)

	c.JSON(http.StatusAccepted, counts)
}

func (h *MessageHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Counts:     h.hub.Counts(),
		HubRunning: h.hub.IsRunning(),
		Backplane:  h.hub.BackplaneState().String(),
	})
}
