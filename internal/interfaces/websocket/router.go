package websocket

import (
	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/infrastructure/hub"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/port/inbound"
)

// InitWebSocketRouter mounts the two-way endpoint under rg. It authenticates
// on its own so failures can be reported with a close code.
func InitWebSocketRouter(logger logger.Logger, hubInstance *hub.Hub, users inbound.UserUseCase, rg *gin.RouterGroup) {
	wsHandler := NewWebSocketHandler(hubInstance, users, logger)

	rg.GET("/ws", wsHandler.Connect)
}
