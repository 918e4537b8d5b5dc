package sse

import (
	"time"

	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/infrastructure/hub"
	"go-realtime-template/internal/infrastructure/logger"
)

// InitSSERouter mounts the event stream under rg. auth must store the
// current user on the context.
func InitSSERouter(logger logger.Logger, hubInstance *hub.Hub, keepAlive time.Duration, auth gin.HandlerFunc, rg *gin.RouterGroup) {
	sseHandler := NewServerSentEventHandler(hubInstance, keepAlive, logger)

	rg.GET("/sse", auth, sseHandler.Connect)
}
