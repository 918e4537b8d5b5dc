package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/infrastructure/hub"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/interfaces/middleware"
	"go-realtime-template/internal/interfaces/rest/v1/handler"
	"go-realtime-template/internal/interfaces/sse"
	"go-realtime-template/internal/interfaces/websocket"
	"go-realtime-template/internal/port/inbound"
)

type RouterDeps struct {
	Hub          *hub.Hub
	Users        inbound.UserUseCase
	Predictor    inbound.PredictionUseCase
	DB           handler.Pinger
	SSEKeepAlive time.Duration
	Logger       logger.Logger
}

func InitRouter(deps RouterDeps) http.Handler {
	log := deps.Logger

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS())

	requireUser := middleware.RequireUser(deps.Users)
	v1 := router.Group("/api/v1")

	health := handler.NewHealthHandler(deps.DB, log)
	healthGroup := v1.Group("/health")
	{
		healthGroup.GET("/live", health.Live)
		healthGroup.GET("/ready", health.Ready)
	}

	users := handler.NewUserHandler(deps.Users, log)
	usersGroup := v1.Group("/users")
	{
		usersGroup.POST("/", users.Create)
		usersGroup.GET("/me", requireUser, users.Me)
	}

	v1.POST("/auth/login", handler.NewAuthHandler(deps.Users, log).Login)
	v1.POST("/predict/", handler.NewPredictHandler(deps.Predictor, log).Predict)

	messages := handler.NewMessageHandler(deps.Hub, log)
	streamGroup := v1.Group("/stream")
	{
		streamGroup.POST("/messages", requireUser, messages.PostMessage)
		streamGroup.GET("/stats", messages.Stats)
	}

	sse.InitSSERouter(log, deps.Hub, deps.SSEKeepAlive, requireUser, streamGroup)
	websocket.InitWebSocketRouter(log, deps.Hub, deps.Users, streamGroup)

	return router
}
