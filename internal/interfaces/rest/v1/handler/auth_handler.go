package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/domain/user"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/interfaces/middleware"
	"go-realtime-template/internal/port/inbound"
)

type AuthHandler struct {
	users  inbound.UserUseCase
	logger logger.Logger
}

// LoginRequest is an OAuth2 password grant form; username carries the email.
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func NewAuthHandler(users inbound.UserUseCase, logger logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		logger: logger.WithField("handler", "auth"),
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.AbortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	token, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		middleware.AbortWithDetail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.logger.Errorf("Login failed: %v", err)
		middleware.AbortWithDetail(c, http.StatusInternalServerError, "Login failed")
		return
	}

	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}
