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

type UserHandler struct {
	users  inbound.UserUseCase
	logger logger.Logger
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func NewUserHandler(users inbound.UserUseCase, logger logger.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.WithField("handler", "users"),
	}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, user.ErrEmailTaken) {
		middleware.AbortWithDetail(c, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to register user: %v", err)
		middleware.AbortWithDetail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, UserResponse{ID: u.ID, Email: u.Email})
}

func (h *UserHandler) Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, UserResponse{ID: u.ID, Email: u.Email})
}
