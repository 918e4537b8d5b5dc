package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-realtime-template/internal/application/facade"
	"go-realtime-template/internal/infrastructure/logger"
	"go-realtime-template/internal/interfaces/middleware"
	"go-realtime-template/internal/port/inbound"
)

type PredictHandler struct {
	predictor inbound.PredictionUseCase
	logger    logger.Logger
}

type PredictRequest struct {
	Features []float64 `json:"features" binding:"required,len=4"`
}

type PredictResponse struct {
	Prediction float64 `json:"prediction"`
}

func NewPredictHandler(predictor inbound.PredictionUseCase, logger logger.Logger) *PredictHandler {
	return &PredictHandler{
		predictor: predictor,
		logger:    logger.WithField("handler", "predict"),
	}
}

func (h *PredictHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	value, err := h.predictor.Predict(c.Request.Context(), req.Features)
	if errors.Is(err, facade.ErrFeatureCount) {
		middleware.AbortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.Errorf("Prediction failed: %v", err)
		middleware.AbortWithDetail(c, http.StatusInternalServerError, "Prediction failed")
		return
	}

	c.JSON(http.StatusOK, PredictResponse{Prediction: value})
}
