package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hirokiuemura2/GDGTeamF1/internal/googleai"
)

// AdviceHandler exposes the model-generated financial advice endpoint.
type AdviceHandler struct {
	AI *googleai.Client
}

func NewAdviceHandler(ai *googleai.Client) *AdviceHandler {
	return &AdviceHandler{AI: ai}
}

type adviceRequest struct {
	Message string `form:"message" binding:"required"`
}

// Advice forwards the message to the model and returns its answer.
func (h *AdviceHandler) Advice(c *gin.Context) {
	var req adviceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid advice request."})
		return
	}

	answer, err := h.AI.Advice(c.Request.Context(), req.Message)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": answer})
}

func (h *AdviceHandler) respondError(c *gin.Context, err error) {
	var statusErr *googleai.StatusError
	switch {
	case errors.Is(err, googleai.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"detail": "Google AI call timeout"})
	case errors.As(err, &statusErr):
		c.JSON(statusErr.StatusCode, gin.H{"detail": statusErr.Body})
	default:
		zap.L().Warn("google ai advice failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Bad gateway"})
	}
}
