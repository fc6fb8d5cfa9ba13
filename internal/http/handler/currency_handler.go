package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hirokiuemura2/GDGTeamF1/internal/currencyapi"
	"github.com/hirokiuemura2/GDGTeamF1/internal/service"
)

// CurrencyHandler exposes currency conversion.
type CurrencyHandler struct {
	Currency *service.CurrencyService
}

func NewCurrencyHandler(currency *service.CurrencyService) *CurrencyHandler {
	return &CurrencyHandler{Currency: currency}
}

type convertRequest struct {
	Amount  float64 `form:"amount" binding:"required,gt=0"`
	FromCur string  `form:"from_cur" binding:"required,len=3"`
	ToCur   string  `form:"to_cur" binding:"required,len=3"`
}

// Convert translates an amount between two currencies using third-party
// rates. Upstream failures map to 504 on timeout, the upstream status on
// HTTP errors, and 502 on network errors.
func (h *CurrencyHandler) Convert(c *gin.Context) {
	var req convertRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid conversion request."})
		return
	}

	result, err := h.Currency.Convert(c.Request.Context(), req.Amount, req.FromCur, req.ToCur)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *CurrencyHandler) respondError(c *gin.Context, err error) {
	var statusErr *currencyapi.StatusError
	switch {
	case errors.Is(err, currencyapi.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"detail": "Currency API call timeout"})
	case errors.As(err, &statusErr):
		c.JSON(statusErr.StatusCode, gin.H{"detail": statusErr.Body})
	default:
		zap.L().Warn("currency conversion failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Bad gateway"})
	}
}
