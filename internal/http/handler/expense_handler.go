package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hirokiuemura2/GDGTeamF1/internal/domain"
	"github.com/hirokiuemura2/GDGTeamF1/internal/http/middleware"
	"github.com/hirokiuemura2/GDGTeamF1/internal/service"
)

// ExpenseHandler exposes expense and subscription endpoints. All routes
// require a bearer token; records are scoped to the authenticated user.
type ExpenseHandler struct {
	Expenses *service.ExpenseService
}

func NewExpenseHandler(expenses *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{Expenses: expenses}
}

type expenseCreateRequest struct {
	Amount      float64   `json:"amount" binding:"required,gt=0"`
	Currency    string    `json:"currency" binding:"required"`
	Category    string    `json:"category" binding:"required"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at" binding:"required"`
}

type expenseResponse struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateExpense records a spending entry.
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	var req expenseCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid expense payload."})
		return
	}

	created, err := h.Expenses.CreateExpense(c.Request.Context(), userID, domain.Expense{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toExpenseResponse(created))
}

type expenseListRequest struct {
	MinAmount      *float64   `form:"min_amount"`
	MaxAmount      *float64   `form:"max_amount"`
	Currency       []string   `form:"currency"`
	Category       []string   `form:"category"`
	OccurredBefore *time.Time `form:"occurred_before" time_format:"2006-01-02T15:04:05Z07:00"`
	OccurredAfter  *time.Time `form:"occurred_after" time_format:"2006-01-02T15:04:05Z07:00"`
	OccurredOn     *time.Time `form:"occurred_on" time_format:"2006-01-02"`
	MinInterval    string     `form:"min_interval"`
	MaxInterval    string     `form:"max_interval"`
	Count          int        `form:"count"`
}

func (r expenseListRequest) filter() domain.ExpenseFilter {
	return domain.ExpenseFilter{
		MinAmount:      r.MinAmount,
		MaxAmount:      r.MaxAmount,
		Currencies:     r.Currency,
		Categories:     r.Category,
		OccurredBefore: r.OccurredBefore,
		OccurredAfter:  r.OccurredAfter,
		OccurredOn:     r.OccurredOn,
		MinInterval:    r.MinInterval,
		MaxInterval:    r.MaxInterval,
		Limit:          r.Count,
	}
}

// GetExpenses lists the user's expenses matching the query filters.
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	var req expenseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid expense filter."})
		return
	}

	expenses, err := h.Expenses.ListExpenses(c.Request.Context(), userID, req.filter())
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

type deleteRequest struct {
	ID string `json:"id" binding:"required"`
}

// DeleteExpense removes a spending entry owned by the user.
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid delete payload."})
		return
	}

	if err := h.Expenses.DeleteExpense(c.Request.Context(), userID, req.ID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": req.ID, "deleted_at": time.Now().UTC()})
}

type subscriptionCreateRequest struct {
	Amount              float64    `json:"amount" binding:"required,gt=0"`
	Currency            string     `json:"currency" binding:"required"`
	Category            string     `json:"category" binding:"required"`
	Description         string     `json:"description"`
	OccurredAt          time.Time  `json:"occurred_at" binding:"required"`
	Interval            string     `json:"interval" binding:"required"`
	LastRecordedPayment *time.Time `json:"last_recorded_payment"`
}

type subscriptionResponse struct {
	ID                  string    `json:"id"`
	Amount              float64   `json:"amount"`
	Currency            string    `json:"currency"`
	Category            string    `json:"category"`
	Description         string    `json:"description"`
	OccurredAt          time.Time `json:"occurred_at"`
	Interval            string    `json:"interval"`
	LastRecordedPayment time.Time `json:"last_recorded_payment"`
	CreatedAt           time.Time `json:"created_at"`
}

// MakeSubscription records a recurring expense.
func (h *ExpenseHandler) MakeSubscription(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	var req subscriptionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid subscription payload."})
		return
	}

	sub := domain.Subscription{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
		OccurredAt:  req.OccurredAt,
		Interval:    req.Interval,
	}
	if req.LastRecordedPayment != nil {
		sub.LastRecordedPayment = *req.LastRecordedPayment
	}

	created, err := h.Expenses.CreateSubscription(c.Request.Context(), userID, sub)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSubscriptionResponse(created))
}

// GetSubscriptions lists the user's subscriptions matching the query
// filters.
func (h *ExpenseHandler) GetSubscriptions(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	var req expenseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid subscription filter."})
		return
	}

	subs, err := h.Expenses.ListSubscriptions(c.Request.Context(), userID, req.filter())
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscriptionResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

// DeleteSubscription removes a recurring expense and reports its last
// recorded payment.
func (h *ExpenseHandler) DeleteSubscription(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
		return
	}

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid delete payload."})
		return
	}

	deleted, err := h.Expenses.DeleteSubscription(c.Request.Context(), userID, req.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                    deleted.ID,
		"last_recorded_payment": deleted.LastRecordedPayment,
		"deleted_at":            time.Now().UTC(),
	})
}

func (h *ExpenseHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Record not found."})
		return
	}
	zap.L().Error("expense operation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
}

func toExpenseResponse(e domain.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Amount:      e.Amount,
		Currency:    e.Currency,
		Category:    e.Category,
		Description: e.Description,
		OccurredAt:  e.OccurredAt,
		CreatedAt:   e.CreatedAt,
	}
}

func toSubscriptionResponse(s domain.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                  s.ID,
		Amount:              s.Amount,
		Currency:            s.Currency,
		Category:            s.Category,
		Description:         s.Description,
		OccurredAt:          s.OccurredAt,
		Interval:            s.Interval,
		LastRecordedPayment: s.LastRecordedPayment,
		CreatedAt:           s.CreatedAt,
	}
}
