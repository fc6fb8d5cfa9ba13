package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hirokiuemura2/GDGTeamF1/internal/domain"
	"github.com/hirokiuemura2/GDGTeamF1/internal/repository"
)

// ExpenseService manages one-off expenses and recurring subscriptions.
// Every operation is scoped to the authenticated user.
type ExpenseService struct {
	expenses repository.ExpenseRepository
	logger   *zap.Logger
}

func NewExpenseService(expenses repository.ExpenseRepository, logger *zap.Logger) *ExpenseService {
	return &ExpenseService{expenses: expenses, logger: logger}
}

// CreateExpense records a spending entry for the user.
func (s *ExpenseService) CreateExpense(ctx context.Context, userID string, expense domain.Expense) (domain.Expense, error) {
	ctx, span := s.startSpan(ctx, "ExpenseService.CreateExpense")
	defer span.End()

	if err := validateExpenseFields(expense.Amount, expense.Currency, expense.Category); err != nil {
		return domain.Expense{}, err
	}

	expense.UserID = userID
	created, err := s.expenses.CreateExpense(ctx, expense)
	if err != nil {
		span.RecordError(err)
		return domain.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return created, nil
}

// DeleteExpense removes a spending entry owned by the user.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	ctx, span := s.startSpan(ctx, "ExpenseService.DeleteExpense")
	defer span.End()

	if err := s.expenses.DeleteExpense(ctx, userID, expenseID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// ListExpenses returns the user's expenses matching the filter, newest
// first.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string, filter domain.ExpenseFilter) ([]domain.Expense, error) {
	ctx, span := s.startSpan(ctx, "ExpenseService.ListExpenses")
	defer span.End()

	expenses, err := s.expenses.ListExpenses(ctx, userID, filter)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// CreateSubscription records a recurring expense. LastRecordedPayment
// defaults to the occurrence time.
func (s *ExpenseService) CreateSubscription(ctx context.Context, userID string, sub domain.Subscription) (domain.Subscription, error) {
	ctx, span := s.startSpan(ctx, "ExpenseService.CreateSubscription")
	defer span.End()

	if err := validateExpenseFields(sub.Amount, sub.Currency, sub.Category); err != nil {
		return domain.Subscription{}, err
	}
	if strings.TrimSpace(sub.Interval) == "" {
		return domain.Subscription{}, fmt.Errorf("interval is required")
	}

	sub.UserID = userID
	created, err := s.expenses.CreateSubscription(ctx, sub)
	if err != nil {
		span.RecordError(err)
		return domain.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return created, nil
}

// DeleteSubscription removes a recurring expense and returns the deleted
// record so callers can surface the last recorded payment.
func (s *ExpenseService) DeleteSubscription(ctx context.Context, userID, subscriptionID string) (domain.Subscription, error) {
	ctx, span := s.startSpan(ctx, "ExpenseService.DeleteSubscription")
	defer span.End()

	deleted, err := s.expenses.DeleteSubscription(ctx, userID, subscriptionID)
	if err != nil {
		span.RecordError(err)
		return domain.Subscription{}, fmt.Errorf("delete subscription: %w", err)
	}
	return deleted, nil
}

// ListSubscriptions returns the user's subscriptions matching the filter.
func (s *ExpenseService) ListSubscriptions(ctx context.Context, userID string, filter domain.ExpenseFilter) ([]domain.Subscription, error) {
	ctx, span := s.startSpan(ctx, "ExpenseService.ListSubscriptions")
	defer span.End()

	subs, err := s.expenses.ListSubscriptions(ctx, userID, filter)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *ExpenseService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("expense-service").Start(ctx, name)
}

func validateExpenseFields(amount float64, currency, category string) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if strings.TrimSpace(currency) == "" {
		return fmt.Errorf("currency is required")
	}
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("category is required")
	}
	return nil
}
