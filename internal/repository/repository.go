package repository

import (
	"context"

	"github.com/hirokiuemura2/GDGTeamF1/internal/domain"
)

// UserRepository is the credential store consumed by the auth service.
// Lookups are exact-match only; misses surface pgx.ErrNoRows in the error
// chain.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByGoogleSub(ctx context.Context, sub string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// ExpenseRepository persists expenses and subscriptions, both scoped to a
// single owning user.
type ExpenseRepository interface {
	CreateExpense(ctx context.Context, expense domain.Expense) (domain.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID string) error
	ListExpenses(ctx context.Context, userID string, filter domain.ExpenseFilter) ([]domain.Expense, error)
	CreateSubscription(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
	DeleteSubscription(ctx context.Context, userID, subscriptionID string) (domain.Subscription, error)
	ListSubscriptions(ctx context.Context, userID string, filter domain.ExpenseFilter) ([]domain.Subscription, error)
}
