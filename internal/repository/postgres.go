package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirokiuemura2/GDGTeamF1/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository    = (*PostgresUserRepo)(nil)
	_ ExpenseRepository = (*PostgresExpenseRepo)(nil)
)

const uniqueViolation = "23505"

// PostgresUserRepo implements UserRepository on a pgx pool.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const insertUserSQL = `INSERT INTO users (id, first_name, last_name, status, email, password_hash, google_sub, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $8)
RETURNING id, first_name, last_name, status, COALESCE(email, ''), COALESCE(password_hash, ''), COALESCE(google_sub, ''), created_at, updated_at`

func (r *PostgresUserRepo) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	row := r.db.QueryRow(ctx, insertUserSQL,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Status,
		user.Email,
		user.PasswordHash,
		user.GoogleSub,
		now,
	)

	inserted, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, domain.ErrIdentityExists
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return inserted, nil
}

const selectUserSQL = `SELECT id, first_name, last_name, status, COALESCE(email, ''), COALESCE(password_hash, ''), COALESCE(google_sub, ''), created_at, updated_at
FROM users`

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) FindByGoogleSub(ctx context.Context, sub string) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE google_sub = $1`, sub)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by google sub: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRow(ctx, selectUserSQL+` WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete user: %w", pgx.ErrNoRows)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Status,
		&user.Email,
		&user.PasswordHash,
		&user.GoogleSub,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// PostgresExpenseRepo implements ExpenseRepository on a pgx pool.
type PostgresExpenseRepo struct {
	db *pgxpool.Pool
}

func NewPostgresExpenseRepo(pool *pgxpool.Pool) *PostgresExpenseRepo {
	return &PostgresExpenseRepo{db: pool}
}

const insertExpenseSQL = `INSERT INTO expenses (id, user_id, amount, currency, category, description, occurred_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, user_id, amount, currency, category, description, occurred_at, created_at`

func (r *PostgresExpenseRepo) CreateExpense(ctx context.Context, expense domain.Expense) (domain.Expense, error) {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	row := r.db.QueryRow(ctx, insertExpenseSQL,
		expense.ID,
		expense.UserID,
		expense.Amount,
		expense.Currency,
		expense.Category,
		expense.Description,
		expense.OccurredAt,
		time.Now().UTC(),
	)

	var created domain.Expense
	if err := row.Scan(
		&created.ID,
		&created.UserID,
		&created.Amount,
		&created.Currency,
		&created.Category,
		&created.Description,
		&created.OccurredAt,
		&created.CreatedAt,
	); err != nil {
		return domain.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return created, nil
}

func (r *PostgresExpenseRepo) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, expenseID, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete expense: %w", pgx.ErrNoRows)
	}
	return nil
}

func (r *PostgresExpenseRepo) ListExpenses(ctx context.Context, userID string, filter domain.ExpenseFilter) ([]domain.Expense, error) {
	query, args := buildExpenseQuery(
		`SELECT id, user_id, amount, currency, category, description, occurred_at, created_at FROM expenses`,
		userID, filter, false,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []domain.Expense
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.Category, &e.Description, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

const insertSubscriptionSQL = `INSERT INTO subscriptions (id, user_id, amount, currency, category, description, occurred_at, pay_interval, last_recorded_payment, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, user_id, amount, currency, category, description, occurred_at, pay_interval, last_recorded_payment, created_at`

func (r *PostgresExpenseRepo) CreateSubscription(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.LastRecordedPayment.IsZero() {
		sub.LastRecordedPayment = sub.OccurredAt
	}
	row := r.db.QueryRow(ctx, insertSubscriptionSQL,
		sub.ID,
		sub.UserID,
		sub.Amount,
		sub.Currency,
		sub.Category,
		sub.Description,
		sub.OccurredAt,
		sub.Interval,
		sub.LastRecordedPayment,
		time.Now().UTC(),
	)

	created, err := scanSubscription(row)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}
	return created, nil
}

func (r *PostgresExpenseRepo) DeleteSubscription(ctx context.Context, userID, subscriptionID string) (domain.Subscription, error) {
	row := r.db.QueryRow(ctx, `DELETE FROM subscriptions WHERE id = $1 AND user_id = $2
RETURNING id, user_id, amount, currency, category, description, occurred_at, pay_interval, last_recorded_payment, created_at`,
		subscriptionID, userID)

	deleted, err := scanSubscription(row)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("delete subscription: %w", err)
	}
	return deleted, nil
}

func (r *PostgresExpenseRepo) ListSubscriptions(ctx context.Context, userID string, filter domain.ExpenseFilter) ([]domain.Subscription, error) {
	query, args := buildExpenseQuery(
		`SELECT id, user_id, amount, currency, category, description, occurred_at, pay_interval, last_recorded_payment, created_at FROM subscriptions`,
		userID, filter, true,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Amount, &s.Currency, &s.Category, &s.Description, &s.OccurredAt, &s.Interval, &s.LastRecordedPayment, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func scanSubscription(row pgx.Row) (domain.Subscription, error) {
	var s domain.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Amount,
		&s.Currency,
		&s.Category,
		&s.Description,
		&s.OccurredAt,
		&s.Interval,
		&s.LastRecordedPayment,
		&s.CreatedAt,
	)
	if err != nil {
		return domain.Subscription{}, err
	}
	return s, nil
}

// buildExpenseQuery appends WHERE clauses for each set filter field and
// orders results by occurrence time, newest first.
func buildExpenseQuery(base, userID string, filter domain.ExpenseFilter, withInterval bool) (string, []any) {
	filter.NormalizeOccurredOn()

	var sb strings.Builder
	sb.WriteString(base)

	args := []any{userID}
	sb.WriteString(" WHERE user_id = $1")

	add := func(clause string, value any) {
		args = append(args, value)
		sb.WriteString(" AND ")
		sb.WriteString(clause)
		sb.WriteString("$")
		sb.WriteString(strconv.Itoa(len(args)))
	}

	if filter.MinAmount != nil {
		add("amount >= ", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("amount <= ", *filter.MaxAmount)
	}
	if len(filter.Currencies) > 0 {
		add("currency = ANY(", filter.Currencies)
		sb.WriteString(")")
	}
	if len(filter.Categories) > 0 {
		add("category = ANY(", filter.Categories)
		sb.WriteString(")")
	}
	if filter.OccurredAfter != nil {
		add("occurred_at >= ", *filter.OccurredAfter)
	}
	if filter.OccurredBefore != nil {
		add("occurred_at <= ", *filter.OccurredBefore)
	}
	if withInterval {
		if filter.MinInterval != "" {
			add("pay_interval >= ", filter.MinInterval)
		}
		if filter.MaxInterval != "" {
			add("pay_interval <= ", filter.MaxInterval)
		}
	}

	sb.WriteString(" ORDER BY occurred_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(" LIMIT $")
		sb.WriteString(strconv.Itoa(len(args)))
	}

	return sb.String(), args
}
