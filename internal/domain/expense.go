package domain

import "time"

// Expense is a single spending record owned by one user.
type Expense struct {
	ID          string
	UserID      string
	Amount      float64
	Currency    string
	Category    string
	Description string
	OccurredAt  time.Time
	CreatedAt   time.Time
}

// Subscription is a recurring expense. LastRecordedPayment defaults to
// OccurredAt when the caller does not supply one.
type Subscription struct {
	ID                  string
	UserID              string
	Amount              float64
	Currency            string
	Category            string
	Description         string
	OccurredAt          time.Time
	Interval            string
	LastRecordedPayment time.Time
	CreatedAt           time.Time
}

// ExpenseFilter narrows expense and subscription listings. Zero values
// mean "no constraint". OccurredOn expands to the whole UTC day and takes
// precedence over the before/after bounds.
type ExpenseFilter struct {
	MinAmount      *float64
	MaxAmount      *float64
	Currencies     []string
	Categories     []string
	OccurredBefore *time.Time
	OccurredAfter  *time.Time
	OccurredOn     *time.Time
	MinInterval    string
	MaxInterval    string
	Limit          int
}

// NormalizeOccurredOn resolves OccurredOn into before/after bounds
// covering the full day.
func (f *ExpenseFilter) NormalizeOccurredOn() {
	if f.OccurredOn == nil {
		return
	}
	day := f.OccurredOn.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)
	f.OccurredAfter = &start
	f.OccurredBefore = &end
	f.OccurredOn = nil
}
