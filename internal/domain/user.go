package domain

import "time"

// Status describes the lifecycle state of a user account. New accounts
// start as StatusPending; activation and deactivation are administrative
// transitions handled outside this service.
type Status string

const (
	StatusPending     Status = "pending"
	StatusActivated   Status = "activated"
	StatusDeactivated Status = "deactivated"
)

// User is the durable identity record. An account is reachable either by
// email (password login) or by GoogleSub (federated login); at least one
// of the two must be set.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Status       Status
	Email        string
	PasswordHash string
	GoogleSub    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasIdentifier reports whether the record can be reached by some login
// method.
func (u User) HasIdentifier() bool {
	return u.Email != "" || u.GoogleSub != ""
}
