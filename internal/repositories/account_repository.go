package repositories

import (
	"context"
	"errors"
	"time"

	"devlinks/internal/models"
)

var (
	// ErrAccountNotFound is returned when no account is stored under an email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by Create when the email is already taken.
	ErrAccountExists = errors.New("account already exists")
)

// MutateFunc changes an account in place during Update. Returning an error
// aborts the update and leaves the stored record untouched.
type MutateFunc func(account *models.Account) error

// AccountRepository defines the interface for account data access.
// Every backend must behave identically, including the errors it returns.
type AccountRepository interface {
	// Get returns a copy of the account stored under email.
	Get(ctx context.Context, email string) (*models.Account, error)
	// Create stores a new account, failing with ErrAccountExists if the email is present.
	Create(ctx context.Context, account *models.Account) error
	// Update applies mutate to the latest stored state of the account and
	// persists the result. The email of the account cannot be changed.
	Update(ctx context.Context, email string, mutate MutateFunc) (*models.Account, error)
	// ListEmails returns the emails of every stored account.
	ListEmails(ctx context.Context) ([]string, error)
}

func stampCreated(a *models.Account, now time.Time) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}

func applyMutation(current *models.Account, mutate MutateFunc, now time.Time) (*models.Account, error) {
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Email = current.Email
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = now
	return next, nil
}
