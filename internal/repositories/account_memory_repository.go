package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"devlinks/internal/models"
)

// MemoryAccountRepository is an in-memory implementation of AccountRepository.
type MemoryAccountRepository struct {
	accounts map[string]*models.Account
	mu       sync.RWMutex
}

// NewMemoryAccountRepository creates a new instance of MemoryAccountRepository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{
		accounts: make(map[string]*models.Account),
	}
}

// Get returns an account by its email.
func (r *MemoryAccountRepository) Get(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[email]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", email, ErrAccountNotFound)
	}
	return account.Clone(), nil
}

// Create adds a new account.
func (r *MemoryAccountRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.Email]; ok {
		return fmt.Errorf("account %s: %w", account.Email, ErrAccountExists)
	}
	stampCreated(account, time.Now().UTC())
	r.accounts[account.Email] = account.Clone()
	return nil
}

// Update modifies an existing account.
func (r *MemoryAccountRepository) Update(_ context.Context, email string, mutate MutateFunc) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.accounts[email]
	if !ok {
		return nil, fmt.Errorf("account %s not found for update: %w", email, ErrAccountNotFound)
	}
	next, err := applyMutation(current, mutate, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	r.accounts[email] = next
	return next.Clone(), nil
}

// ListEmails returns the emails of all accounts in lexical order.
func (r *MemoryAccountRepository) ListEmails(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	emails := make([]string, 0, len(r.accounts))
	for email := range r.accounts {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails, nil
}
