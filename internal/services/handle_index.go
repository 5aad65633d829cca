package services

import (
	"context"
	"errors"
	"sync"

	"devlinks/internal/metrics"
	"devlinks/internal/repositories"
)

// HandleIndex answers whether a handle is held by another account.
//
// It scans every stored account on each check, so it always reflects the
// latest committed state. Handle changes are rare next to reads, which
// keeps the linear scan affordable.
type HandleIndex struct {
	accounts repositories.AccountRepository
	metrics  *metrics.Metrics
	mu       sync.Mutex
}

// NewHandleIndex creates a new HandleIndex over accounts.
func NewHandleIndex(accounts repositories.AccountRepository, m *metrics.Metrics) *HandleIndex {
	return &HandleIndex{
		accounts: accounts,
		metrics:  m,
	}
}

// IsTaken reports whether an account other than exceptEmail holds handle.
func (h *HandleIndex) IsTaken(ctx context.Context, handle, exceptEmail string) (bool, error) {
	emails, err := h.accounts.ListEmails(ctx)
	if err != nil {
		return false, err
	}
	for _, email := range emails {
		if email == exceptEmail {
			continue
		}
		account, err := h.accounts.Get(ctx, email)
		if err != nil {
			if errors.Is(err, repositories.ErrAccountNotFound) {
				continue
			}
			return false, err
		}
		if account.Handle == handle {
			h.metrics.ObserveHandleCheck(true)
			return true, nil
		}
	}
	h.metrics.ObserveHandleCheck(false)
	return false, nil
}

// Lock serializes handle changes: whoever holds it may check a handle and
// write it without another claim slipping in between. Call the returned
// func to release.
func (h *HandleIndex) Lock() func() {
	h.mu.Lock()
	return h.mu.Unlock
}
