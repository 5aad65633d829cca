package services

import (
	"context"
	"errors"

	"devlinks/internal/logging"
	"devlinks/internal/models"
	"devlinks/internal/repositories"
)

// ProfileResolver serves the public, read-only view of profiles.
type ProfileResolver struct {
	accounts repositories.AccountRepository
	logger   logging.Logger
}

// NewProfileResolver creates a new ProfileResolver.
func NewProfileResolver(accounts repositories.AccountRepository, logger logging.Logger) *ProfileResolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ProfileResolver{
		accounts: accounts,
		logger:   logger,
	}
}

// ResolveByHandle returns the profile of the first account, in email
// order, whose handle equals handle. The result never carries the email
// or the credential.
func (r *ProfileResolver) ResolveByHandle(ctx context.Context, handle string) (*models.PublicProfile, error) {
	if handle == "" {
		return nil, notFoundError("profile not found")
	}
	emails, err := r.accounts.ListEmails(ctx)
	if err != nil {
		r.logger.Error(ctx, "failed to list accounts", "error", err)
		return nil, storageError("list accounts", err)
	}
	for _, email := range emails {
		account, err := r.accounts.Get(ctx, email)
		if err != nil {
			if errors.Is(err, repositories.ErrAccountNotFound) {
				continue
			}
			r.logger.Error(ctx, "failed to load account", "email", email, "error", err)
			return nil, storageError("load account", err)
		}
		if account.Handle == handle {
			profile := account.Profile()
			return &profile, nil
		}
	}
	return nil, notFoundError("profile not found")
}
