package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"devlinks/internal/models"
)

// GORMAccountRepository is a GORM implementation of AccountRepository.
type GORMAccountRepository struct {
	db *gorm.DB
}

// NewGORMAccountRepository creates a new instance of GORMAccountRepository.
func NewGORMAccountRepository(db *gorm.DB) *GORMAccountRepository {
	return &GORMAccountRepository{
		db: db,
	}
}

// Get retrieves an account by its email from the database.
func (r *GORMAccountRepository) Get(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", email, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to get account by email %s: %w", email, err)
	}
	return &account, nil
}

// Create inserts the account, relying on the primary key to reject duplicates.
func (r *GORMAccountRepository) Create(ctx context.Context, account *models.Account) error {
	stampCreated(account, time.Now().UTC())
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(account)
	if res.Error != nil {
		return fmt.Errorf("failed to create account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("account %s: %w", account.Email, ErrAccountExists)
	}
	return nil
}

// Update locks the account row, applies mutate and saves the result in one transaction.
func (r *GORMAccountRepository) Update(ctx context.Context, email string, mutate MutateFunc) (*models.Account, error) {
	var updated *models.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Account
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "email = ?", email).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("account %s not found for update: %w", email, ErrAccountNotFound)
			}
			return fmt.Errorf("failed to load account %s: %w", email, err)
		}
		next, err := applyMutation(&current, mutate, time.Now().UTC())
		if err != nil {
			return err
		}
		if err := tx.Save(next).Error; err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListEmails returns the emails of every account row.
func (r *GORMAccountRepository) ListEmails(ctx context.Context) ([]string, error) {
	var emails []string
	if err := r.db.WithContext(ctx).Model(&models.Account{}).Order("email").Pluck("email", &emails).Error; err != nil {
		return nil, fmt.Errorf("failed to list account emails: %w", err)
	}
	return emails, nil
}
