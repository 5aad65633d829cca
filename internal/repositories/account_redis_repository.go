package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"devlinks/internal/models"
)

const (
	accountKeyPrefix = "user:"
	accountEmailsKey = "users:emails"

	// maxUpdateRetries bounds optimistic transaction retries under contention.
	maxUpdateRetries = 16
)

// RedisAccountRepository stores each account as JSON under user:<email> and
// tracks every email in the users:emails set.
type RedisAccountRepository struct {
	client redis.UniversalClient
}

// NewRedisAccountRepository creates a new instance of RedisAccountRepository.
func NewRedisAccountRepository(client redis.UniversalClient) *RedisAccountRepository {
	return &RedisAccountRepository{
		client: client,
	}
}

func accountKey(email string) string {
	return accountKeyPrefix + email
}

// Get retrieves an account by its email.
func (r *RedisAccountRepository) Get(ctx context.Context, email string) (*models.Account, error) {
	data, err := r.client.Get(ctx, accountKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("account %s: %w", email, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to get account %s: %w", email, err)
	}
	return decodeAccount(data)
}

// Create stores the account only if no value exists under its key yet.
// The email is indexed before the record is written, so a stored record is
// always listed; an index entry without a record is skipped by readers.
func (r *RedisAccountRepository) Create(ctx context.Context, account *models.Account) error {
	stampCreated(account, time.Now().UTC())
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	if err := r.client.SAdd(ctx, accountEmailsKey, account.Email).Err(); err != nil {
		return fmt.Errorf("failed to index account %s: %w", account.Email, err)
	}
	created, err := r.client.SetNX(ctx, accountKey(account.Email), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.Email, err)
	}
	if !created {
		return fmt.Errorf("account %s: %w", account.Email, ErrAccountExists)
	}
	return nil
}

// Update runs mutate inside a WATCH/MULTI transaction on the account key and
// retries when another writer commits first.
func (r *RedisAccountRepository) Update(ctx context.Context, email string, mutate MutateFunc) (*models.Account, error) {
	key := accountKey(email)
	var updated *models.Account

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("account %s not found for update: %w", email, ErrAccountNotFound)
			}
			return fmt.Errorf("failed to read account %s: %w", email, err)
		}
		current, err := decodeAccount(data)
		if err != nil {
			return err
		}
		next, err := applyMutation(current, mutate, time.Now().UTC())
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode account: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("failed to update account %s: too many concurrent writers", email)
}

// ListEmails returns the members of the users:emails set in lexical order.
func (r *RedisAccountRepository) ListEmails(ctx context.Context) ([]string, error) {
	emails, err := r.client.SMembers(ctx, accountEmailsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list account emails: %w", err)
	}
	sort.Strings(emails)
	return emails, nil
}

func decodeAccount(data []byte) (*models.Account, error) {
	var account models.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &account, nil
}
