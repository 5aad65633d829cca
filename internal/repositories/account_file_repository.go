package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"devlinks/internal/models"
)

// FileAccountRepository keeps every account in a single JSON array on disk.
// Each write replaces the whole file, so all writers are serialized by mu.
type FileAccountRepository struct {
	path string
	mu   sync.RWMutex
}

// NewFileAccountRepository creates the data file (holding an empty array)
// if it does not exist yet.
func NewFileAccountRepository(path string) (*FileAccountRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	r := &FileAccountRepository{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := r.writeAll(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat data file %s: %w", path, err)
	}
	return r, nil
}

// Get reads the file and returns the account stored under email.
func (r *FileAccountRepository) Get(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts, err := r.readAll()
	if err != nil {
		return nil, err
	}
	if i := indexOf(accounts, email); i >= 0 {
		return accounts[i], nil
	}
	return nil, fmt.Errorf("account %s: %w", email, ErrAccountNotFound)
}

// Create appends the account and rewrites the file.
func (r *FileAccountRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.readAll()
	if err != nil {
		return err
	}
	if indexOf(accounts, account.Email) >= 0 {
		return fmt.Errorf("account %s: %w", account.Email, ErrAccountExists)
	}
	stampCreated(account, time.Now().UTC())
	accounts = append(accounts, account.Clone())
	return r.writeAll(accounts)
}

// Update rewrites the file with the mutated account.
func (r *FileAccountRepository) Update(_ context.Context, email string, mutate MutateFunc) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts, err := r.readAll()
	if err != nil {
		return nil, err
	}
	i := indexOf(accounts, email)
	if i < 0 {
		return nil, fmt.Errorf("account %s not found for update: %w", email, ErrAccountNotFound)
	}
	next, err := applyMutation(accounts[i], mutate, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	accounts[i] = next
	if err := r.writeAll(accounts); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// ListEmails returns the emails of all accounts in lexical order.
func (r *FileAccountRepository) ListEmails(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts, err := r.readAll()
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(accounts))
	for _, a := range accounts {
		emails = append(emails, a.Email)
	}
	sort.Strings(emails)
	return emails, nil
}

func (r *FileAccountRepository) readAll() ([]*models.Account, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %s: %w", r.path, err)
	}
	var accounts []*models.Account
	if len(data) == 0 {
		return accounts, nil
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode data file %s: %w", r.path, err)
	}
	return accounts, nil
}

// writeAll replaces the data file through a temp file and rename, so
// readers never observe a partially written snapshot.
func (r *FileAccountRepository) writeAll(accounts []*models.Account) error {
	if accounts == nil {
		accounts = []*models.Account{}
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".users-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp data file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp data file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp data file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp data file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace data file %s: %w", r.path, err)
	}
	return nil
}

func indexOf(accounts []*models.Account, email string) int {
	for i, a := range accounts {
		if a.Email == email {
			return i
		}
	}
	return -1
}
