package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"devlinks/internal/models"
)

// GORMStore keeps sessions in the sessions table and checks expiry on read.
type GORMStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewGORMStore creates a new instance of GORMStore.
func NewGORMStore(db *gorm.DB, ttl time.Duration, opts ...Option) *GORMStore {
	o := buildOptions(opts)
	return &GORMStore{
		db:  db,
		ttl: ttl,
		now: o.now,
	}
}

// Issue stores a new session row for email.
func (s *GORMStore) Issue(ctx context.Context, email string) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	session := models.Session{
		Token:     token,
		Email:     email,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Resolve returns the email of an unexpired session row. Expired rows are
// deleted when they are read.
func (s *GORMStore) Resolve(ctx context.Context, token string) (string, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		if err := s.db.WithContext(ctx).Delete(&models.Session{}, "token = ?", token).Error; err != nil {
			// The token is still rejected; the row is retried on the next read.
			return "", errors.Join(ErrSessionNotFound, fmt.Errorf("failed to purge expired session: %w", err))
		}
		return "", ErrSessionNotFound
	}
	return session.Email, nil
}
