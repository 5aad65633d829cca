package sessions

import (
	"context"
	"sync"
	"time"

	"devlinks/internal/models"
)

// sweepInterval is the minimum time between two sweeps of expired sessions.
const sweepInterval = time.Minute

// MemoryStore keeps sessions in process memory and checks expiry on read.
// Expired sessions that are never read again are swept out during Issue.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]models.Session
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore(ttl time.Duration, opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		sessions:  make(map[string]models.Session),
		ttl:       ttl,
		now:       o.now,
		lastSweep: o.now(),
	}
}

// Issue binds a new token to email.
func (s *MemoryStore) Issue(_ context.Context, email string) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweepLocked(now)
	}
	s.sessions[token] = models.Session{
		Token:     token,
		Email:     email,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	return token, nil
}

// Resolve returns the email bound to an unexpired token.
func (s *MemoryStore) Resolve(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return "", ErrSessionNotFound
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, token)
		return "", ErrSessionNotFound
	}
	return session.Email, nil
}

// Len returns the number of sessions held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for token, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
	s.lastSweep = now
}
