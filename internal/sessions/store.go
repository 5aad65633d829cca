// Package sessions binds opaque bearer tokens to account emails for a
// limited time. Expired and unknown tokens are reported the same way.
package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// ErrSessionNotFound is returned by Resolve for unknown or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// Store issues and resolves session tokens.
type Store interface {
	// Issue creates a fresh token bound to email.
	Issue(ctx context.Context, email string) (string, error)
	// Resolve returns the email bound to token, or ErrSessionNotFound.
	Resolve(ctx context.Context, token string) (string, error)
}

// Option configures a Store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewToken returns 128 bits of crypto/rand encoded as hex.
func NewToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
