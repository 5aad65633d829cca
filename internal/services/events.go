package services

import (
	"context"
	"encoding/json"
	"time"

	"devlinks/internal/models"
)

// Routing keys of the account events.
const (
	EventAccountRegistered     = "account.registered"
	EventAccountProfileUpdated = "account.profile_updated"
	EventAccountAvatarUpdated  = "account.avatar_updated"
)

// EventPublisher delivers an encoded event under a routing key.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// AccountEvent is the payload of every account event.
type AccountEvent struct {
	Type       string    `json:"type"`
	Email      string    `json:"email"`
	Handle     string    `json:"handle"`
	OccurredAt time.Time `json:"occurred_at"`
}

// publish is fire and forget: failures are logged, never returned.
func (s *AccountService) publish(ctx context.Context, eventType string, account *models.Account) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(AccountEvent{
		Type:       eventType,
		Email:      account.Email,
		Handle:     account.Handle,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn(ctx, "failed to encode account event", "type", eventType, "error", err)
		return
	}
	if err := s.events.Publish(ctx, eventType, body); err != nil {
		s.logger.Warn(ctx, "failed to publish account event", "type", eventType, "error", err)
	}
}
