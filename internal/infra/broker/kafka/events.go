package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"shamsa/internal/domain/chat"
	"shamsa/internal/domain/user"
)

const (
	TopicMessageSent    = "shamsa.chat.message.sent"
	TopicUserRegistered = "shamsa.user.registered"
)

// publisher is what EventPublisher needs from Producer; kept narrow so tests
// can substitute a recorder.
type publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// EventPublisher emits domain events onto the broker. All publishes are
// best-effort: a broker failure is logged and swallowed, it never bubbles into
// the operation that triggered the event.
type EventPublisher struct {
	Producer publisher
	Logger   *slog.Logger
}

type messageSentEvent struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	Type           string `json:"type"`
	CreatedAt      int64  `json:"created_at"`
}

func (p *EventPublisher) MessageSent(ctx context.Context, m chat.Message) {
	if p == nil || p.Producer == nil {
		return
	}
	payload, err := json.Marshal(messageSentEvent{
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		SenderID:       m.SenderID,
		Type:           string(m.Type),
		CreatedAt:      m.CreatedAt.UnixMilli(),
	})
	if err != nil {
		p.log().Error("encode message.sent event", "error", err)
		return
	}
	if err := p.Producer.Publish(ctx, TopicMessageSent, m.ConversationID, payload, nil); err != nil {
		p.log().Warn("publish message.sent event", "error", err, "conversation_id", m.ConversationID)
	}
}

type userRegisteredEvent struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

func (p *EventPublisher) UserRegistered(ctx context.Context, u *user.User) {
	if p == nil || p.Producer == nil || u == nil {
		return
	}
	payload, err := json.Marshal(userRegisteredEvent{
		UserID:      string(u.ID),
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt.UnixMilli(),
	})
	if err != nil {
		p.log().Error("encode user.registered event", "error", err)
		return
	}
	if err := p.Producer.Publish(ctx, TopicUserRegistered, string(u.ID), payload, nil); err != nil {
		p.log().Warn("publish user.registered event", "error", err, "user_id", u.ID)
	}
}

func (p *EventPublisher) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

var _ chat.Events = (*EventPublisher)(nil)
