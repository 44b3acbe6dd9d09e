package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Draft is the validated input of a send.
type Draft struct {
	Type    MessageType
	Body    string
	Media   *MediaRef
	ReplyTo *ReplySnapshot
}

type flightKey struct {
	conversationID string
	senderID       string
}

// Composer validates, constructs and durably persists new messages, then
// best-effort refreshes the parent conversation's denormalized summary.
// Sends are single-flight per (conversation, sender): a second call before the
// first resolves is rejected with ErrBusy instead of queued.
type Composer struct {
	Store  Store
	Events Events
	Logger *slog.Logger
	Now    func() time.Time

	mu       sync.Mutex
	inflight map[flightKey]struct{}
}

// Send persists one message and returns it with the store-assigned id. The
// message write is the source of truth; the follow-up summary update may land
// before, after or not at all without affecting the result. There is no
// optimistic local echo: callers observe their own message once the stream
// sync delivers the next snapshot.
func (c *Composer) Send(ctx context.Context, conversationID string, sender Profile, draft Draft) (Message, error) {
	if conversationID == "" {
		return Message{}, fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	body := strings.TrimSpace(draft.Body)
	switch draft.Type {
	case TypeText:
		if body == "" {
			return Message{}, fmt.Errorf("%w: empty message", ErrInvalidInput)
		}
	case TypeMedia:
		if draft.Media == nil || strings.TrimSpace(draft.Media.URL) == "" {
			return Message{}, fmt.Errorf("%w: media reference is required", ErrInvalidInput)
		}
	default:
		return Message{}, fmt.Errorf("%w: unknown message type %q", ErrInvalidInput, draft.Type)
	}

	key := flightKey{conversationID: conversationID, senderID: sender.ID}
	if !c.acquire(key) {
		return Message{}, fmt.Errorf("%w: conversation %s", ErrBusy, conversationID)
	}
	defer c.release(key)

	msg := Message{
		ConversationID: conversationID,
		SenderID:       sender.ID,
		SenderName:     sender.DisplayName,
		SenderAvatar:   sender.Avatar,
		Type:           draft.Type,
		Body:           body,
		CreatedAt:      c.now(),
		ReplyTo:        draft.ReplyTo,
	}
	if draft.Media != nil {
		media := *draft.Media
		msg.Media = &media
	}

	id, err := c.Store.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, fmt.Errorf("chat: persist message: %w", err)
	}
	msg.ID = id

	summary := Summary{UpdatedAt: msg.CreatedAt, LastMessagePreview: msg.Preview()}
	if err := c.Store.UpdateConversationSummary(ctx, conversationID, summary); err != nil {
		// Cosmetic denormalization only: the message is already durable, so a
		// failed summary write is logged and neither retried nor rolled back.
		if c.Logger != nil {
			c.Logger.Warn("conversation summary update failed",
				"conversation_id", conversationID, "message_id", id, "error", err)
		}
	}

	if c.Events != nil {
		c.Events.MessageSent(ctx, msg)
	}
	return msg, nil
}

func (c *Composer) acquire(key flightKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		c.inflight = make(map[flightKey]struct{})
	}
	if _, busy := c.inflight[key]; busy {
		return false
	}
	c.inflight[key] = struct{}{}
	return true
}

func (c *Composer) release(key flightKey) {
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
}

func (c *Composer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}
