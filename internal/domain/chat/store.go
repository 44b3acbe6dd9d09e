package chat

import (
	"context"
	"time"
)

// Subscription is the cancellable handle of a live query. Cancel is idempotent
// and best-effort immediate: a callback already in flight may still fire once
// after Cancel returns, and consumers must discard it themselves.
type Subscription interface {
	Cancel()
}

// ConversationsFunc receives the full current result set of a conversations
// query, ordered by UpdatedAt descending, on the initial snapshot and on every
// subsequent change. A non-nil error reports a subscription failure; the list
// argument is then the last delivered snapshot, not cleared.
type ConversationsFunc func(conversations []Conversation, err error)

// MessagesFunc is the message-stream counterpart of ConversationsFunc; the
// snapshot is ordered by (CreatedAt, ID) ascending.
type MessagesFunc func(messages []Message, err error)

// Summary is the denormalized last-activity state written onto a conversation
// after a message is persisted.
type Summary struct {
	UpdatedAt          time.Time
	LastMessagePreview string
}

// Store abstracts the remote document database: plain writes plus a
// subscription primitive that delivers whole snapshots. The store is the
// system of record; everything the syncs cache locally is rebuilt wholesale
// from its snapshots.
//
// Delivery contract: at-least-once, per-subscription recency ordering (a
// subscription never observes a snapshot older than one it already received),
// no ordering guarantee across subscriptions.
type Store interface {
	// CreateConversation persists c and returns the store-assigned id.
	CreateConversation(ctx context.Context, c Conversation) (string, error)
	// UpdateConversationSummary best-effort updates the denormalized summary
	// fields of an existing conversation.
	UpdateConversationSummary(ctx context.Context, conversationID string, s Summary) error
	// CreateMessage persists m and returns the store-assigned id.
	CreateMessage(ctx context.Context, m Message) (string, error)
	// SubscribeConversations opens a live query for every conversation that
	// includes userID and invokes fn with the initial snapshot and on every
	// change until the subscription is cancelled.
	SubscribeConversations(ctx context.Context, userID string, fn ConversationsFunc) (Subscription, error)
	// SubscribeMessages opens a live query scoped to one conversation.
	SubscribeMessages(ctx context.Context, conversationID string, fn MessagesFunc) (Subscription, error)
}

// Events receives best-effort notifications after a message is durably
// persisted. Failures are logged by the caller and never affect the send.
type Events interface {
	MessageSent(ctx context.Context, m Message)
}
