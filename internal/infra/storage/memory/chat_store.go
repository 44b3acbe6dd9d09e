package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"shamsa/internal/domain/chat"
)

// ChatStore is an in-memory chat.Store with synchronous snapshot fan-out.
// It backs the dev storage mode and the chat package tests.
type ChatStore struct {
	mu            sync.Mutex
	conversations map[string]chat.Conversation
	messages      map[string]chat.Message
	convSubs      map[int]*convSubscriber
	msgSubs       map[int]*msgSubscriber
	nextSub       int

	convCreates int
	summaryErr  error
}

type convSubscriber struct {
	userID string
	fn     chat.ConversationsFunc
}

type msgSubscriber struct {
	conversationID string
	fn             chat.MessagesFunc
}

// NewChatStore builds an empty store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string]chat.Message),
		convSubs:      make(map[int]*convSubscriber),
		msgSubs:       make(map[int]*msgSubscriber),
	}
}

// CreateConversation stores c under a fresh id and notifies participant
// subscribers with their updated snapshot.
func (s *ChatStore) CreateConversation(ctx context.Context, c chat.Conversation) (string, error) {
	s.mu.Lock()
	id := uuid.NewString()
	c.ID = id
	c.Participants = append([]string(nil), c.Participants...)
	s.conversations[id] = c
	s.convCreates++
	pending := s.pendingConversationUpdatesLocked(c.Participants)
	s.mu.Unlock()

	deliver(pending)
	return id, nil
}

// UpdateConversationSummary patches the denormalized fields and notifies
// participant subscribers. Unknown ids are a silent no-op, matching a partial
// update against a vanished document.
func (s *ChatStore) UpdateConversationSummary(ctx context.Context, conversationID string, sum chat.Summary) error {
	s.mu.Lock()
	if err := s.summaryErr; err != nil {
		s.mu.Unlock()
		return err
	}
	conv, ok := s.conversations[conversationID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	conv.UpdatedAt = sum.UpdatedAt
	conv.LastMessagePreview = sum.LastMessagePreview
	s.conversations[conversationID] = conv
	pending := s.pendingConversationUpdatesLocked(conv.Participants)
	s.mu.Unlock()

	deliver(pending)
	return nil
}

// CreateMessage stores m under a fresh id and notifies subscribers of its
// conversation with the updated message snapshot.
func (s *ChatStore) CreateMessage(ctx context.Context, m chat.Message) (string, error) {
	s.mu.Lock()
	id := uuid.NewString()
	m.ID = id
	s.messages[id] = m
	pending := s.pendingMessageUpdatesLocked(m.ConversationID)
	s.mu.Unlock()

	deliver(pending)
	return id, nil
}

// SubscribeConversations registers fn and delivers the initial snapshot
// synchronously before returning.
func (s *ChatStore) SubscribeConversations(ctx context.Context, userID string, fn chat.ConversationsFunc) (chat.Subscription, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.convSubs[id] = &convSubscriber{userID: userID, fn: fn}
	snapshot := s.conversationSnapshotLocked(userID)
	s.mu.Unlock()

	fn(snapshot, nil)
	return &subscription{cancel: func() {
		s.mu.Lock()
		delete(s.convSubs, id)
		s.mu.Unlock()
	}}, nil
}

// SubscribeMessages registers fn and delivers the initial snapshot
// synchronously before returning.
func (s *ChatStore) SubscribeMessages(ctx context.Context, conversationID string, fn chat.MessagesFunc) (chat.Subscription, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.msgSubs[id] = &msgSubscriber{conversationID: conversationID, fn: fn}
	snapshot := s.messageSnapshotLocked(conversationID)
	s.mu.Unlock()

	fn(snapshot, nil)
	return &subscription{cancel: func() {
		s.mu.Lock()
		delete(s.msgSubs, id)
		s.mu.Unlock()
	}}, nil
}

// ConversationCreates reports how many conversations have been created; test
// seam for the directory idempotence and duplicate-race assertions.
func (s *ChatStore) ConversationCreates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convCreates
}

// SetSummaryError makes subsequent summary updates fail with err; test seam
// for the partial-write path. Pass nil to heal.
func (s *ChatStore) SetSummaryError(err error) {
	s.mu.Lock()
	s.summaryErr = err
	s.mu.Unlock()
}

// EmitError delivers err to every live subscriber, simulating a transport or
// permission failure on the live queries.
func (s *ChatStore) EmitError(err error) {
	s.mu.Lock()
	var pending []func()
	for _, sub := range s.convSubs {
		fn := sub.fn
		pending = append(pending, func() { fn(nil, err) })
	}
	for _, sub := range s.msgSubs {
		fn := sub.fn
		pending = append(pending, func() { fn(nil, err) })
	}
	s.mu.Unlock()
	deliver(pending)
}

func (s *ChatStore) pendingConversationUpdatesLocked(participants []string) []func() {
	var pending []func()
	for _, sub := range s.convSubs {
		for _, p := range participants {
			if p != sub.userID {
				continue
			}
			fn := sub.fn
			snapshot := s.conversationSnapshotLocked(sub.userID)
			pending = append(pending, func() { fn(snapshot, nil) })
			break
		}
	}
	return pending
}

func (s *ChatStore) pendingMessageUpdatesLocked(conversationID string) []func() {
	var pending []func()
	for _, sub := range s.msgSubs {
		if sub.conversationID != conversationID {
			continue
		}
		fn := sub.fn
		snapshot := s.messageSnapshotLocked(conversationID)
		pending = append(pending, func() { fn(snapshot, nil) })
	}
	return pending
}

func (s *ChatStore) conversationSnapshotLocked(userID string) []chat.Conversation {
	out := make([]chat.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, conv)
		}
	}
	chat.SortConversations(out)
	return out
}

func (s *ChatStore) messageSnapshotLocked(conversationID string) []chat.Message {
	out := make([]chat.Message, 0, 16)
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	chat.SortMessages(out)
	return out
}

// deliver invokes pending callbacks outside the store lock so subscribers can
// safely call back into the store.
func deliver(pending []func()) {
	for _, fn := range pending {
		fn()
	}
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
}
