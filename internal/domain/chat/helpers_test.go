package chat_test

import (
	"context"
	"sync"
	"time"

	"shamsa/internal/domain/chat"
)

// stubStore gives tests full control over write results and snapshot delivery
// timing, which the in-memory store's synchronous fan-out cannot simulate.
type stubStore struct {
	mu sync.Mutex

	createConversation func(chat.Conversation) (string, error)
	updateSummary      func(string, chat.Summary) error
	createMessage      func(chat.Message) (string, error)

	convFns map[string]chat.ConversationsFunc
	msgFns  map[string]chat.MessagesFunc
}

func newStubStore() *stubStore {
	return &stubStore{
		convFns: make(map[string]chat.ConversationsFunc),
		msgFns:  make(map[string]chat.MessagesFunc),
	}
}

func (s *stubStore) CreateConversation(ctx context.Context, c chat.Conversation) (string, error) {
	if s.createConversation != nil {
		return s.createConversation(c)
	}
	return "conv-1", nil
}

func (s *stubStore) UpdateConversationSummary(ctx context.Context, id string, sum chat.Summary) error {
	if s.updateSummary != nil {
		return s.updateSummary(id, sum)
	}
	return nil
}

func (s *stubStore) CreateMessage(ctx context.Context, m chat.Message) (string, error) {
	if s.createMessage != nil {
		return s.createMessage(m)
	}
	return "msg-1", nil
}

func (s *stubStore) SubscribeConversations(ctx context.Context, userID string, fn chat.ConversationsFunc) (chat.Subscription, error) {
	s.mu.Lock()
	s.convFns[userID] = fn
	s.mu.Unlock()
	fn(nil, nil)
	return stubSub{cancel: func() {
		s.mu.Lock()
		delete(s.convFns, userID)
		s.mu.Unlock()
	}}, nil
}

func (s *stubStore) SubscribeMessages(ctx context.Context, conversationID string, fn chat.MessagesFunc) (chat.Subscription, error) {
	s.mu.Lock()
	s.msgFns[conversationID] = fn
	s.mu.Unlock()
	fn(nil, nil)
	return stubSub{cancel: func() {
		s.mu.Lock()
		delete(s.msgFns, conversationID)
		s.mu.Unlock()
	}}, nil
}

// pushConversations drives the conversations subscription of userID by hand.
func (s *stubStore) pushConversations(userID string, list []chat.Conversation, err error) {
	s.mu.Lock()
	fn := s.convFns[userID]
	s.mu.Unlock()
	if fn != nil {
		fn(list, err)
	}
}

// pushMessages drives the message subscription of conversationID by hand. It
// returns the callback so tests can replay a stale delivery even after the
// subscription was replaced.
func (s *stubStore) pushMessages(conversationID string, list []chat.Message, err error) chat.MessagesFunc {
	s.mu.Lock()
	fn := s.msgFns[conversationID]
	s.mu.Unlock()
	if fn != nil {
		fn(list, err)
	}
	return fn
}

type stubSub struct{ cancel func() }

func (s stubSub) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// stubIdentities resolves profiles from a map; missing ids fail with
// chat.ErrNotFound like the real user repository adapter.
type stubIdentities struct {
	mu       sync.Mutex
	profiles map[string]chat.Profile
	err      error
	lookups  int
}

func newStubIdentities(profiles ...chat.Profile) *stubIdentities {
	m := make(map[string]chat.Profile, len(profiles))
	for _, p := range profiles {
		m[p.ID] = p
	}
	return &stubIdentities{profiles: m}
}

func (s *stubIdentities) Lookup(ctx context.Context, id string) (chat.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return chat.Profile{}, s.err
	}
	p, ok := s.profiles[id]
	if !ok {
		return chat.Profile{}, chat.ErrNotFound
	}
	return p, nil
}

func at(sec int) time.Time {
	return time.Date(2026, time.March, 1, 12, 0, sec, 0, time.UTC)
}
