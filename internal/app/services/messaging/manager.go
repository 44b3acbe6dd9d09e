// Package messaging keeps one live chat session per authenticated user and
// fans its snapshots out to any number of stream consumers.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shamsa/internal/domain/chat"
)

// Manager owns the per-user chat sessions. Sessions are created on first use
// and live until Release; their subscriptions run on a background context so
// they survive the HTTP request that created them.
type Manager struct {
	Store      chat.Store
	Identities chat.Identities
	Events     chat.Events
	Logger     *slog.Logger
	Now        func() time.Time

	// OnSubscriptionError is an optional metrics hook invoked once per
	// surfaced live-query failure.
	OnSubscriptionError func(err error)

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	session *chat.Session

	mu       sync.Mutex
	convSubs map[chan []chat.Conversation]struct{}
	msgSubs  map[chan []chat.Message]struct{}
}

// Session returns the live session for self, starting its conversation list
// sync on first use.
func (m *Manager) Session(self chat.Profile) (*chat.Session, error) {
	e, err := m.entryFor(self)
	if err != nil {
		return nil, err
	}
	return e.session, nil
}

func (m *Manager) entryFor(self chat.Profile) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]*entry{}
	}
	if e, ok := m.entries[self.ID]; ok {
		return e, nil
	}

	session := chat.NewSession(chat.SessionConfig{
		Self:       self,
		Store:      m.Store,
		Identities: m.Identities,
		Events:     m.Events,
		Logger:     m.Logger,
		Now:        m.Now,
	})
	e := &entry{
		session:  session,
		convSubs: map[chan []chat.Conversation]struct{}{},
		msgSubs:  map[chan []chat.Message]struct{}{},
	}

	// The subscription must outlive the request that triggered it.
	if err := session.Open(context.Background(), func(conversations []chat.Conversation, err error) {
		if err != nil {
			m.reportSubscriptionError(err)
			return
		}
		e.fanOutConversations(conversations)
	}); err != nil {
		session.Close()
		return nil, err
	}
	session.OnMessages(func(messages []chat.Message, err error) {
		if err != nil {
			m.reportSubscriptionError(err)
			return
		}
		e.fanOutMessages(messages)
	})

	m.entries[self.ID] = e
	return e, nil
}

// WatchConversations registers a consumer for conversation list snapshots.
// The channel holds only the latest snapshot; slow consumers observe the most
// recent state, never a backlog.
func (m *Manager) WatchConversations(self chat.Profile) (<-chan []chat.Conversation, func(), error) {
	e, err := m.entryFor(self)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan []chat.Conversation, 1)
	e.mu.Lock()
	e.convSubs[ch] = struct{}{}
	e.mu.Unlock()

	// Seed with the current snapshot so the consumer renders immediately.
	replaceLatest(ch, e.session.Conversations())

	cancel := func() {
		e.mu.Lock()
		delete(e.convSubs, ch)
		e.mu.Unlock()
	}
	return ch, cancel, nil
}

// WatchMessages registers a consumer for message snapshots of the session's
// active conversation.
func (m *Manager) WatchMessages(self chat.Profile) (<-chan []chat.Message, func(), error) {
	e, err := m.entryFor(self)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan []chat.Message, 1)
	e.mu.Lock()
	e.msgSubs[ch] = struct{}{}
	e.mu.Unlock()

	replaceLatest(ch, e.session.Messages())

	cancel := func() {
		e.mu.Lock()
		delete(e.msgSubs, ch)
		e.mu.Unlock()
	}
	return ch, cancel, nil
}

// Release closes and forgets the session of userID. Used on logout.
func (m *Manager) Release(userID string) {
	m.mu.Lock()
	e, ok := m.entries[userID]
	if ok {
		delete(m.entries, userID)
	}
	m.mu.Unlock()
	if ok {
		e.session.Close()
	}
}

// Close shuts every live session down.
func (m *Manager) Close() {
	m.mu.Lock()
	entries := m.entries
	m.entries = nil
	m.mu.Unlock()
	for _, e := range entries {
		e.session.Close()
	}
}

func (m *Manager) reportSubscriptionError(err error) {
	var subErr *chat.SubscriptionError
	if m.Logger != nil {
		if errors.As(err, &subErr) {
			m.Logger.Error("live query failed", "error", err)
		} else {
			m.Logger.Error("chat subscription error", "error", err)
		}
	}
	if m.OnSubscriptionError != nil {
		m.OnSubscriptionError(err)
	}
}

func (e *entry) fanOutConversations(conversations []chat.Conversation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.convSubs {
		replaceLatest(ch, conversations)
	}
}

func (e *entry) fanOutMessages(messages []chat.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.msgSubs {
		replaceLatest(ch, messages)
	}
}

// replaceLatest keeps the single buffered slot holding the newest snapshot.
func replaceLatest[T any](ch chan []T, snapshot []T) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
