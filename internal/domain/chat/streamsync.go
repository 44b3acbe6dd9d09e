package chat

import (
	"context"
	"fmt"
	"sync"
)

// StreamSync mirrors the message stream of a single conversation. Snapshots
// are re-sorted defensively so the local list is always in (CreatedAt, ID)
// ascending order no matter what the transport delivered.
type StreamSync struct {
	store          Store
	conversationID string

	mu        sync.Mutex
	current   []Message
	sub       Subscription
	cancelled bool
}

// NewStreamSync builds an idle sync bound to one conversation id.
func NewStreamSync(store Store, conversationID string) *StreamSync {
	return &StreamSync{store: store, conversationID: conversationID}
}

// ConversationID reports which conversation this sync was opened for. Callers
// switching conversations compare it against their currently selected id to
// discard late snapshots from a superseded subscription.
func (s *StreamSync) ConversationID() string { return s.conversationID }

// Start opens the live message query. Semantics match ListSync.Start: whole
// snapshots, error delivery with last-known-good retained.
func (s *StreamSync) Start(ctx context.Context, onUpdate MessagesFunc) error {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return ErrCancelled
	}
	if s.sub != nil {
		s.mu.Unlock()
		return fmt.Errorf("chat: stream sync already started")
	}
	s.mu.Unlock()

	sub, err := s.store.SubscribeMessages(ctx, s.conversationID, func(messages []Message, err error) {
		s.mu.Lock()
		if s.cancelled {
			s.mu.Unlock()
			return
		}
		if err != nil {
			last := s.current
			s.mu.Unlock()
			if onUpdate != nil {
				onUpdate(last, &SubscriptionError{Err: err})
			}
			return
		}
		list := make([]Message, len(messages))
		copy(list, messages)
		SortMessages(list)
		s.current = list
		s.mu.Unlock()
		if onUpdate != nil {
			onUpdate(list, nil)
		}
	})
	if err != nil {
		return fmt.Errorf("chat: subscribe messages: %w", err)
	}

	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		sub.Cancel()
		return ErrCancelled
	}
	s.sub = sub
	s.mu.Unlock()
	return nil
}

// Current returns the last delivered snapshot.
func (s *StreamSync) Current() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.current))
	copy(out, s.current)
	return out
}

// Cancel stops delivery; idempotent, see ListSync.Cancel.
func (s *StreamSync) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}
