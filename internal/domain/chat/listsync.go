package chat

import (
	"context"
	"fmt"
	"sync"
)

// ListSync keeps a local ordered view of every conversation that includes one
// user, rebuilt wholesale from each store snapshot. It never diffs: the local
// list is correct exactly when it equals the latest snapshot.
type ListSync struct {
	store Store

	mu        sync.Mutex
	current   []Conversation
	sub       Subscription
	cancelled bool
}

// NewListSync builds an idle sync; Start opens the subscription.
func NewListSync(store Store) *ListSync {
	return &ListSync{store: store}
}

// Start subscribes to the user's conversations. onUpdate is invoked with the
// initial snapshot and on every change, newest activity first. On a
// subscription failure onUpdate receives the last-known-good list together
// with a non-nil *SubscriptionError; the list is never cleared implicitly.
func (s *ListSync) Start(ctx context.Context, userID string, onUpdate ConversationsFunc) error {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return ErrCancelled
	}
	if s.sub != nil {
		s.mu.Unlock()
		return fmt.Errorf("chat: list sync already started")
	}
	s.mu.Unlock()

	sub, err := s.store.SubscribeConversations(ctx, userID, func(conversations []Conversation, err error) {
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
		list := make([]Conversation, len(conversations))
		copy(list, conversations)
		SortConversations(list)
		s.current = list
		s.mu.Unlock()
		if onUpdate != nil {
			onUpdate(list, nil)
		}
	})
	if err != nil {
		return fmt.Errorf("chat: subscribe conversations: %w", err)
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
func (s *ListSync) Current() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, len(s.current))
	copy(out, s.current)
	return out
}

// Cancel stops delivery. Safe to call more than once; a callback already in
// flight is discarded by the cancelled guard rather than assumed impossible.
func (s *ListSync) Cancel() {
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
