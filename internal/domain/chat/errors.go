package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput rejects malformed drafts and self-directed conversations.
	ErrInvalidInput = errors.New("chat: invalid input")
	// ErrNotFound is returned when the target identity or conversation is gone.
	ErrNotFound = errors.New("chat: not found")
	// ErrBusy rejects a duplicate send while one is already in flight for the
	// same conversation and sender.
	ErrBusy = errors.New("chat: send already in flight")
	// ErrCancelled is returned by operations on a closed session.
	ErrCancelled = errors.New("chat: session closed")
)

// SubscriptionError wraps a live-query transport or permission failure. The
// sync layers surface it through their callbacks without discarding the
// last-known-good local state.
type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("chat: subscription failed: %v", e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
