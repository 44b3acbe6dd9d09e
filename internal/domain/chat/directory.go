package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Directory resolves or creates the conversation between two identities.
type Directory struct {
	Store      Store
	Identities Identities
	Logger     *slog.Logger
	Now        func() time.Time
}

// Ensure returns the conversation between self and otherID, creating it when
// absent. The existence check runs against the caller's already-loaded
// conversation list only, not a fresh store query: when both parties first
// message each other at the same moment, each side can miss the other's create
// and the pair ends up with two conversations. That race is a known property
// of the system and is deliberately left in place; each call still creates at
// most one conversation.
func (d *Directory) Ensure(ctx context.Context, self Profile, otherID string, loaded []Conversation) (Conversation, error) {
	if otherID == "" || otherID == self.ID {
		return Conversation{}, fmt.Errorf("%w: cannot open a conversation with yourself", ErrInvalidInput)
	}
	for _, conv := range loaded {
		if conv.HasParticipant(self.ID) && conv.HasParticipant(otherID) {
			return conv, nil
		}
	}
	if _, err := d.Identities.Lookup(ctx, otherID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Conversation{}, fmt.Errorf("%w: user %s", ErrNotFound, otherID)
		}
		return Conversation{}, fmt.Errorf("chat: resolve user %s: %w", otherID, err)
	}

	now := d.now()
	conv := Conversation{
		Participants:       []string{self.ID, otherID},
		CreatedAt:          now,
		UpdatedAt:          now,
		LastMessagePreview: "",
	}
	id, err := d.Store.CreateConversation(ctx, conv)
	if err != nil {
		return Conversation{}, fmt.Errorf("chat: create conversation: %w", err)
	}
	conv.ID = id
	if d.Logger != nil {
		d.Logger.Info("conversation created", "conversation_id", id, "user_id", self.ID, "peer_id", otherID)
	}
	return conv, nil
}

func (d *Directory) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}
