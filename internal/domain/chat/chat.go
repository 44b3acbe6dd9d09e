package chat

import (
	"context"
	"sort"
	"strings"
	"time"
)

// MessageType discriminates the message body.
type MessageType string

const (
	TypeText  MessageType = "text"
	TypeMedia MessageType = "media"
)

// MediaPreviewPlaceholder is the denormalized conversation preview used for
// media messages instead of the body text.
const MediaPreviewPlaceholder = "🎬 GIF"

// MediaRef points at externally hosted media content.
type MediaRef struct {
	URL   string
	Title string
}

// Conversation is the persistent record of a two-party thread. Participants
// always holds exactly two identity ids; a pair has at most one conversation
// by convention (see Directory for the documented exception).
type Conversation struct {
	ID                 string
	Participants       []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastMessagePreview string
}

// HasParticipant reports whether id is one of the two participants.
func (c Conversation) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// Counterpart returns the participant that is not selfID.
func (c Conversation) Counterpart(selfID string) string {
	for _, p := range c.Participants {
		if p != selfID {
			return p
		}
	}
	return ""
}

// ReplySnapshot is a frozen copy of a replied-to message, embedded verbatim in
// the reply at send time. It is never re-resolved against the store.
type ReplySnapshot struct {
	ID         string
	SenderName string
	Body       string
	Type       MessageType
	Media      *MediaRef
}

// Message is one immutable unit of communication. Messages in a conversation
// are totally ordered by (CreatedAt, ID).
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	SenderAvatar   string
	Type           MessageType
	Body           string
	Media          *MediaRef
	CreatedAt      time.Time
	ReplyTo        *ReplySnapshot
}

// Snapshot returns the frozen form of m used for reply threading.
func (m Message) Snapshot() ReplySnapshot {
	s := ReplySnapshot{
		ID:         m.ID,
		SenderName: m.SenderName,
		Body:       m.Body,
		Type:       m.Type,
	}
	if m.Media != nil {
		media := *m.Media
		s.Media = &media
	}
	return s
}

// Preview derives the conversation list summary line for m.
func (m Message) Preview() string {
	if m.Type == TypeMedia {
		return MediaPreviewPlaceholder
	}
	return strings.TrimSpace(m.Body)
}

// Before reports whether m sorts ahead of other in the per-conversation total
// order, ties on CreatedAt broken by ID.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// SortMessages orders msgs in place by (CreatedAt, ID) ascending.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })
}

// SortConversations orders convs in place by UpdatedAt descending, newest
// activity first, ties broken by ID for determinism.
func SortConversations(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if !convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
		}
		return convs[i].ID < convs[j].ID
	})
}

// Profile is the display subset of an identity used by the messaging core.
type Profile struct {
	ID          string
	DisplayName string
	Avatar      string
}

// Identities resolves identity ids to display profiles. It is owned by the
// auth/user collaborator; the chat core only reads through it.
type Identities interface {
	Lookup(ctx context.Context, id string) (Profile, error)
}
