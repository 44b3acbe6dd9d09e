package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Session ties the messaging core together for one authenticated user: the
// conversation list sync, the stream sync of the selected conversation, the
// reply context and the send pipeline. All local state is a read-through cache
// of the store and is rebuilt wholesale from snapshots.
type Session struct {
	self       Profile
	store      Store
	identities Identities
	directory  *Directory
	composer   *Composer
	logger     *slog.Logger

	// lifeCtx spans the session's lifetime; message subscriptions run on it
	// so they survive the request that opened them. Cancelled by Close.
	lifeCtx    context.Context
	lifeCancel context.CancelFunc

	mu          sync.Mutex
	list        *ListSync
	stream      *StreamSync
	selectedID  string
	messages    []Message
	counterpart Profile
	replyTo     *ReplySnapshot
	closed      bool

	onConversations ConversationsFunc
	onMessages      MessagesFunc
}

// SessionConfig wires a session's collaborators.
type SessionConfig struct {
	Self       Profile
	Store      Store
	Identities Identities
	Events     Events
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewSession builds an idle session; Open starts the conversation list sync.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lifeCtx, lifeCancel := context.WithCancel(context.Background())
	return &Session{
		lifeCtx:    lifeCtx,
		lifeCancel: lifeCancel,
		self:       cfg.Self,
		store:      cfg.Store,
		identities: cfg.Identities,
		logger:     logger,
		directory: &Directory{
			Store:      cfg.Store,
			Identities: cfg.Identities,
			Logger:     logger,
			Now:        cfg.Now,
		},
		composer: &Composer{
			Store:  cfg.Store,
			Events: cfg.Events,
			Logger: logger,
			Now:    cfg.Now,
		},
		list: NewListSync(cfg.Store),
	}
}

// Self returns the profile the session was opened for.
func (s *Session) Self() Profile { return s.self }

// Open starts the conversation list subscription. onUpdate may be nil when the
// caller only polls Conversations.
func (s *Session) Open(ctx context.Context, onUpdate ConversationsFunc) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrCancelled
	}
	s.onConversations = onUpdate
	s.mu.Unlock()
	return s.list.Start(ctx, s.self.ID, func(conversations []Conversation, err error) {
		s.mu.Lock()
		fn := s.onConversations
		closed := s.closed
		s.mu.Unlock()
		if closed || fn == nil {
			return
		}
		fn(conversations, err)
	})
}

// Conversations returns the current list snapshot, newest activity first.
func (s *Session) Conversations() []Conversation { return s.list.Current() }

// OpenConversation is the entry point used from profiles and search results:
// it resolves or creates the conversation with otherID and selects it.
func (s *Session) OpenConversation(ctx context.Context, otherID string) (Conversation, error) {
	conv, err := s.directory.Ensure(ctx, s.self, otherID, s.list.Current())
	if err != nil {
		return Conversation{}, err
	}
	if err := s.Select(ctx, conv.ID); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// Select makes conversationID the active conversation: the previous stream
// subscription is cancelled first, local messages and the reply context are
// reset, and a fresh message subscription is opened. The subscription runs on
// the session's own context rather than ctx, so it keeps delivering after a
// short-lived request context is cancelled; ctx bounds only the one-shot
// counterpart lookup. A late snapshot from the superseded subscription is
// discarded by comparing the conversation id it was opened for against the
// currently selected one.
func (s *Session) Select(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrCancelled
	}
	prev := s.stream
	stream := NewStreamSync(s.store, conversationID)
	s.stream = stream
	s.selectedID = conversationID
	s.messages = nil
	s.replyTo = nil
	s.counterpart = Profile{}
	s.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}

	if err := stream.Start(s.lifeCtx, func(messages []Message, err error) {
		s.mu.Lock()
		// Staleness guard: this callback belongs to the subscription opened
		// for stream.ConversationID(); drop it if the user has moved on.
		if s.closed || s.selectedID != stream.ConversationID() {
			s.mu.Unlock()
			return
		}
		if err == nil {
			s.messages = messages
		}
		fn := s.onMessages
		s.mu.Unlock()
		if fn != nil {
			fn(messages, err)
		}
	}); err != nil {
		return err
	}

	s.loadCounterpart(ctx, conversationID)
	return nil
}

// loadCounterpart performs the one-shot display-profile lookup for the header.
// Failure never blocks message display.
func (s *Session) loadCounterpart(ctx context.Context, conversationID string) {
	var peerID string
	for _, conv := range s.list.Current() {
		if conv.ID == conversationID {
			peerID = conv.Counterpart(s.self.ID)
			break
		}
	}
	if peerID == "" {
		return
	}
	profile, err := s.identities.Lookup(ctx, peerID)
	if err != nil {
		s.logger.Warn("counterpart lookup failed", "conversation_id", conversationID, "peer_id", peerID, "error", err)
		return
	}
	s.mu.Lock()
	if s.selectedID == conversationID {
		s.counterpart = profile
	}
	s.mu.Unlock()
}

// OnMessages registers the callback invoked with every message snapshot of the
// active conversation.
func (s *Session) OnMessages(fn MessagesFunc) {
	s.mu.Lock()
	s.onMessages = fn
	s.mu.Unlock()
}

// Selected returns the active conversation id, or "" when none is selected.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Messages returns the message snapshot of the active conversation.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Counterpart returns the other participant's display profile when the
// one-shot lookup has completed, the zero Profile otherwise.
func (s *Session) Counterpart() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counterpart
}

// BeginReply arms the reply context with a snapshot of m. A second call
// overwrites the previous target rather than stacking.
func (s *Session) BeginReply(m Message) {
	snapshot := m.Snapshot()
	s.mu.Lock()
	s.replyTo = &snapshot
	s.mu.Unlock()
}

// DismissReply returns the reply context to idle.
func (s *Session) DismissReply() {
	s.mu.Lock()
	s.replyTo = nil
	s.mu.Unlock()
}

// ReplyTarget returns the armed reply snapshot, or nil when idle.
func (s *Session) ReplyTarget() *ReplySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replyTo == nil {
		return nil
	}
	snapshot := *s.replyTo
	return &snapshot
}

// Send pushes a draft through the compose pipeline against the active
// conversation, embedding and then clearing the armed reply context on
// success. The reply context survives a failed send.
func (s *Session) Send(ctx context.Context, draft Draft) (Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Message{}, ErrCancelled
	}
	conversationID := s.selectedID
	if s.replyTo != nil {
		snapshot := *s.replyTo
		draft.ReplyTo = &snapshot
	}
	s.mu.Unlock()

	if conversationID == "" {
		return Message{}, fmt.Errorf("%w: no conversation selected", ErrInvalidInput)
	}

	msg, err := s.composer.Send(ctx, conversationID, s.self, draft)
	if err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	if s.selectedID == conversationID {
		s.replyTo = nil
	}
	s.mu.Unlock()
	return msg, nil
}

// Close cancels the list subscription and any active stream subscription.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stream := s.stream
	s.stream = nil
	s.selectedID = ""
	s.replyTo = nil
	s.mu.Unlock()

	s.lifeCancel()
	s.list.Cancel()
	if stream != nil {
		stream.Cancel()
	}
}
