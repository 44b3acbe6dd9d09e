package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"shamsa/internal/app/dto"
	"shamsa/internal/app/services/messaging"
	"shamsa/internal/domain/chat"
	"shamsa/internal/infra/obs"
)

// ChatHTTP exposes the messaging endpoints.
type ChatHTTP interface {
	ListConversations(c *gin.Context)
	StreamConversations(c *gin.Context)
	OpenDirect(c *gin.Context)
	SelectConversation(c *gin.Context)
	ListMessages(c *gin.Context)
	StreamMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	BeginReply(c *gin.Context)
	DismissReply(c *gin.Context)
}

// ChatHandler bridges HTTP with the per-user messaging sessions.
type ChatHandler struct {
	Sessions *messaging.Manager
	Logger   *slog.Logger
	Metrics  *obs.Metrics
}

func (h ChatHandler) session(c *gin.Context) (*chat.Session, principal, bool) {
	p, ok := requireAuth(c)
	if !ok {
		return nil, principal{}, false
	}
	if h.Sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "messaging unavailable"})
		return nil, principal{}, false
	}
	session, err := h.Sessions.Session(chat.Profile{ID: p.ID, DisplayName: p.Name, Avatar: p.Avatar})
	if err != nil {
		h.respondChatError(c, err, "open session")
		return nil, principal{}, false
	}
	return session, p, true
}

func (h ChatHandler) ListConversations(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.MapConversationList(session.Conversations()))
}

// StreamConversations pushes the conversation list as server-sent events: one
// event per snapshot, each carrying the whole list.
func (h ChatHandler) StreamConversations(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "messaging unavailable"})
		return
	}
	updates, cancel, err := h.Sessions.WatchConversations(chat.Profile{ID: p.ID, DisplayName: p.Name, Avatar: p.Avatar})
	if err != nil {
		h.respondChatError(c, err, "stream conversations")
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, open := <-updates:
			if !open {
				return false
			}
			c.SSEvent("conversations", dto.MapConversationList(snapshot))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type openDirectRequest struct {
	UserID string `json:"user_id"`
}

// OpenDirect resolves or creates the conversation with another user and makes
// it the active one. This is the entry point behind "Message" buttons.
func (h ChatHandler) OpenDirect(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}
	var req openDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	conv, err := session.OpenConversation(c.Request.Context(), strings.TrimSpace(req.UserID))
	if err != nil {
		h.respondChatError(c, err, "open direct conversation", "peer_id", req.UserID)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversation(conv))
}

func (h ChatHandler) SelectConversation(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := session.Select(c.Request.Context(), id); err != nil {
		h.respondChatError(c, err, "select conversation", "conversation_id", id)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ChatHandler) ListMessages(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.ensureSelected(c, session, id); err != nil {
		return
	}
	c.JSON(http.StatusOK, dto.MapMessageList(id, session.Messages()))
}

// StreamMessages selects the conversation and pushes message snapshots as
// server-sent events. Snapshots of a previously selected conversation are
// never delivered here: the session discards them before fan-out.
func (h ChatHandler) StreamMessages(c *gin.Context) {
	session, p, ok := h.session(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.ensureSelected(c, session, id); err != nil {
		return
	}
	updates, cancel, err := h.Sessions.WatchMessages(chat.Profile{ID: p.ID, DisplayName: p.Name, Avatar: p.Avatar})
	if err != nil {
		h.respondChatError(c, err, "stream messages", "conversation_id", id)
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case snapshot, open := <-updates:
			if !open {
				return false
			}
			if session.Selected() != id {
				return false
			}
			c.SSEvent("messages", dto.MapMessageList(id, snapshot))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type sendMessageRequest struct {
	Type  string        `json:"type"`
	Body  string        `json:"body"`
	Media *dto.MediaRef `json:"media"`
}

func (h ChatHandler) SendMessage(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.ensureSelected(c, session, id); err != nil {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	draft := chat.Draft{
		Type: chat.MessageType(req.Type),
		Body: req.Body,
	}
	if draft.Type == "" {
		draft.Type = chat.TypeText
	}
	if req.Media != nil {
		draft.Media = &chat.MediaRef{URL: req.Media.URL, Title: req.Media.Title}
	}
	msg, err := session.Send(c.Request.Context(), draft)
	if err != nil {
		if h.Metrics != nil {
			h.Metrics.SendFailures.Inc()
		}
		h.respondChatError(c, err, "send message", "conversation_id", id)
		return
	}
	if h.Metrics != nil {
		h.Metrics.MessagesSent.Inc()
	}
	c.JSON(http.StatusCreated, dto.MapMessage(msg))
}

type beginReplyRequest struct {
	MessageID string `json:"message_id"`
}

// BeginReply arms the reply context with one of the visible messages. Arming
// again overwrites the previous target.
func (h ChatHandler) BeginReply(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.ensureSelected(c, session, id); err != nil {
		return
	}
	var req beginReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	for _, m := range session.Messages() {
		if m.ID == req.MessageID {
			session.BeginReply(m)
			c.JSON(http.StatusOK, gin.H{"reply_to": dto.MapMessage(m).ID})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "message not found in conversation"})
}

func (h ChatHandler) DismissReply(c *gin.Context) {
	session, _, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.ensureSelected(c, session, c.Param("id")); err != nil {
		return
	}
	session.DismissReply()
	c.Status(http.StatusNoContent)
}

// ensureSelected makes conversationID the active conversation when it is not
// already, so message endpoints can be called without an explicit select.
func (h ChatHandler) ensureSelected(c *gin.Context, session *chat.Session, conversationID string) error {
	if session.Selected() == conversationID {
		return nil
	}
	if err := session.Select(c.Request.Context(), conversationID); err != nil {
		h.respondChatError(c, err, "select conversation", "conversation_id", conversationID)
		return err
	}
	return nil
}

func (h ChatHandler) respondChatError(c *gin.Context, err error, op string, fields ...any) {
	var subErr *chat.SubscriptionError
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "a send is already in flight"})
	case errors.Is(err, chat.ErrCancelled):
		c.JSON(http.StatusGone, gin.H{"error": "session closed"})
	case errors.As(err, &subErr):
		if h.Metrics != nil {
			h.Metrics.SubscriptionErrors.Inc()
		}
		h.logError(op, err, fields...)
		c.JSON(http.StatusBadGateway, gin.H{"error": "live query unavailable"})
	default:
		h.logError(op, err, fields...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h ChatHandler) logError(op string, err error, fields ...any) {
	if h.Logger == nil {
		return
	}
	args := append([]any{"error", err}, fields...)
	h.Logger.Error(op+" failed", args...)
}

var _ ChatHTTP = (*ChatHandler)(nil)
