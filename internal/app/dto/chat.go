package dto

import (
	"time"

	"shamsa/internal/domain/chat"
)

type Conversation struct {
	ID                 string    `json:"id"`
	Participants       []string  `json:"participants"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	LastMessagePreview string    `json:"last_message_preview"`
}

type ConversationList struct {
	Items []Conversation `json:"items"`
}

type MediaRef struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type ReplySnapshot struct {
	ID         string    `json:"id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	Type       string    `json:"type"`
	Media      *MediaRef `json:"media,omitempty"`
}

type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	SenderName     string         `json:"sender_name"`
	SenderAvatar   string         `json:"sender_avatar,omitempty"`
	Type           string         `json:"type"`
	Body           string         `json:"body,omitempty"`
	Media          *MediaRef      `json:"media,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ReplyTo        *ReplySnapshot `json:"reply_to,omitempty"`
}

type MessageList struct {
	ConversationID string    `json:"conversation_id"`
	Items          []Message `json:"items"`
}

func MapConversation(conv chat.Conversation) Conversation {
	return Conversation{
		ID:                 conv.ID,
		Participants:       append([]string(nil), conv.Participants...),
		CreatedAt:          conv.CreatedAt,
		UpdatedAt:          conv.UpdatedAt,
		LastMessagePreview: conv.LastMessagePreview,
	}
}

func MapConversationList(convs []chat.Conversation) ConversationList {
	list := ConversationList{Items: make([]Conversation, 0, len(convs))}
	for _, conv := range convs {
		list.Items = append(list.Items, MapConversation(conv))
	}
	return list
}

func MapMessage(m chat.Message) Message {
	out := Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		SenderAvatar:   m.SenderAvatar,
		Type:           string(m.Type),
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
	if m.Media != nil {
		out.Media = &MediaRef{URL: m.Media.URL, Title: m.Media.Title}
	}
	if m.ReplyTo != nil {
		out.ReplyTo = mapReplySnapshot(*m.ReplyTo)
	}
	return out
}

func MapMessageList(conversationID string, msgs []chat.Message) MessageList {
	list := MessageList{
		ConversationID: conversationID,
		Items:          make([]Message, 0, len(msgs)),
	}
	for _, m := range msgs {
		list.Items = append(list.Items, MapMessage(m))
	}
	return list
}

func mapReplySnapshot(s chat.ReplySnapshot) *ReplySnapshot {
	out := &ReplySnapshot{
		ID:         s.ID,
		SenderName: s.SenderName,
		Body:       s.Body,
		Type:       string(s.Type),
	}
	if s.Media != nil {
		out.Media = &MediaRef{URL: s.Media.URL, Title: s.Media.Title}
	}
	return out
}
