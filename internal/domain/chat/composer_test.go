package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shamsa/internal/domain/chat"
	"shamsa/internal/infra/storage/memory"
)

func TestComposerSendValidation(t *testing.T) {
	sender := chat.Profile{ID: "u1", DisplayName: "Amina"}
	composer := &chat.Composer{Store: memory.NewChatStore()}

	tests := []struct {
		name           string
		conversationID string
		draft          chat.Draft
	}{
		{"empty text", "c1", chat.Draft{Type: chat.TypeText, Body: "   "}},
		{"missing conversation", "", chat.Draft{Type: chat.TypeText, Body: "hi"}},
		{"media without reference", "c1", chat.Draft{Type: chat.TypeMedia}},
		{"media with blank url", "c1", chat.Draft{Type: chat.TypeMedia, Media: &chat.MediaRef{URL: " "}}},
		{"unknown type", "c1", chat.Draft{Type: chat.MessageType("voice"), Body: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := composer.Send(context.Background(), tt.conversationID, sender, tt.draft)
			assert.ErrorIs(t, err, chat.ErrInvalidInput)
		})
	}
}

func TestComposerSendPersistsAndUpdatesSummary(t *testing.T) {
	store := newStubStore()
	var createdMsg chat.Message
	var summaryID string
	var summary chat.Summary
	store.createMessage = func(m chat.Message) (string, error) {
		createdMsg = m
		return "m1", nil
	}
	store.updateSummary = func(id string, s chat.Summary) error {
		summaryID, summary = id, s
		return nil
	}

	composer := &chat.Composer{Store: store, Now: func() time.Time { return at(7) }}
	sender := chat.Profile{ID: "u1", DisplayName: "Amina", Avatar: "a.png"}

	msg, err := composer.Send(context.Background(), "c1", sender, chat.Draft{Type: chat.TypeText, Body: "  hello  "})
	require.NoError(t, err)

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "hello", msg.Body, "body is trimmed")
	assert.Equal(t, "u1", createdMsg.SenderID)
	assert.Equal(t, "Amina", createdMsg.SenderName)
	assert.Equal(t, at(7), createdMsg.CreatedAt)

	assert.Equal(t, "c1", summaryID)
	assert.Equal(t, "hello", summary.LastMessagePreview)
	assert.Equal(t, at(7), summary.UpdatedAt)
}

func TestComposerMediaPreviewPlaceholder(t *testing.T) {
	store := newStubStore()
	var summary chat.Summary
	store.updateSummary = func(_ string, s chat.Summary) error {
		summary = s
		return nil
	}
	composer := &chat.Composer{Store: store}

	msg, err := composer.Send(context.Background(), "c1", chat.Profile{ID: "u1"}, chat.Draft{
		Type:  chat.TypeMedia,
		Media: &chat.MediaRef{URL: "https://media.example/clap.gif", Title: "clap"},
	})
	require.NoError(t, err)
	assert.Equal(t, chat.TypeMedia, msg.Type)
	assert.Equal(t, chat.MediaPreviewPlaceholder, summary.LastMessagePreview)
}

// A failed summary write is a cosmetic defect: the message write already
// succeeded and must be returned as such.
func TestComposerToleratesSummaryFailure(t *testing.T) {
	store := memory.NewChatStore()
	convID, err := store.CreateConversation(context.Background(), chat.Conversation{Participants: []string{"u1", "u2"}})
	require.NoError(t, err)
	store.SetSummaryError(errors.New("write conflict"))

	composer := &chat.Composer{Store: store}
	msg, err := composer.Send(context.Background(), convID, chat.Profile{ID: "u1"}, chat.Draft{Type: chat.TypeText, Body: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
}

func TestComposerSingleFlight(t *testing.T) {
	store := newStubStore()
	started := make(chan struct{})
	unblock := make(chan struct{})
	var startOnce sync.Once
	store.createMessage = func(m chat.Message) (string, error) {
		if m.ConversationID == "c1" {
			startOnce.Do(func() { close(started) })
			<-unblock
		}
		return "m1", nil
	}

	composer := &chat.Composer{Store: store}
	sender := chat.Profile{ID: "u1"}
	draft := chat.Draft{Type: chat.TypeText, Body: "hello"}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = composer.Send(context.Background(), "c1", sender, draft)
	}()
	<-started

	// Duplicate while the first send is in flight.
	_, err := composer.Send(context.Background(), "c1", sender, draft)
	assert.ErrorIs(t, err, chat.ErrBusy)

	// A different conversation is an independent flight.
	_, err = composer.Send(context.Background(), "c2", sender, draft)
	assert.NoError(t, err)

	close(unblock)
	wg.Wait()
	require.NoError(t, firstErr)

	// The key is released once the first send resolves.
	_, err = composer.Send(context.Background(), "c1", sender, draft)
	assert.NoError(t, err)
}

type recordingEvents struct {
	mu   sync.Mutex
	sent []chat.Message
}

func (r *recordingEvents) MessageSent(_ context.Context, m chat.Message) {
	r.mu.Lock()
	r.sent = append(r.sent, m)
	r.mu.Unlock()
}

func TestComposerPublishesEvents(t *testing.T) {
	events := &recordingEvents{}
	composer := &chat.Composer{Store: newStubStore(), Events: events}

	msg, err := composer.Send(context.Background(), "c1", chat.Profile{ID: "u1"}, chat.Draft{Type: chat.TypeText, Body: "hello"})
	require.NoError(t, err)
	require.Len(t, events.sent, 1)
	assert.Equal(t, msg.ID, events.sent[0].ID)
}
