package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shamsa/internal/domain/chat"
	"shamsa/internal/infra/storage/memory"
)

// End-to-end messaging flow over the in-memory store: first contact, sends,
// reply threading and list reordering, observed only through the live
// subscriptions (no optimistic echo).
func TestMessagingEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChatStore()

	u1 := chat.Profile{ID: "u1", DisplayName: "Amina", Avatar: "a.png"}
	u2 := chat.Profile{ID: "u2", DisplayName: "Badr", Avatar: "b.png"}
	ids := newStubIdentities(u1, u2)

	clock := at(0)
	now := func() time.Time { return clock }

	s1 := chat.NewSession(chat.SessionConfig{Self: u1, Store: store, Identities: ids, Now: now})
	s2 := chat.NewSession(chat.SessionConfig{Self: u2, Store: store, Identities: ids, Now: now})
	require.NoError(t, s1.Open(ctx, nil))
	require.NoError(t, s2.Open(ctx, nil))
	defer s1.Close()
	defer s2.Close()

	// Scenario 1: fresh pair, one conversation with an empty preview.
	conv, err := s1.OpenConversation(ctx, "u2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, conv.Participants)
	assert.Empty(t, conv.LastMessagePreview)
	assert.Equal(t, 1, store.ConversationCreates())

	// Scenario 2: text send advances the conversation summary.
	clock = at(10)
	sent, err := s1.Send(ctx, chat.Draft{Type: chat.TypeText, Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "u1", sent.SenderID)
	assert.Equal(t, "hello", sent.Body)

	list := s1.Conversations()
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].LastMessagePreview)
	assert.Equal(t, at(10), list[0].UpdatedAt)
	assert.True(t, list[0].UpdatedAt.After(conv.UpdatedAt))

	// The sender observes the message through the stream, not an echo.
	msgs := s1.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, sent.ID, msgs[0].ID)

	// Scenario 3: empty body is rejected without a write.
	_, err = s1.Send(ctx, chat.Draft{Type: chat.TypeText, Body: ""})
	require.ErrorIs(t, err, chat.ErrInvalidInput)
	assert.Len(t, s1.Messages(), 1)

	// Scenario 4: reply threading embeds the snapshot and clears the context.
	require.NoError(t, s2.Select(ctx, conv.ID))
	received := s2.Messages()
	require.Len(t, received, 1)

	s2.BeginReply(received[0])
	clock = at(20)
	reply, err := s2.Send(ctx, chat.Draft{Type: chat.TypeText, Body: "hi"})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, sent.ID, reply.ReplyTo.ID)
	assert.Equal(t, "Amina", reply.ReplyTo.SenderName)
	assert.Equal(t, "hello", reply.ReplyTo.Body)
	assert.Equal(t, chat.TypeText, reply.ReplyTo.Type)
	assert.Nil(t, s2.ReplyTarget())

	// Both streams converge, in order.
	for _, s := range []*chat.Session{s1, s2} {
		msgs := s.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, sent.ID, msgs[0].ID)
		assert.Equal(t, reply.ID, msgs[1].ID)
	}

	// Scenario 6: the list stays sorted by most recent activity across
	// conversations.
	u3 := chat.Profile{ID: "u3", DisplayName: "Carim"}
	ids.profiles["u3"] = u3
	clock = at(30)
	conv2, err := s1.OpenConversation(ctx, "u3")
	require.NoError(t, err)
	clock = at(40)
	_, err = s1.Send(ctx, chat.Draft{Type: chat.TypeText, Body: "salam"})
	require.NoError(t, err)

	list = s1.Conversations()
	require.Len(t, list, 2)
	assert.Equal(t, conv2.ID, list[0].ID, "latest activity first")
	assert.Equal(t, conv.ID, list[1].ID)

	// Older activity in the first conversation moves it back to the top.
	clock = at(50)
	require.NoError(t, s1.Select(ctx, conv.ID))
	_, err = s1.Send(ctx, chat.Draft{Type: chat.TypeText, Body: "back"})
	require.NoError(t, err)
	list = s1.Conversations()
	assert.Equal(t, conv.ID, list[0].ID)
}

// Scenario 5 over the real fan-out path: selecting A then B leaves the local
// list equal to B's messages even though A keeps receiving traffic.
func TestMessagingSwitchScopesLocalList(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChatStore()

	u1 := chat.Profile{ID: "u1", DisplayName: "Amina"}
	u2 := chat.Profile{ID: "u2", DisplayName: "Badr"}
	u3 := chat.Profile{ID: "u3", DisplayName: "Carim"}
	ids := newStubIdentities(u1, u2, u3)

	s1 := chat.NewSession(chat.SessionConfig{Self: u1, Store: store, Identities: ids})
	s2 := chat.NewSession(chat.SessionConfig{Self: u2, Store: store, Identities: ids})
	require.NoError(t, s1.Open(ctx, nil))
	require.NoError(t, s2.Open(ctx, nil))
	defer s1.Close()
	defer s2.Close()

	convA, err := s1.OpenConversation(ctx, "u2")
	require.NoError(t, err)
	_, err = s1.Send(ctx, chat.Draft{Type: chat.TypeText, Body: "in A"})
	require.NoError(t, err)

	convB, err := s1.OpenConversation(ctx, "u3")
	require.NoError(t, err)
	_, err = s1.Send(ctx, chat.Draft{Type: chat.TypeText, Body: "in B"})
	require.NoError(t, err)

	// Traffic keeps flowing into A from the other side after the switch.
	require.NoError(t, s2.Select(ctx, convA.ID))
	_, err = s2.Send(ctx, chat.Draft{Type: chat.TypeText, Body: "late for A"})
	require.NoError(t, err)

	require.Equal(t, convB.ID, s1.Selected())
	msgs := s1.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "in B", msgs[0].Body)
	for _, m := range msgs {
		assert.Equal(t, convB.ID, m.ConversationID)
	}
}
