package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shamsa/internal/domain/chat"
	"shamsa/internal/infra/storage/memory"
)

type staticIdentities map[string]chat.Profile

func (s staticIdentities) Lookup(ctx context.Context, id string) (chat.Profile, error) {
	p, ok := s[id]
	if !ok {
		return chat.Profile{}, chat.ErrNotFound
	}
	return p, nil
}

func testManager() (*Manager, *memory.ChatStore) {
	store := memory.NewChatStore()
	mgr := &Manager{
		Store: store,
		Identities: staticIdentities{
			"alice": {ID: "alice", DisplayName: "Alice"},
			"bob":   {ID: "bob", DisplayName: "Bob"},
		},
	}
	return mgr, store
}

func TestManagerReusesSessionPerUser(t *testing.T) {
	mgr, _ := testManager()
	defer mgr.Close()

	alice := chat.Profile{ID: "alice", DisplayName: "Alice"}
	first, err := mgr.Session(alice)
	require.NoError(t, err)
	second, err := mgr.Session(alice)
	require.NoError(t, err)
	assert.Same(t, first, second)

	bob, err := mgr.Session(chat.Profile{ID: "bob", DisplayName: "Bob"})
	require.NoError(t, err)
	assert.NotSame(t, first, bob)
}

func TestWatchConversationsDeliversLatestSnapshot(t *testing.T) {
	mgr, _ := testManager()
	defer mgr.Close()

	alice := chat.Profile{ID: "alice", DisplayName: "Alice"}
	updates, cancel, err := mgr.WatchConversations(alice)
	require.NoError(t, err)
	defer cancel()

	// Seeded with the (empty) current snapshot.
	select {
	case snapshot := <-updates:
		assert.Empty(t, snapshot)
	case <-time.After(time.Second):
		t.Fatal("no seed snapshot")
	}

	session, err := mgr.Session(alice)
	require.NoError(t, err)
	conv, err := session.OpenConversation(context.Background(), "bob")
	require.NoError(t, err)

	select {
	case snapshot := <-updates:
		require.Len(t, snapshot, 1)
		assert.Equal(t, conv.ID, snapshot[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no update after conversation created")
	}
}

func TestWatchMessagesTracksActiveConversation(t *testing.T) {
	mgr, _ := testManager()
	defer mgr.Close()

	alice := chat.Profile{ID: "alice", DisplayName: "Alice"}
	session, err := mgr.Session(alice)
	require.NoError(t, err)
	_, err = session.OpenConversation(context.Background(), "bob")
	require.NoError(t, err)

	updates, cancel, err := mgr.WatchMessages(alice)
	require.NoError(t, err)
	defer cancel()

	drain(t, updates)

	sent, err := session.Send(context.Background(), chat.Draft{Type: chat.TypeText, Body: "hi bob"})
	require.NoError(t, err)

	deadline := time.After(time.Second)
	for {
		select {
		case snapshot := <-updates:
			if len(snapshot) == 1 && snapshot[0].ID == sent.ID {
				return
			}
		case <-deadline:
			t.Fatal("sent message never observed")
		}
	}
}

func TestReleaseClosesSession(t *testing.T) {
	mgr, _ := testManager()

	alice := chat.Profile{ID: "alice", DisplayName: "Alice"}
	session, err := mgr.Session(alice)
	require.NoError(t, err)

	mgr.Release("alice")
	err = session.Select(context.Background(), "anything")
	assert.ErrorIs(t, err, chat.ErrCancelled)

	// A fresh session replaces the released one.
	replacement, err := mgr.Session(alice)
	require.NoError(t, err)
	assert.NotSame(t, session, replacement)
}

func drain(t *testing.T, ch <-chan []chat.Message) {
	t.Helper()
	for {
		select {
		case <-ch:
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}
