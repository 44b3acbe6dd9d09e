package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shamsa/internal/domain/chat"
)

func TestListSyncReplacesSnapshotsWholesale(t *testing.T) {
	store := newStubStore()
	sync := chat.NewListSync(store)

	var delivered [][]chat.Conversation
	require.NoError(t, sync.Start(context.Background(), "u1", func(list []chat.Conversation, err error) {
		require.NoError(t, err)
		delivered = append(delivered, list)
	}))

	convA := chat.Conversation{ID: "a", Participants: []string{"u1", "u2"}, UpdatedAt: at(1)}
	convB := chat.Conversation{ID: "b", Participants: []string{"u1", "u3"}, UpdatedAt: at(5)}

	store.pushConversations("u1", []chat.Conversation{convA}, nil)
	store.pushConversations("u1", []chat.Conversation{convA, convB}, nil)

	require.Len(t, delivered, 3) // initial empty + two pushes
	assert.Equal(t, []chat.Conversation{convA}, delivered[1])
	// Most recent activity first regardless of delivery order.
	assert.Equal(t, []chat.Conversation{convB, convA}, delivered[2])
	assert.Equal(t, []chat.Conversation{convB, convA}, sync.Current())
}

func TestListSyncKeepsLastKnownGoodOnError(t *testing.T) {
	store := newStubStore()
	sync := chat.NewListSync(store)

	conv := chat.Conversation{ID: "a", Participants: []string{"u1", "u2"}, UpdatedAt: at(1)}
	var lastErr error
	var lastList []chat.Conversation
	require.NoError(t, sync.Start(context.Background(), "u1", func(list []chat.Conversation, err error) {
		lastList, lastErr = list, err
	}))

	store.pushConversations("u1", []chat.Conversation{conv}, nil)
	require.NoError(t, lastErr)

	transport := errors.New("permission denied")
	store.pushConversations("u1", nil, transport)

	var subErr *chat.SubscriptionError
	require.ErrorAs(t, lastErr, &subErr)
	assert.ErrorIs(t, lastErr, transport)
	assert.Equal(t, []chat.Conversation{conv}, lastList, "error must not clear the list")
	assert.Equal(t, []chat.Conversation{conv}, sync.Current())
}

func TestListSyncCancel(t *testing.T) {
	store := newStubStore()
	sync := chat.NewListSync(store)

	calls := 0
	require.NoError(t, sync.Start(context.Background(), "u1", func([]chat.Conversation, error) { calls++ }))
	require.Equal(t, 1, calls)

	sync.Cancel()
	sync.Cancel() // idempotent

	store.pushConversations("u1", []chat.Conversation{{ID: "late"}}, nil)
	assert.Equal(t, 1, calls, "no delivery after cancellation")

	assert.ErrorIs(t, sync.Start(context.Background(), "u1", nil), chat.ErrCancelled)
}
