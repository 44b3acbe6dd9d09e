package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shamsa/internal/domain/feed"
	"shamsa/internal/domain/user"
	"shamsa/internal/infra/storage/memory"
)

func newAuthor(t *testing.T, users *memory.UserRepository) *user.User {
	t.Helper()
	author, err := user.NewUser(user.CreateParams{
		ID:           "a1",
		Email:        "author@example.com",
		DisplayName:  "Author",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.NoError(t, users.Save(context.Background(), author))
	return author
}

func newService(users *memory.UserRepository) (*feed.Service, *memory.PostRepository) {
	posts := memory.NewPostRepository()
	return &feed.Service{Posts: posts, Users: users}, posts
}

func TestPublishStoresPostAndBumpsCounter(t *testing.T) {
	users := memory.NewUserRepository()
	author := newAuthor(t, users)
	svc, _ := newService(users)

	post, err := svc.Publish(context.Background(), author, "hello world", "")
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "a1", post.AuthorID)
	assert.Equal(t, "Author", post.AuthorName)

	updated, err := users.ByID(context.Background(), author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.PostsCount)
}

func TestPublishRequiresContentOrImage(t *testing.T) {
	users := memory.NewUserRepository()
	author := newAuthor(t, users)
	svc, _ := newService(users)

	_, err := svc.Publish(context.Background(), author, "   ", "")
	assert.ErrorIs(t, err, feed.ErrContentRequired)

	post, err := svc.Publish(context.Background(), author, "", "https://cdn.example.com/pic.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/pic.png", post.ImageURL)
}

func TestTimelineNewestFirst(t *testing.T) {
	users := memory.NewUserRepository()
	author := newAuthor(t, users)
	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newService(users)
	svc.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	for _, content := range []string{"first", "second", "third"} {
		_, err := svc.Publish(context.Background(), author, content, "")
		require.NoError(t, err)
	}

	posts, err := svc.Timeline(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "third", posts[0].Content)
	assert.Equal(t, "first", posts[2].Content)
}

func TestToggleLikeFlips(t *testing.T) {
	users := memory.NewUserRepository()
	author := newAuthor(t, users)
	svc, _ := newService(users)

	post, err := svc.Publish(context.Background(), author, "like me", "")
	require.NoError(t, err)

	liked, err := svc.ToggleLike(context.Background(), post.ID, "viewer-1")
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = svc.ToggleLike(context.Background(), post.ID, "viewer-1")
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = svc.ToggleLike(context.Background(), "missing", "viewer-1")
	assert.ErrorIs(t, err, feed.ErrNotFound)
}

func TestCommentAppended(t *testing.T) {
	users := memory.NewUserRepository()
	author := newAuthor(t, users)
	svc, posts := newService(users)

	post, err := svc.Publish(context.Background(), author, "discuss", "")
	require.NoError(t, err)

	comment, err := svc.Comment(context.Background(), post.ID, author, "  nice post  ")
	require.NoError(t, err)
	assert.Equal(t, "nice post", comment.Content)
	assert.NotEmpty(t, comment.ID)

	stored, err := posts.ByID(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, comment.ID, stored.Comments[0].ID)

	_, err = svc.Comment(context.Background(), post.ID, author, "   ")
	assert.ErrorIs(t, err, feed.ErrContentRequired)
}
