package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"shamsa/internal/domain/user"
)

// Service glues post writes to the author's profile counters. The counter
// update is best-effort denormalization, same policy as the chat summary.
type Service struct {
	Posts  Repository
	Users  user.Repository
	Logger *slog.Logger
	Now    func() time.Time
}

// Publish creates a post authored by u and bumps their posts counter.
func (s *Service) Publish(ctx context.Context, u *user.User, content, imageURL string) (*Post, error) {
	post, err := NewPost(string(u.ID), u.DisplayName, u.ProfilePicture, content, imageURL, s.now())
	if err != nil {
		return nil, err
	}
	id, err := s.Posts.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("feed: create post: %w", err)
	}
	post.ID = id
	if err := s.Users.IncrementPostsCount(ctx, u.ID, 1); err != nil && s.Logger != nil {
		s.Logger.Warn("posts count update failed", "user_id", u.ID, "error", err)
	}
	return post, nil
}

// Timeline lists the newest posts, optionally scoped to one author.
func (s *Service) Timeline(ctx context.Context, authorID string, limit int) ([]*Post, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.Posts.List(ctx, authorID, limit)
}

// ToggleLike likes the post when userID has not liked it yet and removes the
// like otherwise, returning the resulting liked state.
func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	post, err := s.Posts.ByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if post.LikedBy(userID) {
		if err := s.Posts.RemoveLike(ctx, postID, userID); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := s.Posts.AddLike(ctx, postID, userID); err != nil {
		return false, err
	}
	return true, nil
}

// Comment appends a comment authored by u to the post.
func (s *Service) Comment(ctx context.Context, postID string, u *user.User, content string) (Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, ErrContentRequired
	}
	comment := Comment{
		ID:           uuid.NewString(),
		AuthorID:     string(u.ID),
		AuthorName:   u.DisplayName,
		AuthorAvatar: u.ProfilePicture,
		Content:      content,
		CreatedAt:    s.now(),
	}
	if err := s.Posts.AddComment(ctx, postID, comment); err != nil {
		return Comment{}, err
	}
	return comment, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
