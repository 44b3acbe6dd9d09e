package feed

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrContentRequired = errors.New("feed: content is required")
	ErrNotFound        = errors.New("feed: post not found")
)

// Comment is embedded in its post document, never stored standalone.
type Comment struct {
	ID           string
	AuthorID     string
	AuthorName   string
	AuthorAvatar string
	Content      string
	CreatedAt    time.Time
}

// Post carries a denormalized author snapshot so the feed renders without
// per-post profile lookups; likes hold the ids of users who liked it.
type Post struct {
	ID           string
	AuthorID     string
	AuthorName   string
	AuthorAvatar string
	Content      string
	ImageURL     string
	Likes        []string
	Comments     []Comment
	CreatedAt    time.Time
}

// LikedBy reports whether userID already liked the post.
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// SortPosts orders posts newest first, ties broken by ID.
func SortPosts(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}

// Repository is the posts collection of the document store.
type Repository interface {
	Create(ctx context.Context, post *Post) (string, error)
	ByID(ctx context.Context, id string) (*Post, error)
	// List returns posts newest first; authorID narrows to one author when
	// non-empty.
	List(ctx context.Context, authorID string, limit int) ([]*Post, error)
	AddLike(ctx context.Context, postID, userID string) error
	RemoveLike(ctx context.Context, postID, userID string) error
	AddComment(ctx context.Context, postID string, comment Comment) error
}

// NewPost validates and builds a post from its author snapshot.
func NewPost(authorID, authorName, authorAvatar, content, imageURL string, now time.Time) (*Post, error) {
	content = strings.TrimSpace(content)
	if content == "" && strings.TrimSpace(imageURL) == "" {
		return nil, ErrContentRequired
	}
	if now.IsZero() {
		now = time.Now()
	}
	return &Post{
		AuthorID:     authorID,
		AuthorName:   authorName,
		AuthorAvatar: authorAvatar,
		Content:      content,
		ImageURL:     strings.TrimSpace(imageURL),
		Likes:        []string{},
		Comments:     []Comment{},
		CreatedAt:    now.UTC(),
	}, nil
}
