package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"shamsa/internal/domain/feed"
)

// PostRepository is an in-memory feed.Repository.
type PostRepository struct {
	mu    sync.RWMutex
	items map[string]*feed.Post
}

func NewPostRepository() *PostRepository {
	return &PostRepository{items: make(map[string]*feed.Post)}
}

func (r *PostRepository) Create(ctx context.Context, post *feed.Post) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	copied := clonePost(post)
	copied.ID = id
	r.items[id] = copied
	return id, nil
}

func (r *PostRepository) ByID(ctx context.Context, id string) (*feed.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	post, ok := r.items[id]
	if !ok {
		return nil, feed.ErrNotFound
	}
	return clonePost(post), nil
}

func (r *PostRepository) List(ctx context.Context, authorID string, limit int) ([]*feed.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*feed.Post, 0, len(r.items))
	for _, post := range r.items {
		if authorID != "" && post.AuthorID != authorID {
			continue
		}
		out = append(out, clonePost(post))
	}
	feed.SortPosts(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PostRepository) AddLike(ctx context.Context, postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.items[postID]
	if !ok {
		return feed.ErrNotFound
	}
	post.Likes = appendUniqueString(post.Likes, userID)
	return nil
}

func (r *PostRepository) RemoveLike(ctx context.Context, postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.items[postID]
	if !ok {
		return feed.ErrNotFound
	}
	out := post.Likes[:0]
	for _, id := range post.Likes {
		if id != userID {
			out = append(out, id)
		}
	}
	post.Likes = out
	return nil
}

func (r *PostRepository) AddComment(ctx context.Context, postID string, comment feed.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.items[postID]
	if !ok {
		return feed.ErrNotFound
	}
	post.Comments = append(post.Comments, comment)
	return nil
}

func clonePost(p *feed.Post) *feed.Post {
	out := *p
	out.Likes = append([]string(nil), p.Likes...)
	out.Comments = append([]feed.Comment(nil), p.Comments...)
	return &out
}
