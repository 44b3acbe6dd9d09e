package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"shamsa/internal/domain/user"
)

// UserRepository is an in-memory user.Repository for dev mode and tests.
type UserRepository struct {
	mu    sync.RWMutex
	items map[user.ID]*user.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{items: make(map[user.ID]*user.User)}
}

func (r *UserRepository) ByID(ctx context.Context, id user.ID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.items[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*user.User, error) {
	email = user.NormalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.items {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.items {
		if existing.Email == u.Email && id != u.ID {
			return user.ErrEmailAlreadyUsed
		}
	}
	r.items[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepository) Search(ctx context.Context, namePrefix string, limit int) ([]*user.User, error) {
	prefix := strings.ToLower(strings.TrimSpace(namePrefix))
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*user.User
	for _, u := range r.items {
		if prefix == "" || strings.HasPrefix(strings.ToLower(u.DisplayName), prefix) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id user.ID, patch user.ProfilePatch) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	if patch.DisplayName != nil && strings.TrimSpace(*patch.DisplayName) != "" {
		u.DisplayName = strings.TrimSpace(*patch.DisplayName)
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.ProfilePicture != nil {
		u.ProfilePicture = *patch.ProfilePicture
	}
	if patch.Age != nil && *patch.Age > 0 {
		u.Age = *patch.Age
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (r *UserRepository) Follow(ctx context.Context, follower, target user.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.items[follower]
	if !ok {
		return user.ErrNotFound
	}
	t, ok := r.items[target]
	if !ok {
		return user.ErrNotFound
	}
	f.Following = appendUnique(f.Following, target)
	t.Followers = appendUnique(t.Followers, follower)
	return nil
}

func (r *UserRepository) Unfollow(ctx context.Context, follower, target user.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.items[follower]
	if !ok {
		return user.ErrNotFound
	}
	t, ok := r.items[target]
	if !ok {
		return user.ErrNotFound
	}
	f.Following = removeID(f.Following, target)
	t.Followers = removeID(t.Followers, follower)
	return nil
}

func (r *UserRepository) AdjustDragons(ctx context.Context, id user.ID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}
	if u.Dragons+delta < 0 {
		return user.ErrInsufficientFunds
	}
	u.Dragons += delta
	return nil
}

func (r *UserRepository) GrantEmoji(ctx context.Context, id user.ID, emojiID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}
	u.Emojis = appendUniqueString(u.Emojis, emojiID)
	return nil
}

func (r *UserRepository) IncrementPostsCount(ctx context.Context, id user.ID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PostsCount += delta
	if u.PostsCount < 0 {
		u.PostsCount = 0
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id user.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func cloneUser(u *user.User) *user.User {
	out := *u
	out.Emojis = append([]string(nil), u.Emojis...)
	out.Followers = append([]user.ID(nil), u.Followers...)
	out.Following = append([]user.ID(nil), u.Following...)
	return &out
}

func appendUnique(ids []user.ID, id user.ID) []user.ID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func appendUniqueString(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}

func removeID(ids []user.ID, id user.ID) []user.ID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
