package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: display name is required")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
	ErrInsufficientFunds   = errors.New("user: insufficient dragon balance")
)

type ID string

// DefaultAvatar is assigned at signup when no picture was provided.
const DefaultAvatar = "/default-avatar.png"

// User is a member profile: auth material plus the social fields rendered on
// profile pages. Dragons is the in-app currency earned in games and spent in
// the emoji shop.
type User struct {
	ID             ID
	Email          string
	DisplayName    string
	PasswordHash   string
	Age            int
	Bio            string
	ProfilePicture string
	Dragons        int
	Emojis         []string
	Followers      []ID
	Following      []ID
	PostsCount     int
	IsOnline       bool
	LastSeen       time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsFollowing reports whether u follows other.
func (u *User) IsFollowing(other ID) bool {
	for _, id := range u.Following {
		if id == other {
			return true
		}
	}
	return false
}

// OwnsEmoji reports whether emojiID was already purchased.
func (u *User) OwnsEmoji(emojiID string) bool {
	for _, id := range u.Emojis {
		if id == emojiID {
			return true
		}
	}
	return false
}

// ProfilePatch carries the mutable profile fields; nil means unchanged.
type ProfilePatch struct {
	DisplayName    *string
	Bio            *string
	ProfilePicture *string
	Age            *int
}

// Repository is the user collection of the document store.
type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	// Search matches display names by case-insensitive prefix.
	Search(ctx context.Context, namePrefix string, limit int) ([]*User, error)
	// UpdateProfile applies patch and returns the updated user.
	UpdateProfile(ctx context.Context, id ID, patch ProfilePatch) (*User, error)
	// Follow adds follower to target's followers and target to follower's
	// following; the two array updates are independent, not transactional.
	Follow(ctx context.Context, follower, target ID) error
	Unfollow(ctx context.Context, follower, target ID) error
	// AdjustDragons adds delta to the balance, failing with
	// ErrInsufficientFunds when the result would go negative.
	AdjustDragons(ctx context.Context, id ID, delta int) error
	GrantEmoji(ctx context.Context, id ID, emojiID string) error
	IncrementPostsCount(ctx context.Context, id ID, delta int) error
	Delete(ctx context.Context, id ID) error
}

// CreateParams is the signup input.
type CreateParams struct {
	ID             ID
	Email          string
	DisplayName    string
	PasswordHash   string
	Age            int
	ProfilePicture string
	CreatedAt      time.Time
}

// NewUser validates params and builds a fresh profile with the signup
// defaults: zero dragons, no emojis, a greeting bio.
func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.DisplayName)
	if name == "" {
		return nil, ErrNameRequired
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	avatar := strings.TrimSpace(params.ProfilePicture)
	if avatar == "" {
		avatar = DefaultAvatar
	}

	return &User{
		ID:             ID(id),
		Email:          email,
		DisplayName:    name,
		PasswordHash:   params.PasswordHash,
		Age:            params.Age,
		Bio:            "Hi, I'm " + name + "! 👋",
		ProfilePicture: avatar,
		Dragons:        0,
		Emojis:         []string{},
		IsOnline:       true,
		LastSeen:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
