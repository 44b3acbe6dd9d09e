package dto

import (
	"time"

	domainuser "shamsa/internal/domain/user"
)

// UserProfile is the full profile returned to the owner or to profile pages.
type UserProfile struct {
	ID             string    `json:"id"`
	Email          string    `json:"email,omitempty"`
	DisplayName    string    `json:"display_name"`
	Age            int       `json:"age,omitempty"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profile_picture"`
	Dragons        int       `json:"dragons"`
	Emojis         []string  `json:"emojis"`
	Followers      []string  `json:"followers"`
	Following      []string  `json:"following"`
	PostsCount     int       `json:"posts_count"`
	IsOnline       bool      `json:"is_online"`
	LastSeen       time.Time `json:"last_seen"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserSummary is the compact card used in search results and follower lists.
type UserSummary struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	ProfilePicture string `json:"profile_picture"`
	Bio            string `json:"bio,omitempty"`
	IsOnline       bool   `json:"is_online"`
}

type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	return UserProfile{
		ID:             string(user.ID),
		Email:          user.Email,
		DisplayName:    user.DisplayName,
		Age:            user.Age,
		Bio:            user.Bio,
		ProfilePicture: user.ProfilePicture,
		Dragons:        user.Dragons,
		Emojis:         emptyIfNil(user.Emojis),
		Followers:      mapIDs(user.Followers),
		Following:      mapIDs(user.Following),
		PostsCount:     user.PostsCount,
		IsOnline:       user.IsOnline,
		LastSeen:       user.LastSeen,
		CreatedAt:      user.CreatedAt,
	}
}

// MapPublicProfile strips the fields only the owner should see.
func MapPublicProfile(user *domainuser.User) UserProfile {
	profile := MapUserProfile(user)
	profile.Email = ""
	return profile
}

func MapUserSummary(user *domainuser.User) UserSummary {
	if user == nil {
		return UserSummary{}
	}
	return UserSummary{
		ID:             string(user.ID),
		DisplayName:    user.DisplayName,
		ProfilePicture: user.ProfilePicture,
		Bio:            user.Bio,
		IsOnline:       user.IsOnline,
	}
}

func MapUserSummaries(users []*domainuser.User) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, MapUserSummary(u))
	}
	return out
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{
		User:  MapUserProfile(user),
		Token: token,
	}
}

func mapIDs(ids []domainuser.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
