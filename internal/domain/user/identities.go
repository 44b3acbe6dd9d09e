package user

import (
	"context"
	"errors"
	"fmt"

	"shamsa/internal/domain/chat"
)

// IdentityDirectory adapts the user repository to the chat core's Identities
// collaborator.
type IdentityDirectory struct {
	Users Repository
}

// Lookup resolves id to its display profile, translating a missing user into
// the chat package's ErrNotFound.
func (d IdentityDirectory) Lookup(ctx context.Context, id string) (chat.Profile, error) {
	u, err := d.Users.ByID(ctx, ID(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return chat.Profile{}, chat.ErrNotFound
		}
		return chat.Profile{}, fmt.Errorf("user: lookup %s: %w", id, err)
	}
	return chat.Profile{ID: string(u.ID), DisplayName: u.DisplayName, Avatar: u.ProfilePicture}, nil
}

var _ chat.Identities = IdentityDirectory{}
