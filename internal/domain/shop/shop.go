package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"shamsa/internal/domain/user"
)

var (
	ErrEmojiNotFound     = errors.New("shop: emoji not found")
	ErrAlreadyOwned      = errors.New("shop: emoji already owned")
	ErrInsufficientFunds = errors.New("shop: not enough dragons")
)

// Emoji is one purchasable item; the catalog is fixed at build time like the
// client's.
type Emoji struct {
	ID    string
	Glyph string
	Name  string
	Price int
}

// Catalog returns the purchasable emojis, cheapest first.
func Catalog() []Emoji {
	return []Emoji{
		{ID: "clap", Glyph: "👏", Name: "Applause", Price: 10},
		{ID: "fire", Glyph: "🔥", Name: "Fire", Price: 15},
		{ID: "heart-eyes", Glyph: "😍", Name: "Heart Eyes", Price: 20},
		{ID: "party", Glyph: "🥳", Name: "Party", Price: 25},
		{ID: "dragon", Glyph: "🐉", Name: "Dragon", Price: 50},
		{ID: "crown", Glyph: "👑", Name: "Crown", Price: 75},
	}
}

// Service sells catalog emojis against the dragon balance.
type Service struct {
	Users  user.Repository
	Logger *slog.Logger
}

// Find returns the catalog entry for emojiID.
func Find(emojiID string) (Emoji, bool) {
	for _, e := range Catalog() {
		if e.ID == emojiID {
			return e, true
		}
	}
	return Emoji{}, false
}

// Purchase deducts the price from buyer's balance and grants the emoji. The
// deduction and the grant are two independent writes; a grant failure after a
// successful deduction is logged for manual reconciliation rather than rolled
// back, mirroring how the rest of the system treats denormalized pairs.
func (s *Service) Purchase(ctx context.Context, buyer *user.User, emojiID string) (Emoji, error) {
	emoji, ok := Find(emojiID)
	if !ok {
		return Emoji{}, fmt.Errorf("%w: %s", ErrEmojiNotFound, emojiID)
	}
	if buyer.OwnsEmoji(emoji.ID) {
		return Emoji{}, ErrAlreadyOwned
	}
	if buyer.Dragons < emoji.Price {
		return Emoji{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, emoji.Price, buyer.Dragons)
	}
	if err := s.Users.AdjustDragons(ctx, buyer.ID, -emoji.Price); err != nil {
		if errors.Is(err, user.ErrInsufficientFunds) {
			return Emoji{}, ErrInsufficientFunds
		}
		return Emoji{}, fmt.Errorf("shop: charge purchase: %w", err)
	}
	if err := s.Users.GrantEmoji(ctx, buyer.ID, emoji.ID); err != nil {
		if s.Logger != nil {
			s.Logger.Error("emoji grant failed after charge", "user_id", buyer.ID, "emoji_id", emoji.ID, "error", err)
		}
		return Emoji{}, fmt.Errorf("shop: grant emoji: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("emoji purchased", "user_id", buyer.ID, "emoji_id", emoji.ID, "price", emoji.Price)
	}
	return emoji, nil
}
