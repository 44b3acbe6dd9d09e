package shop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shamsa/internal/domain/shop"
	"shamsa/internal/domain/user"
	"shamsa/internal/infra/storage/memory"
)

func newBuyer(t *testing.T, users *memory.UserRepository, dragons int) *user.User {
	t.Helper()
	buyer, err := user.NewUser(user.CreateParams{
		ID:           "b1",
		Email:        "buyer@example.com",
		DisplayName:  "Buyer",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	require.NoError(t, users.Save(context.Background(), buyer))
	require.NoError(t, users.AdjustDragons(context.Background(), buyer.ID, dragons))
	reloaded, err := users.ByID(context.Background(), buyer.ID)
	require.NoError(t, err)
	return reloaded
}

func TestPurchaseChargesAndGrants(t *testing.T) {
	users := memory.NewUserRepository()
	buyer := newBuyer(t, users, 50)
	svc := &shop.Service{Users: users}

	emoji, err := svc.Purchase(context.Background(), buyer, "fire")
	require.NoError(t, err)
	assert.Equal(t, "fire", emoji.ID)

	updated, err := users.ByID(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 50-emoji.Price, updated.Dragons)
	assert.True(t, updated.OwnsEmoji("fire"))
}

func TestPurchaseUnknownEmoji(t *testing.T) {
	users := memory.NewUserRepository()
	buyer := newBuyer(t, users, 100)
	svc := &shop.Service{Users: users}

	_, err := svc.Purchase(context.Background(), buyer, "nonexistent")
	assert.ErrorIs(t, err, shop.ErrEmojiNotFound)
}

func TestPurchaseAlreadyOwned(t *testing.T) {
	users := memory.NewUserRepository()
	buyer := newBuyer(t, users, 100)
	svc := &shop.Service{Users: users}

	_, err := svc.Purchase(context.Background(), buyer, "clap")
	require.NoError(t, err)

	reloaded, err := users.ByID(context.Background(), buyer.ID)
	require.NoError(t, err)
	_, err = svc.Purchase(context.Background(), reloaded, "clap")
	assert.ErrorIs(t, err, shop.ErrAlreadyOwned)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	users := memory.NewUserRepository()
	buyer := newBuyer(t, users, 5)
	svc := &shop.Service{Users: users}

	_, err := svc.Purchase(context.Background(), buyer, "crown")
	assert.ErrorIs(t, err, shop.ErrInsufficientFunds)

	updated, err := users.ByID(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Dragons)
	assert.False(t, updated.OwnsEmoji("crown"))
}

func TestCatalogSortedByPrice(t *testing.T) {
	catalog := shop.Catalog()
	require.NotEmpty(t, catalog)
	for i := 1; i < len(catalog); i++ {
		assert.LessOrEqual(t, catalog[i-1].Price, catalog[i].Price)
	}
}
