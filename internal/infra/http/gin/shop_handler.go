package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shamsa/internal/app/dto"
	"shamsa/internal/domain/shop"
	domainuser "shamsa/internal/domain/user"
)

type ShopHTTP interface {
	Catalog(c *gin.Context)
	Purchase(c *gin.Context)
}

type ShopHandler struct {
	Service *shop.Service
	Users   domainuser.Repository
	Logger  *slog.Logger
}

func (h ShopHandler) Catalog(c *gin.Context) {
	buyer, ok := h.resolveBuyer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.MapCatalog(shop.Catalog(), buyer.OwnsEmoji, buyer.Dragons))
}

type purchaseRequest struct {
	EmojiID string `json:"emoji_id"`
}

func (h ShopHandler) Purchase(c *gin.Context) {
	buyer, ok := h.resolveBuyer(c)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	emoji, err := h.Service.Purchase(c.Request.Context(), buyer, req.EmojiID)
	if err != nil {
		h.respondShopError(c, err, req.EmojiID)
		return
	}
	c.JSON(http.StatusOK, dto.PurchaseResponse{
		Emoji:   dto.MapEmoji(emoji, true),
		Dragons: buyer.Dragons - emoji.Price,
	})
}

func (h ShopHandler) resolveBuyer(c *gin.Context) (*domainuser.User, bool) {
	p, ok := requireAuth(c)
	if !ok {
		return nil, false
	}
	if h.Service == nil || h.Users == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shop unavailable"})
		return nil, false
	}
	buyer, err := h.Users.ByID(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
			return nil, false
		}
		if h.Logger != nil {
			h.Logger.Error("resolve buyer failed", "error", err, "user_id", p.ID)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	return buyer, true
}

func (h ShopHandler) respondShopError(c *gin.Context, err error, emojiID string) {
	switch {
	case errors.Is(err, shop.ErrEmojiNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "emoji not found"})
	case errors.Is(err, shop.ErrAlreadyOwned):
		c.JSON(http.StatusConflict, gin.H{"error": "emoji already owned"})
	case errors.Is(err, shop.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "not enough dragons"})
	default:
		if h.Logger != nil {
			h.Logger.Error("purchase failed", "error", err, "emoji_id", emojiID)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ ShopHTTP = (*ShopHandler)(nil)
