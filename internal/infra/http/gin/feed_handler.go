package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"shamsa/internal/app/dto"
	"shamsa/internal/domain/feed"
	domainuser "shamsa/internal/domain/user"
)

type FeedHTTP interface {
	Timeline(c *gin.Context)
	Publish(c *gin.Context)
	ToggleLike(c *gin.Context)
	Comment(c *gin.Context)
}

type FeedHandler struct {
	Service *feed.Service
	Users   domainuser.Repository
	Logger  *slog.Logger
}

func (h FeedHandler) Timeline(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed service unavailable"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	posts, err := h.Service.Timeline(c.Request.Context(), c.Query("author_id"), limit)
	if err != nil {
		h.respondFeedError(c, err, "load timeline")
		return
	}
	c.JSON(http.StatusOK, dto.MapPostList(posts, p.ID))
}

type publishRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

func (h FeedHandler) Publish(c *gin.Context) {
	author, ok := h.resolveUser(c)
	if !ok {
		return
	}
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	post, err := h.Service.Publish(c.Request.Context(), author, req.Content, req.ImageURL)
	if err != nil {
		h.respondFeedError(c, err, "publish post")
		return
	}
	c.JSON(http.StatusCreated, dto.MapPost(post, string(author.ID)))
}

func (h FeedHandler) ToggleLike(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed service unavailable"})
		return
	}
	postID := c.Param("id")
	liked, err := h.Service.ToggleLike(c.Request.Context(), postID, p.ID)
	if err != nil {
		h.respondFeedError(c, err, "toggle like", "post_id", postID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

type commentRequest struct {
	Content string `json:"content"`
}

func (h FeedHandler) Comment(c *gin.Context) {
	author, ok := h.resolveUser(c)
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	postID := c.Param("id")
	comment, err := h.Service.Comment(c.Request.Context(), postID, author, req.Content)
	if err != nil {
		h.respondFeedError(c, err, "add comment", "post_id", postID)
		return
	}
	c.JSON(http.StatusCreated, dto.MapComment(comment))
}

// resolveUser loads the full profile of the caller; handlers that write posts
// need the author snapshot, not just the principal.
func (h FeedHandler) resolveUser(c *gin.Context) (*domainuser.User, bool) {
	p, ok := requireAuth(c)
	if !ok {
		return nil, false
	}
	if h.Service == nil || h.Users == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed service unavailable"})
		return nil, false
	}
	u, err := h.Users.ByID(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		h.respondFeedError(c, err, "resolve author", "user_id", p.ID)
		return nil, false
	}
	return u, true
}

func (h FeedHandler) respondFeedError(c *gin.Context, err error, op string, fields ...any) {
	switch {
	case errors.Is(err, feed.ErrContentRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, feed.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		if h.Logger != nil {
			args := append([]any{"error", err}, fields...)
			h.Logger.Error(op+" failed", args...)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

var _ FeedHTTP = (*FeedHandler)(nil)
