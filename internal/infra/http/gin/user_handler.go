package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"shamsa/internal/app/dto"
	domainuser "shamsa/internal/domain/user"
)

type UserHTTP interface {
	Get(c *gin.Context)
	UpdateMe(c *gin.Context)
	Search(c *gin.Context)
	Follow(c *gin.Context)
	Unfollow(c *gin.Context)
}

type UserHandler struct {
	Users  domainuser.Repository
	Logger *slog.Logger
}

func (h UserHandler) Get(c *gin.Context) {
	if h.Users == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "user service unavailable"})
		return
	}
	id := c.Param("id")
	u, err := h.Users.ByID(c.Request.Context(), domainuser.ID(id))
	if err != nil {
		h.respondUserError(c, err, "get user", "user_id", id)
		return
	}
	if p, ok := currentPrincipal(c); ok && p.ID == id {
		c.JSON(http.StatusOK, dto.MapUserProfile(u))
		return
	}
	c.JSON(http.StatusOK, dto.MapPublicProfile(u))
}

type updateProfileRequest struct {
	DisplayName    *string `json:"display_name"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
	Age            *int    `json:"age"`
}

func (h UserHandler) UpdateMe(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Users == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "user service unavailable"})
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "display name cannot be empty"})
		return
	}
	updated, err := h.Users.UpdateProfile(c.Request.Context(), domainuser.ID(p.ID), domainuser.ProfilePatch{
		DisplayName:    req.DisplayName,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
		Age:            req.Age,
	})
	if err != nil {
		h.respondUserError(c, err, "update profile", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(updated))
}

func (h UserHandler) Search(c *gin.Context) {
	if _, ok := requireAuth(c); !ok {
		return
	}
	if h.Users == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "user service unavailable"})
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	users, err := h.Users.Search(c.Request.Context(), query, limit)
	if err != nil {
		h.respondUserError(c, err, "search users", "query", query)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": dto.MapUserSummaries(users)})
}

func (h UserHandler) Follow(c *gin.Context) {
	h.setFollowing(c, true)
}

func (h UserHandler) Unfollow(c *gin.Context) {
	h.setFollowing(c, false)
}

func (h UserHandler) setFollowing(c *gin.Context, follow bool) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Users == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "user service unavailable"})
		return
	}
	targetID := c.Param("id")
	if targetID == p.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot follow yourself"})
		return
	}
	if _, err := h.Users.ByID(c.Request.Context(), domainuser.ID(targetID)); err != nil {
		h.respondUserError(c, err, "resolve follow target", "user_id", targetID)
		return
	}
	var err error
	if follow {
		err = h.Users.Follow(c.Request.Context(), domainuser.ID(p.ID), domainuser.ID(targetID))
	} else {
		err = h.Users.Unfollow(c.Request.Context(), domainuser.ID(p.ID), domainuser.ID(targetID))
	}
	if err != nil {
		h.respondUserError(c, err, "update follow edge", "user_id", targetID)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h UserHandler) respondUserError(c *gin.Context, err error, op string, fields ...any) {
	switch {
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

var _ UserHTTP = (*UserHandler)(nil)
