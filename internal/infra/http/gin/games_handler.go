package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shamsa/internal/app/dto"
	"shamsa/internal/domain/games"
	domainuser "shamsa/internal/domain/user"
)

type GamesHTTP interface {
	Ask(c *gin.Context)
	Answer(c *gin.Context)
}

type GamesHandler struct {
	Service *games.Service
	Logger  *slog.Logger
}

func (h GamesHandler) Ask(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "games unavailable"})
		return
	}
	kind := games.Kind(c.Query("kind"))
	question, err := h.Service.Ask(c.Request.Context(), kind, p.Age)
	if err != nil {
		if errors.Is(err, games.ErrUnknownKind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown question kind"})
			return
		}
		if h.Logger != nil {
			h.Logger.Error("ask question failed", "error", err, "kind", kind)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, dto.MapQuestion(question))
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Choice     int    `json:"choice"`
}

func (h GamesHandler) Answer(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "games unavailable"})
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	correct, reward, err := h.Service.Answer(c.Request.Context(), domainuser.ID(p.ID), req.QuestionID, req.Choice)
	if err != nil {
		if errors.Is(err, games.ErrQuestionExpired) {
			c.JSON(http.StatusGone, gin.H{"error": "question expired"})
			return
		}
		if h.Logger != nil {
			h.Logger.Error("answer question failed", "error", err, "question_id", req.QuestionID)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, dto.AnswerResponse{Correct: correct, Reward: reward})
}

var _ GamesHTTP = (*GamesHandler)(nil)
