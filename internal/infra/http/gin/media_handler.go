package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shamsa/internal/infra/storage/s3"
)

// maxUploadBytes caps a single media upload.
const maxUploadBytes = 10 << 20

type MediaHTTP interface {
	Upload(c *gin.Context)
}

type MediaHandler struct {
	Uploader s3.Uploader
	Logger   *slog.Logger
}

// Upload accepts one multipart file and returns its public URL for use as an
// avatar, post image or chat media reference.
func (h MediaHandler) Upload(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "media storage unavailable"})
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	key := fmt.Sprintf("uploads/%s/%s%s", p.ID, uuid.NewString(), sanitizeExtension(header.Filename))
	url, err := h.Uploader.Upload(c.Request.Context(), key, file, header.Header.Get("Content-Type"))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("media upload failed", "error", err, "key", key)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func sanitizeExtension(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".mp4":
		return ext
	default:
		return ""
	}
}

var _ MediaHTTP = (*MediaHandler)(nil)
