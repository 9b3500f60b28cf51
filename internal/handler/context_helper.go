package handler

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deptshare-api/internal/middleware"
	"github.com/noah-isme/deptshare-api/internal/models"
	"github.com/noah-isme/deptshare-api/internal/service"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/response"
)

func actorFromContext(c *gin.Context) *models.Actor {
	return middleware.Actor(c)
}

// requireActor writes 401 and returns nil when the request is anonymous.
func requireActor(c *gin.Context) *models.Actor {
	actor := middleware.Actor(c)
	if !actor.Authenticated() {
		response.Abort(c, appErrors.ErrUnauthorized)
		return nil
	}
	return actor
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func optionalQuery(c *gin.Context, key string) *string {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	return &value
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

// serveBlob streams an opened blob as an attachment and closes it.
func serveBlob(c *gin.Context, blob *service.BlobDownload) {
	defer blob.File.Close()
	contentType := blob.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": blob.Filename})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, blob.Size, contentType, blob.File, nil)
}
