package handler

import (
	"context"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	"github.com/noah-isme/deptshare-api/internal/service"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, actor *models.Actor, req dto.GenerateExportRequest) (*dto.LogFileView, error)
	List(ctx context.Context, actor *models.Actor) ([]dto.LogFileView, error)
	Open(ctx context.Context, id, token string) (*os.File, *models.LogFile, error)
}

type scanService interface {
	Scan(ctx context.Context, actor *models.Actor, req dto.ScanRequest, meta models.RequestMeta) (*dto.ScanReport, error)
}

var exportContentTypes = map[string]string{
	"csv": "text/csv",
	"pdf": "application/pdf",
}

// AdminHandler exposes audit exports and the storage import.
type AdminHandler struct {
	exports exportService
	scans   scanService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(exports exportService, scans scanService) *AdminHandler {
	return &AdminHandler{exports: exports, scans: scans}
}

// GenerateExport godoc
// @Summary Export the file audit log
// @Description Renders the last N days of file activity as CSV or PDF.
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.GenerateExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/logs [post]
func (h *AdminHandler) GenerateExport(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.GenerateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid export payload"))
		return
	}
	view, err := h.exports.Generate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// ListExports godoc
// @Summary Available audit exports
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/logs [get]
func (h *AdminHandler) ListExports(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	views, err := h.exports.List(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, views)
}

// DownloadExport godoc
// @Summary Download an audit export
// @Tags Admin
// @Produce octet-stream
// @Param id path string true "Export ID"
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /admin/logs/{id}/download [get]
func (h *AdminHandler) DownloadExport(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, record, err := h.exports.Open(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveBlob(c, &service.BlobDownload{
		File:     file,
		Filename: record.Name,
		MimeType: exportContentTypes[record.Format],
		Size:     record.FileSize,
	})
}

// Scan godoc
// @Summary Import blobs already present in storage
// @Description Walks "{year}_{session}/{DEPT}/..." and catalogues unknown blobs as manual entries.
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.ScanRequest false "Scan options"
// @Success 200 {object} response.Envelope
// @Router /admin/scan [post]
func (h *AdminHandler) Scan(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.ScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid scan payload"))
			return
		}
	}
	report, err := h.scans.Scan(c.Request.Context(), actor, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
