package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	"github.com/noah-isme/deptshare-api/internal/service"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/response"
)

type contentService interface {
	CreateFolder(ctx context.Context, actor *models.Actor, req dto.CreateFolderRequest) (*models.Folder, error)
	ListFolders(ctx context.Context, actor *models.Actor, parentID *string) ([]models.Folder, error)
	ListFiles(ctx context.Context, actor *models.Actor, folderID *string) ([]dto.FileView, error)
	FolderContents(ctx context.Context, actor *models.Actor, id string) (*dto.FolderContents, error)
	UpdateFolder(ctx context.Context, actor *models.Actor, id string, req dto.UpdateContentRequest) (*models.Folder, error)
	Upload(ctx context.Context, actor *models.Actor, req dto.UploadFileRequest, upload service.FileUpload, meta models.RequestMeta) (*dto.FileView, error)
	GetFile(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) (*dto.FileView, error)
	UpdateFile(ctx context.Context, actor *models.Actor, id string, req dto.UpdateContentRequest) (*dto.FileView, error)
	Search(ctx context.Context, actor *models.Actor, query string, limit int) (*dto.SearchResponse, error)
	Download(ctx context.Context, actor *models.Actor, id, token string, meta models.RequestMeta) (*service.BlobDownload, error)
}

type visibilityService interface {
	SetFileVisibility(ctx context.Context, actor *models.Actor, fileID string, public bool) (*dto.CascadeResult, error)
	SetFolderVisibility(ctx context.Context, actor *models.Actor, folderID string, public bool) (*dto.CascadeResult, error)
}

// ContentHandler exposes the folder and file tree.
type ContentHandler struct {
	content    contentService
	visibility visibilityService
}

// NewContentHandler constructs the handler.
func NewContentHandler(content contentService, visibility visibilityService) *ContentHandler {
	return &ContentHandler{content: content, visibility: visibility}
}

// CreateFolder godoc
// @Summary Create folder
// @Description Creates a folder. Without a parent the folder lands in the caller's active session and department.
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body dto.CreateFolderRequest true "Folder payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /folders [post]
func (h *ContentHandler) CreateFolder(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid folder payload"))
		return
	}
	folder, err := h.content.CreateFolder(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, folder)
}

// ListFolders godoc
// @Summary List folders
// @Tags Content
// @Produce json
// @Param parent query string false "Parent folder ID; omitted lists roots"
// @Success 200 {object} response.Envelope
// @Router /folders [get]
func (h *ContentHandler) ListFolders(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	folders, err := h.content.ListFolders(c.Request.Context(), actor, optionalQuery(c, "parent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, folders)
}

// FolderContents godoc
// @Summary Folder with its visible children and files
// @Tags Content
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /folders/{id} [get]
func (h *ContentHandler) FolderContents(c *gin.Context) {
	contents, err := h.content.FolderContents(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, contents)
}

// UpdateFolder godoc
// @Summary Rename or describe a folder
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param payload body dto.UpdateContentRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /folders/{id} [patch]
func (h *ContentHandler) UpdateFolder(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid folder payload"))
		return
	}
	folder, err := h.content.UpdateFolder(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, folder)
}

// SetFolderVisibility godoc
// @Summary Publish or unpublish a folder subtree
// @Description Applies the flag to the folder and every descendant folder and file.
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param payload body dto.VisibilityRequest true "Visibility"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /folders/{id}/visibility [post]
func (h *ContentHandler) SetFolderVisibility(c *gin.Context) {
	h.setVisibility(c, h.visibility.SetFolderVisibility)
}

// SetFileVisibility godoc
// @Summary Publish or unpublish a file
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param payload body dto.VisibilityRequest true "Visibility"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /files/{id}/visibility [post]
func (h *ContentHandler) SetFileVisibility(c *gin.Context) {
	h.setVisibility(c, h.visibility.SetFileVisibility)
}

func (h *ContentHandler) setVisibility(c *gin.Context, apply func(context.Context, *models.Actor, string, bool) (*dto.CascadeResult, error)) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.VisibilityRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid visibility payload"))
		return
	}
	result, err := apply(c.Request.Context(), actor, c.Param("id"), bool(req.IsPublic))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ListFiles godoc
// @Summary List own files
// @Tags Content
// @Produce json
// @Param folder query string false "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /files [get]
func (h *ContentHandler) ListFiles(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	files, err := h.content.ListFiles(c.Request.Context(), actor, optionalQuery(c, "folder"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, files)
}

// Upload godoc
// @Summary Upload a file
// @Tags Content
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File"
// @Param folder formData string false "Folder ID"
// @Param name formData string false "Display name"
// @Param description formData string false "Description"
// @Param is_public formData string false "Publish immediately"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /files [post]
func (h *ContentHandler) Upload(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.UploadFileRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid upload form"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if detected, err := mimetype.DetectReader(file); err == nil {
		contentType = detected.String()
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewind upload"))
		return
	}

	view, err := h.content.Upload(c.Request.Context(), actor, req, service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: contentType,
		Content:  file,
	}, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Search godoc
// @Summary Search files
// @Description Matches name, description and original filename. Non-staff see their own and public files.
// @Tags Content
// @Produce json
// @Param q query string true "Query"
// @Param limit query int false "Maximum results"
// @Success 200 {object} response.Envelope
// @Router /files/search [get]
func (h *ContentHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "q is required"))
		return
	}
	results, err := h.content.Search(c.Request.Context(), actorFromContext(c), query, intQuery(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, results)
}

// GetFile godoc
// @Summary File detail with a signed download URL
// @Tags Content
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id} [get]
func (h *ContentHandler) GetFile(c *gin.Context) {
	view, err := h.content.GetFile(c.Request.Context(), actorFromContext(c), c.Param("id"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// UpdateFile godoc
// @Summary Rename or describe a file
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param payload body dto.UpdateContentRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /files/{id} [patch]
func (h *ContentHandler) UpdateFile(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid file payload"))
		return
	}
	view, err := h.content.UpdateFile(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Download godoc
// @Summary Download a file through a signed token
// @Tags Content
// @Produce octet-stream
// @Param id path string true "File ID"
// @Param token query string true "Signed token from the file detail"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /files/{id}/download [get]
func (h *ContentHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	blob, err := h.content.Download(c.Request.Context(), actorFromContext(c), c.Param("id"), token, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveBlob(c, blob)
}
