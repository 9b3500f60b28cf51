package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	"github.com/noah-isme/deptshare-api/internal/service"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/response"
)

// SharePasswordHeader carries the password for password-protected links on GET requests.
const SharePasswordHeader = "X-Share-Password"

type shareService interface {
	CreateLink(ctx context.Context, actor *models.Actor, req dto.CreateShareRequest, meta models.RequestMeta) (*dto.ShareLinkView, error)
	ListLinks(ctx context.Context, actor *models.Actor) ([]dto.ShareLinkView, error)
	DeactivateLink(ctx context.Context, actor *models.Actor, id string) error
	ResolveLink(ctx context.Context, requester *models.Actor, token, password string, meta models.RequestMeta) (*dto.ShareResolveResponse, error)
	DownloadShared(ctx context.Context, token, signature string) (*service.BlobDownload, error)
}

// ShareHandler manages share links and their public resolution.
type ShareHandler struct {
	service shareService
}

// NewShareHandler constructs the handler.
func NewShareHandler(service shareService) *ShareHandler {
	return &ShareHandler{service: service}
}

// Create godoc
// @Summary Create a share link
// @Description Shares exactly one file or folder as a public, email-restricted or password-protected link.
// @Tags Sharing
// @Accept json
// @Produce json
// @Param payload body dto.CreateShareRequest true "Share payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /shares [post]
func (h *ShareHandler) Create(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	var req dto.CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid share payload"))
		return
	}
	link, err := h.service.CreateLink(c.Request.Context(), actor, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// List godoc
// @Summary List own share links
// @Tags Sharing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /shares [get]
func (h *ShareHandler) List(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	links, err := h.service.ListLinks(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, links)
}

// Deactivate godoc
// @Summary Deactivate a share link
// @Tags Sharing
// @Param id path string true "Share link ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /shares/{id} [delete]
func (h *ShareHandler) Deactivate(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	if err := h.service.DeactivateLink(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Resolve godoc
// @Summary Resolve a share link
// @Description Returns the shared file with a signed download URL, or the shared folder tree.
// @Tags Sharing
// @Produce json
// @Param token path string true "Share token"
// @Param X-Share-Password header string false "Password for protected links"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /share/{token} [get]
func (h *ShareHandler) Resolve(c *gin.Context) {
	h.resolve(c, c.GetHeader(SharePasswordHeader))
}

// Unlock godoc
// @Summary Resolve a password-protected share link
// @Tags Sharing
// @Accept json
// @Produce json
// @Param token path string true "Share token"
// @Param payload body map[string]string true "Password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /share/{token} [post]
func (h *ShareHandler) Unlock(c *gin.Context) {
	var payload struct {
		Password string `json:"password" form:"password" binding:"required"`
	}
	if err := c.ShouldBind(&payload); err != nil {
		response.Error(c, bindError(err, "password required"))
		return
	}
	h.resolve(c, payload.Password)
}

func (h *ShareHandler) resolve(c *gin.Context, password string) {
	resolved, err := h.service.ResolveLink(c.Request.Context(), actorFromContext(c), c.Param("token"), password, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resolved)
}

// Download godoc
// @Summary Download a shared file
// @Tags Sharing
// @Produce octet-stream
// @Param token path string true "Share token"
// @Param sig query string true "Signature issued when the link resolved"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /share/{token}/download [get]
func (h *ShareHandler) Download(c *gin.Context) {
	signature := strings.TrimSpace(c.Query("sig"))
	if signature == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sig is required"))
		return
	}
	blob, err := h.service.DownloadShared(c.Request.Context(), c.Param("token"), signature)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveBlob(c, blob)
}
