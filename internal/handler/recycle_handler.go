package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	"github.com/noah-isme/deptshare-api/pkg/response"
)

type recycleService interface {
	DeleteFolder(ctx context.Context, actor *models.Actor, folderID string) (*dto.CascadeResult, error)
	DeleteFile(ctx context.Context, actor *models.Actor, fileID string, meta models.RequestMeta) (*dto.CascadeResult, error)
	RestoreFolder(ctx context.Context, actor *models.Actor, folderID string) (*dto.CascadeResult, error)
	RestoreFile(ctx context.Context, actor *models.Actor, fileID string) (*dto.CascadeResult, error)
	PurgeFolder(ctx context.Context, actor *models.Actor, folderID string) (*dto.CascadeResult, error)
	PurgeFile(ctx context.Context, actor *models.Actor, fileID string) (*dto.CascadeResult, error)
	RecycleBin(ctx context.Context, actor *models.Actor) (*dto.RecycleBin, error)
}

// RecycleHandler handles soft delete, restore and permanent removal.
type RecycleHandler struct {
	service recycleService
}

// NewRecycleHandler constructs the handler.
func NewRecycleHandler(service recycleService) *RecycleHandler {
	return &RecycleHandler{service: service}
}

type cascadeFunc func(ctx context.Context, actor *models.Actor, id string) (*dto.CascadeResult, error)

func (h *RecycleHandler) run(c *gin.Context, fn cascadeFunc) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	result, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteFolder godoc
// @Summary Move a folder subtree to the recycle bin
// @Tags Recycle Bin
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /folders/{id} [delete]
func (h *RecycleHandler) DeleteFolder(c *gin.Context) {
	h.run(c, h.service.DeleteFolder)
}

// DeleteFile godoc
// @Summary Move a file to the recycle bin
// @Tags Recycle Bin
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /files/{id} [delete]
func (h *RecycleHandler) DeleteFile(c *gin.Context) {
	meta := requestMeta(c)
	h.run(c, func(ctx context.Context, actor *models.Actor, id string) (*dto.CascadeResult, error) {
		return h.service.DeleteFile(ctx, actor, id, meta)
	})
}

// List godoc
// @Summary Recycle bin contents
// @Description Deleted folders and files owned by the caller; staff see every deleted item.
// @Tags Recycle Bin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /recycle-bin [get]
func (h *RecycleHandler) List(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	bin, err := h.service.RecycleBin(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bin)
}

// RestoreFolder godoc
// @Summary Restore a folder subtree
// @Tags Recycle Bin
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /recycle-bin/folders/{id}/restore [post]
func (h *RecycleHandler) RestoreFolder(c *gin.Context) {
	h.run(c, h.service.RestoreFolder)
}

// RestoreFile godoc
// @Summary Restore a file
// @Tags Recycle Bin
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /recycle-bin/files/{id}/restore [post]
func (h *RecycleHandler) RestoreFile(c *gin.Context) {
	h.run(c, h.service.RestoreFile)
}

// PurgeFolder godoc
// @Summary Permanently delete a folder subtree and its blobs
// @Tags Recycle Bin
// @Produce json
// @Param id path string true "Folder ID"
// @Success 200 {object} response.Envelope
// @Router /recycle-bin/folders/{id} [delete]
func (h *RecycleHandler) PurgeFolder(c *gin.Context) {
	h.run(c, h.service.PurgeFolder)
}

// PurgeFile godoc
// @Summary Permanently delete a file and its blob
// @Tags Recycle Bin
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Router /recycle-bin/files/{id} [delete]
func (h *RecycleHandler) PurgeFile(c *gin.Context) {
	h.run(c, h.service.PurgeFile)
}
