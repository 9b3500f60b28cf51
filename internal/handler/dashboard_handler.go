package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/middleware"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/response"
)

type dashboardService interface {
	Stats(ctx context.Context, actor *models.Actor) (*models.DashboardStats, bool, error)
	Charts(ctx context.Context, actor *models.Actor) (*dto.DashboardCharts, error)
	RecentActivity(ctx context.Context, actor *models.Actor) ([]dto.ActivityEntry, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats godoc
// @Summary Admin overview counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor := requireActor(c)
	if actor == nil {
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.service.Stats(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, stats, nil, meta)
}

// Charts godoc
// @Summary Uploads per day and files per department
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard/charts [get]
func (h *DashboardHandler) Charts(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	charts, err := h.service.Charts(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, charts)
}

// Activity godoc
// @Summary Recent file activity
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard/activity [get]
func (h *DashboardHandler) Activity(c *gin.Context) {
	actor := requireActor(c)
	if actor == nil {
		return
	}
	entries, err := h.service.RecentActivity(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}
