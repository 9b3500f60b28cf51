package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type fakeDashboardSrv struct {
	stats *models.DashboardStats
	hit   bool
}

func (f *fakeDashboardSrv) Stats(_ context.Context, actor *models.Actor) (*models.DashboardStats, bool, error) {
	if !actor.IsAdmin() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	return f.stats, f.hit, nil
}

func (f *fakeDashboardSrv) Charts(context.Context, *models.Actor) (*dto.DashboardCharts, error) {
	return &dto.DashboardCharts{UploadsPerDay: models.NewChartSeries([]models.ChartPoint{{Label: "2025-01-01", Value: 2}})}, nil
}

func (f *fakeDashboardSrv) RecentActivity(context.Context, *models.Actor) ([]dto.ActivityEntry, error) {
	return []dto.ActivityEntry{}, nil
}

func TestDashboardHandlerStatsRequiresAdmin(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	c, rec := newTestContext(http.MethodGet, "/admin/dashboard", nil, nil)
	handler.Stats(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/admin/dashboard", nil, ownerActor)
	handler.Stats(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardHandlerStatsReportsCacheHit(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{
		stats: &models.DashboardStats{Files: 4, Storage: "1.5 MB"},
		hit:   true,
	})

	c, rec := newTestContext(http.MethodGet, "/admin/dashboard", nil, adminActor)
	handler.Stats(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, float64(4), envelope.Data["files"])
	assert.Equal(t, "1.5 MB", envelope.Data["storage"])
}

func TestDashboardHandlerCharts(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	c, rec := newTestContext(http.MethodGet, "/admin/dashboard/charts", nil, adminActor)
	handler.Charts(c)

	require.Equal(t, http.StatusOK, rec.Code)
	series := decodeEnvelope(t, rec).Data["uploads_per_day"].(map[string]interface{})
	assert.Equal(t, []interface{}{"2025-01-01"}, series["labels"])
}
