package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type memCache struct {
	store   map[string][]byte
	deleted []string
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.store == nil {
		c.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = payload
	return nil
}

func (c *memCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.store {
		if key == pattern || (strings.HasSuffix(pattern, "*") && strings.HasPrefix(key, prefix)) {
			delete(c.store, key)
		}
	}
	return nil
}

type fakeDashboardRepo struct {
	stats      models.DashboardStats
	uploads    []models.ChartPoint
	byDept     []models.ChartPoint
	statsCalls int
	since      time.Time
	err        error
}

func (f *fakeDashboardRepo) Stats(context.Context) (*models.DashboardStats, error) {
	f.statsCalls++
	if f.err != nil {
		return nil, f.err
	}
	stats := f.stats
	return &stats, nil
}

func (f *fakeDashboardRepo) UploadsPerDay(_ context.Context, since time.Time) ([]models.ChartPoint, error) {
	f.since = since
	return f.uploads, f.err
}

func (f *fakeDashboardRepo) FilesByDepartment(context.Context) ([]models.ChartPoint, error) {
	return f.byDept, f.err
}

type fakeRecentAudits struct {
	entries []models.FileAuditEntry
	limit   int
}

func (f *fakeRecentAudits) Recent(_ context.Context, limit int) ([]models.FileAuditEntry, error) {
	f.limit = limit
	return f.entries, nil
}

func TestDashboardStatsCachedUntilContentChanges(t *testing.T) {
	repo := &fakeDashboardRepo{stats: models.DashboardStats{Files: 3, StorageBytes: 1536}}
	cacheRepo := &memCache{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(DashboardServiceParams{Repo: repo, Cache: cacheSvc})
	ctx := context.Background()

	stats, hit, err := svc.Stats(ctx, staffActor)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "1.5 KB", stats.Storage)

	stats, hit, err = svc.Stats(ctx, staffActor)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, "1.5 KB", stats.Storage)
	assert.Equal(t, 1, repo.statsCalls)

	cacheSvc.InvalidateContent(ctx)
	_, hit, err = svc.Stats(ctx, staffActor)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.statsCalls)

	_, _, err = svc.Stats(ctx, facultyActor)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestDashboardStatsErrorIsInternal(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{Repo: &fakeDashboardRepo{err: errors.New("db down")}})
	_, _, err := svc.Stats(context.Background(), staffActor)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

func TestDashboardChartsFillEmptyDays(t *testing.T) {
	repo := &fakeDashboardRepo{
		uploads: []models.ChartPoint{{Label: "2026-10-17", Value: 4}, {Label: "2026-10-19", Value: 1}},
		byDept:  []models.ChartPoint{{Label: "Computer Science", Value: 12}},
	}
	svc := NewDashboardService(DashboardServiceParams{Repo: repo, Config: DashboardServiceConfig{ChartDays: 3}})
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC) }

	charts, err := svc.Charts(context.Background(), staffActor)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), repo.since)
	assert.Equal(t, []string{"2026-10-17", "2026-10-18", "2026-10-19"}, charts.UploadsPerDay.Labels)
	assert.Equal(t, []int{4, 0, 1}, charts.UploadsPerDay.Data)
	assert.Equal(t, []string{"Computer Science"}, charts.FilesByDepartment.Labels)
}

func TestDashboardRecentActivity(t *testing.T) {
	name := "faculty"
	file := "syllabus.pdf"
	audits := &fakeRecentAudits{entries: []models.FileAuditEntry{
		{Username: &name, Action: models.FileActionUpload, FileName: &file},
		{Action: models.FileActionDownload},
	}}
	svc := NewDashboardService(DashboardServiceParams{Repo: &fakeDashboardRepo{}, Audits: audits})

	entries, err := svc.RecentActivity(context.Background(), staffActor)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 10, audits.limit)
	assert.Equal(t, "faculty", entries[0].User)
	assert.Equal(t, "syllabus.pdf", entries[0].File)
	assert.Equal(t, "Anonymous", entries[1].User)
	assert.Equal(t, "Download", entries[1].Action)
}
