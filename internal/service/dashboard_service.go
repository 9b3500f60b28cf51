package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type dashboardRepository interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
	UploadsPerDay(ctx context.Context, since time.Time) ([]models.ChartPoint, error)
	FilesByDepartment(ctx context.Context) ([]models.ChartPoint, error)
}

type recentAuditReader interface {
	Recent(ctx context.Context, limit int) ([]models.FileAuditEntry, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL      time.Duration
	ChartDays     int
	ActivityLimit int
}

// DashboardService composes the administrator overview.
type DashboardService struct {
	repo   dashboardRepository
	audits recentAuditReader
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo   dashboardRepository
	Audits recentAuditReader
	Cache  *CacheService
	Logger *zap.Logger
	Config DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ChartDays <= 0 {
		cfg.ChartDays = 7
	}
	if cfg.ActivityLimit <= 0 {
		cfg.ActivityLimit = 10
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:   params.Repo,
		audits: params.Audits,
		cache:  params.Cache,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// Stats returns the overview counters and reports whether they came from cache.
func (s *DashboardService) Stats(ctx context.Context, actor *models.Actor) (*models.DashboardStats, bool, error) {
	if !actor.IsAdmin() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	var cached models.DashboardStats
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		cached.Storage = models.HumanizeBytes(cached.StorageBytes)
		return &cached, true, nil
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard stats")
	}
	stats.Storage = models.HumanizeBytes(stats.StorageBytes)
	if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return stats, false, nil
}

// Charts returns uploads per day over the configured window, oldest day first with
// empty days filled, and file counts per department.
func (s *DashboardService) Charts(ctx context.Context, actor *models.Actor) (*dto.DashboardCharts, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(s.cfg.ChartDays - 1))
	uploads, err := s.repo.UploadsPerDay(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upload chart")
	}
	byDept, err := s.repo.FilesByDepartment(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department chart")
	}

	counts := make(map[string]int, len(uploads))
	for _, p := range uploads {
		counts[p.Label] = p.Value
	}
	days := make([]models.ChartPoint, 0, s.cfg.ChartDays)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		label := d.Format("2006-01-02")
		days = append(days, models.ChartPoint{Label: label, Value: counts[label]})
	}
	return &dto.DashboardCharts{
		UploadsPerDay:     models.NewChartSeries(days),
		FilesByDepartment: models.NewChartSeries(byDept),
	}, nil
}

// RecentActivity returns the latest file audit entries.
func (s *DashboardService) RecentActivity(ctx context.Context, actor *models.Actor) ([]dto.ActivityEntry, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	entries, err := s.audits.Recent(ctx, s.cfg.ActivityLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent activity")
	}
	out := make([]dto.ActivityEntry, 0, len(entries))
	for _, e := range entries {
		entry := dto.ActivityEntry{User: "Anonymous", Action: e.Action.Display(), File: "Deleted file", Timestamp: e.Timestamp}
		if e.Username != nil {
			entry.User = *e.Username
		}
		if e.FileName != nil {
			entry.File = *e.FileName
		}
		out = append(out, entry)
	}
	return out, nil
}
