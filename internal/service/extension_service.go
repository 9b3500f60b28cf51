package service

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

const allowedExtensionsKey = "allowed"

type extensionRepository interface {
	List(ctx context.Context) ([]models.AllowedExtension, error)
	GetOrCreate(ctx context.Context, name string) (*models.AllowedExtension, bool, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// ExtensionList is the effective upload allow list.
type ExtensionList struct {
	Default []string `json:"default"`
	Dynamic []string `json:"dynamic"`
}

// ExtensionService answers upload extension checks from an in-process cache of the
// administrator-managed set.
type ExtensionService struct {
	repo    extensionRepository
	cache   *expirable.LRU[string, map[string]struct{}]
	audit   auditLogger
	metrics *MetricsService
	logger  *zap.Logger
}

// NewExtensionService constructs the service. size and ttl bound the cache.
func NewExtensionService(repo extensionRepository, audit auditLogger, metrics *MetricsService, logger *zap.Logger, size int, ttl time.Duration) *ExtensionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 4
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ExtensionService{
		repo:    repo,
		cache:   expirable.NewLRU[string, map[string]struct{}](size, nil, ttl),
		audit:   audit,
		metrics: metrics,
		logger:  logger,
	}
}

// Dynamic returns the administrator-managed extensions.
func (s *ExtensionService) Dynamic(ctx context.Context) (map[string]struct{}, error) {
	start := time.Now()
	if set, ok := s.cache.Get(allowedExtensionsKey); ok {
		s.metrics.RecordCacheOperation(true, time.Since(start))
		return set, nil
	}
	s.metrics.RecordCacheOperation(false, time.Since(start))

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allowed extensions")
	}
	set := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		set[models.NormalizeExtension(row.Name)] = struct{}{}
	}
	s.cache.Add(allowedExtensionsKey, set)
	return set, nil
}

// CheckFilename rejects filenames whose extension is not allowed.
func (s *ExtensionService) CheckFilename(ctx context.Context, filename string) error {
	dynamic, err := s.Dynamic(ctx)
	if err != nil {
		return err
	}
	ext := models.ExtensionOf(filename)
	if !models.IsAllowed(ext, dynamic) {
		if ext == "" {
			return appErrors.Clone(appErrors.ErrValidation, "file has no extension")
		}
		return appErrors.Clone(appErrors.ErrValidation, "file extension ."+ext+" is not allowed")
	}
	return nil
}

// List returns the default and dynamic sets.
func (s *ExtensionService) List(ctx context.Context) (*ExtensionList, error) {
	dynamic, err := s.Dynamic(ctx)
	if err != nil {
		return nil, err
	}
	out := &ExtensionList{Default: append([]string(nil), models.DefaultAllowedExtensions...), Dynamic: make([]string, 0, len(dynamic))}
	for ext := range dynamic {
		out.Dynamic = append(out.Dynamic, ext)
	}
	sort.Strings(out.Dynamic)
	return out, nil
}

// Add allows a new extension. Adding an existing one is a no-op reported by created=false.
func (s *ExtensionService) Add(ctx context.Context, actor *models.Actor, name string, meta models.RequestMeta) (*models.AllowedExtension, bool, error) {
	if !actor.IsAdmin() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	name = models.NormalizeExtension(name)
	if name == "" || len(name) > 10 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "extension name must be 1-10 characters")
	}
	ext, created, err := s.repo.GetOrCreate(ctx, name)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add extension")
	}
	s.cache.Remove(allowedExtensionsKey)
	if created {
		s.record(ctx, actor, "add", name, meta)
	}
	return ext, created, nil
}

// Remove disallows an administrator-added extension. Default extensions stay allowed.
func (s *ExtensionService) Remove(ctx context.Context, actor *models.Actor, name string, meta models.RequestMeta) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	name = models.NormalizeExtension(name)
	removed, err := s.repo.Delete(ctx, name)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove extension")
	}
	s.cache.Remove(allowedExtensionsKey)
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "extension not found")
	}
	s.record(ctx, actor, "remove", name, meta)
	return nil
}

func (s *ExtensionService) record(ctx context.Context, actor *models.Actor, op, name string, meta models.RequestMeta) {
	userID := actor.UserID
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:    &userID,
		Action:    models.AuditActionExtensionChange,
		Resource:  "allowed_extension",
		NewValues: auditJSON(map[string]interface{}{"op": op, "name": name}),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})
}
