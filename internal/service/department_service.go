package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type departmentRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.Department, error)
	FindByID(ctx context.Context, id string) (*models.Department, error)
	FindByCode(ctx context.Context, code string) (*models.Department, error)
	Create(ctx context.Context, dept *models.Department) error
	Update(ctx context.Context, dept *models.Department) error
}

// DepartmentService manages departments and their session overrides.
type DepartmentService struct {
	repo      departmentRepository
	sessions  sessionFinder
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs the service.
func NewDepartmentService(repo departmentRepository, sessions sessionFinder, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{repo: repo, sessions: sessions, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns departments. Non-administrators only see active ones.
func (s *DepartmentService) List(ctx context.Context, actor *models.Actor) ([]models.Department, error) {
	depts, err := s.repo.List(ctx, !actor.IsAdmin())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return depts, nil
}

// Get returns a department by id.
func (s *DepartmentService) Get(ctx context.Context, id string) (*models.Department, error) {
	dept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return dept, nil
}

// Create registers an active department with a unique code.
func (s *DepartmentService) Create(ctx context.Context, actor *models.Actor, req dto.CreateDepartmentRequest) (*models.Department, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if _, err := s.repo.FindByCode(ctx, code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department code already in use")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department code")
	}
	dept := &models.Department{
		Name:        strings.TrimSpace(req.Name),
		Code:        code,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, dept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}
	return dept, nil
}

// Update changes the head, active flag and session override of a department.
// An empty override clears it so the department follows the global session again.
func (s *DepartmentService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateDepartmentRequest, meta models.RequestMeta) (*models.Department, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	dept, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	old := map[string]interface{}{"head_of_dept": dept.HeadOfDept, "is_active": dept.IsActive, "active_session_override": dept.ActiveSessionOverride}

	if req.HeadOfDept != nil {
		head := strings.TrimSpace(*req.HeadOfDept)
		if head == "" {
			dept.HeadOfDept = nil
		} else {
			dept.HeadOfDept = &head
		}
	}
	if req.IsActive != nil {
		dept.IsActive = *req.IsActive
	}
	if req.ActiveSessionOverride != nil {
		override := strings.TrimSpace(*req.ActiveSessionOverride)
		if override == "" {
			dept.ActiveSessionOverride = nil
		} else {
			if _, err := s.sessions.FindByID(ctx, override); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrValidation, "override session does not exist")
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
			}
			dept.ActiveSessionOverride = &override
		}
	}

	if err := s.repo.Update(ctx, dept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}
	userID := actor.UserID
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionDepartmentUpdate,
		Resource:   "department",
		ResourceID: &dept.ID,
		OldValues:  auditJSON(old),
		NewValues:  auditJSON(map[string]interface{}{"head_of_dept": dept.HeadOfDept, "is_active": dept.IsActive, "active_session_override": dept.ActiveSessionOverride}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
	s.cache.InvalidateContent(ctx)
	return dept, nil
}
