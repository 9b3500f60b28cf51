package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.UserWithProfile, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateFlags(ctx context.Context, id string, isStaff, isSuperuser bool) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type profileStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	Upsert(ctx context.Context, profile *models.UserProfile) error
}

// UserService handles administrator user management.
type UserService struct {
	repo        userRepository
	profiles    profileStore
	departments departmentFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, profiles profileStore, departments departmentFinder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, profiles: profiles, departments: departments, validator: validate, logger: logger}
}

// List returns paginated users with their profile flags and pagination metadata.
func (s *UserService) List(ctx context.Context, actor *models.Actor, filter models.UserFilter) ([]models.UserWithProfile, *models.Pagination, error) {
	if !actor.IsAdmin() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}
	if users == nil {
		users = []models.UserWithProfile{}
	}
	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update changes account flags and profile facts of another user. Changing the
// superuser flag or marking someone faculty needs a superuser; any administrator
// may clear the faculty mark.
func (s *UserService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateUserRequest, meta models.RequestMeta) (*models.UserWithProfile, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	profile, err := s.profiles.FindByUserID(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		profile = &models.UserProfile{UserID: id}
	}
	oldPayload, _ := json.Marshal(map[string]interface{}{
		"is_staff": user.IsStaff, "is_superuser": user.IsSuperuser, "is_faculty": profile.IsFaculty, "department": profile.DepartmentID,
	})

	if req.IsSuperuser != nil && *req.IsSuperuser != user.IsSuperuser && !actor.IsSuperuser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a superuser can change superuser status")
	}
	if req.IsFaculty != nil && *req.IsFaculty && !profile.IsFaculty && !actor.IsSuperuser {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a superuser can mark a user as faculty")
	}

	flagsChanged := false
	if req.IsStaff != nil && *req.IsStaff != user.IsStaff {
		user.IsStaff = *req.IsStaff
		flagsChanged = true
	}
	if req.IsSuperuser != nil && *req.IsSuperuser != user.IsSuperuser {
		user.IsSuperuser = *req.IsSuperuser
		flagsChanged = true
	}
	profileChanged := false
	if req.IsFaculty != nil && *req.IsFaculty != profile.IsFaculty {
		profile.IsFaculty = *req.IsFaculty
		profileChanged = true
	}
	if req.DepartmentID != nil {
		deptID := strings.TrimSpace(*req.DepartmentID)
		if deptID == "" {
			profile.DepartmentID = nil
		} else {
			if err := ensureDepartment(ctx, s.departments, deptID); err != nil {
				return nil, err
			}
			profile.DepartmentID = &deptID
		}
		profileChanged = true
	}

	if flagsChanged {
		if err := s.repo.UpdateFlags(ctx, user.ID, user.IsStaff, user.IsSuperuser); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
		}
	}
	if profileChanged {
		if err := s.profiles.Upsert(ctx, profile); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
		}
	}

	newPayload, _ := json.Marshal(map[string]interface{}{
		"is_staff": user.IsStaff, "is_superuser": user.IsSuperuser, "is_faculty": profile.IsFaculty, "department": profile.DepartmentID,
	})
	actorID := actor.UserID
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user update audit log", zap.Error(err))
	}

	return &models.UserWithProfile{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FullName:     user.FullName,
		IsStaff:      user.IsStaff,
		IsSuperuser:  user.IsSuperuser,
		Active:       user.Active,
		IsFaculty:    profile.IsFaculty,
		DepartmentID: profile.DepartmentID,
	}, nil
}

func ensureDepartment(ctx context.Context, departments departmentFinder, id string) error {
	if departments == nil {
		return nil
	}
	if _, err := departments.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "department does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return nil
}
