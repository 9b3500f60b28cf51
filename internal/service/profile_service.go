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

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	GetView(ctx context.Context, userID string) (*models.ProfileView, error)
	Upsert(ctx context.Context, profile *models.UserProfile) error
}

type accountRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	UpdateAccount(ctx context.Context, user *models.User) error
}

// ProfileService lets users manage their own profile and account fields.
type ProfileService struct {
	profiles    profileRepository
	accounts    accountRepository
	departments departmentFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewProfileService constructs the service.
func NewProfileService(profiles profileRepository, accounts accountRepository, departments departmentFinder, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{profiles: profiles, accounts: accounts, departments: departments, validator: validate, logger: logger}
}

// Get returns the caller's profile, creating an empty one on first access.
func (s *ProfileService) Get(ctx context.Context, actor *models.Actor) (*models.ProfileView, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	view, err := s.profiles.GetView(ctx, actor.UserID)
	if err == nil {
		return view, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	if err := s.profiles.Upsert(ctx, &models.UserProfile{UserID: actor.UserID}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create profile")
	}
	return s.view(ctx, actor.UserID)
}

// Update edits the caller's profile. The department is fixed once set unless the
// caller is an administrator, and only a superuser may change the faculty flag.
func (s *ProfileService) Update(ctx context.Context, actor *models.Actor, req dto.UpdateProfileRequest) (*models.ProfileView, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		profile = &models.UserProfile{UserID: actor.UserID}
	}

	if req.DepartmentID != nil {
		deptID := strings.TrimSpace(*req.DepartmentID)
		var next *string
		if deptID != "" {
			next = &deptID
		}
		if !samePtrValue(profile.DepartmentID, next) {
			if profile.DepartmentID != nil && !actor.IsAdmin() {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "department cannot be changed once set")
			}
			if next != nil {
				if err := ensureDepartment(ctx, s.departments, deptID); err != nil {
					return nil, err
				}
			}
			profile.DepartmentID = next
		}
	}
	if req.IsFaculty != nil && *req.IsFaculty != profile.IsFaculty {
		if !actor.IsSuperuser {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only a superuser can change faculty status")
		}
		profile.IsFaculty = *req.IsFaculty
	}
	if req.EmployeeID != nil {
		profile.EmployeeID = strings.TrimSpace(*req.EmployeeID)
	}
	if req.Phone != nil {
		profile.Phone = strings.TrimSpace(*req.Phone)
	}

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return s.view(ctx, actor.UserID)
}

// UpdateAccount edits the caller's username, email and full name.
func (s *ProfileService) UpdateAccount(ctx context.Context, actor *models.Actor, req dto.UpdateAccountRequest) (*models.User, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}
	user, err := s.accounts.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if !strings.EqualFold(username, user.Username) {
			taken, err := s.accounts.UsernameTaken(ctx, username, user.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
			}
			if taken {
				return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
			}
		}
		user.Username = username
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !strings.EqualFold(email, user.Email) {
			taken, err := s.accounts.EmailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
			}
			if taken {
				return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
			}
		}
		user.Email = email
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}

	if err := s.accounts.UpdateAccount(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account")
	}
	return user, nil
}

func (s *ProfileService) view(ctx context.Context, userID string) (*models.ProfileView, error) {
	view, err := s.profiles.GetView(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return view, nil
}

func samePtrValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
