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

type sessionRepository interface {
	List(ctx context.Context) ([]models.AcademicSession, error)
	FindByID(ctx context.Context, id string) (*models.AcademicSession, error)
	FindActive(ctx context.Context) (*models.AcademicSession, error)
	ExistsByNameOrYear(ctx context.Context, name string, year int, excludeID string) (bool, error)
	Create(ctx context.Context, session *models.AcademicSession) error
	Update(ctx context.Context, session *models.AcademicSession) error
	SetActive(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}

type profileFinder interface {
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Scope is where an actor works: their department and the session that applies to it.
type Scope struct {
	Profile    *models.UserProfile
	Department *models.Department
	SessionID  *string
}

// SessionService manages academic sessions and resolves the active one.
type SessionService struct {
	repo        sessionRepository
	departments departmentFinder
	profiles    profileFinder
	audit       auditLogger
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSessionService constructs the service.
func NewSessionService(repo sessionRepository, departments departmentFinder, profiles profileFinder, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, departments: departments, profiles: profiles, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns every session, newest year first.
func (s *SessionService) List(ctx context.Context) ([]models.AcademicSession, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.AcademicSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// GetActive returns the globally active session.
func (s *SessionService) GetActive(ctx context.Context) (*models.AcademicSession, error) {
	session, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active session")
	}
	return session, nil
}

// Create registers an inactive session. Name and year are unique.
func (s *SessionService) Create(ctx context.Context, actor *models.Actor, req dto.CreateSessionRequest) (*models.AcademicSession, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req, ""); err != nil {
		return nil, err
	}
	createdBy := actor.UserID
	session := &models.AcademicSession{
		Name:        strings.TrimSpace(req.Name),
		Year:        req.Year,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Description: req.Description,
		CreatedBy:   &createdBy,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// Update edits descriptive fields of a session.
func (s *SessionService) Update(ctx context.Context, actor *models.Actor, id string, req dto.CreateSessionRequest) (*models.AcademicSession, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req, id); err != nil {
		return nil, err
	}
	session.Name = strings.TrimSpace(req.Name)
	session.Year = req.Year
	session.StartDate = req.StartDate
	session.EndDate = req.EndDate
	session.Description = req.Description
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.cache.InvalidateContent(ctx)
	return session, nil
}

// Activate makes id the only active session.
func (s *SessionService) Activate(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) (*models.AcademicSession, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, session.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate session")
	}
	session.IsActive = true
	s.record(ctx, actor, models.AuditActionSessionActivate, session, meta)
	s.cache.InvalidateContent(ctx)
	s.logger.Info("session activated", zap.String("session_id", session.ID), zap.String("name", session.Name))
	return session, nil
}

// Deactivate clears the active flag of id. Afterwards no session may be active.
func (s *SessionService) Deactivate(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) (*models.AcademicSession, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Deactivate(ctx, session.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate session")
	}
	session.IsActive = false
	s.record(ctx, actor, models.AuditActionSessionDeactivate, session, meta)
	s.cache.InvalidateContent(ctx)
	return session, nil
}

// ScopeFor resolves the actor's profile, department and applicable session. A missing
// profile or department is not an error; SessionID is nil when nothing is active.
func (s *SessionService) ScopeFor(ctx context.Context, actor *models.Actor) (*Scope, error) {
	scope := &Scope{}
	var global *string
	active, err := s.repo.FindActive(ctx)
	switch {
	case err == nil:
		global = &active.ID
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active session")
	}

	if actor.Authenticated() && s.profiles != nil {
		profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		scope.Profile = profile
	}
	if scope.Profile != nil && scope.Profile.DepartmentID != nil && s.departments != nil {
		dept, err := s.departments.FindByID(ctx, *scope.Profile.DepartmentID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		scope.Department = dept
	}
	scope.SessionID = scope.Profile.ActiveSessionID(scope.Department, global)
	return scope, nil
}

func (s *SessionService) validate(req dto.CreateSessionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if req.StartDate != nil && req.EndDate != nil && !req.StartDate.Before(*req.EndDate) {
		return appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	return nil
}

func (s *SessionService) ensureUnique(ctx context.Context, req dto.CreateSessionRequest, excludeID string) error {
	exists, err := s.repo.ExistsByNameOrYear(ctx, strings.TrimSpace(req.Name), req.Year, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "a session with this name or year already exists")
	}
	return nil
}

func (s *SessionService) record(ctx context.Context, actor *models.Actor, action string, session *models.AcademicSession, meta models.RequestMeta) {
	userID := actor.UserID
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "academic_session",
		ResourceID: &session.ID,
		NewValues:  auditJSON(map[string]interface{}{"name": session.Name, "year": session.Year, "is_active": session.IsActive}),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	})
}
