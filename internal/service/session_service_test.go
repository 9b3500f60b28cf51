package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type sessionRepoStub struct {
	sessions map[string]*models.AcademicSession
}

func newSessionRepoStub(sessions ...*models.AcademicSession) *sessionRepoStub {
	repo := &sessionRepoStub{sessions: map[string]*models.AcademicSession{}}
	for _, s := range sessions {
		repo.sessions[s.ID] = s
	}
	return repo
}

func (r *sessionRepoStub) List(ctx context.Context) ([]models.AcademicSession, error) {
	out := make([]models.AcademicSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (r *sessionRepoStub) FindByID(ctx context.Context, id string) (*models.AcademicSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r *sessionRepoStub) FindByYearAndName(ctx context.Context, year int, name string) (*models.AcademicSession, error) {
	for _, s := range r.sessions {
		if s.Year == year && s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *sessionRepoStub) FindActive(ctx context.Context) (*models.AcademicSession, error) {
	for _, s := range r.sessions {
		if s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *sessionRepoStub) ExistsByNameOrYear(ctx context.Context, name string, year int, excludeID string) (bool, error) {
	for _, s := range r.sessions {
		if s.ID != excludeID && (s.Name == name || s.Year == year) {
			return true, nil
		}
	}
	return false, nil
}

func (r *sessionRepoStub) Create(ctx context.Context, session *models.AcademicSession) error {
	session.ID = fmt.Sprintf("session-%d", len(r.sessions)+1)
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *sessionRepoStub) Update(ctx context.Context, session *models.AcademicSession) error {
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *sessionRepoStub) SetActive(ctx context.Context, id string) error {
	for _, s := range r.sessions {
		s.IsActive = s.ID == id
	}
	return nil
}

func (r *sessionRepoStub) Deactivate(ctx context.Context, id string) error {
	if s, ok := r.sessions[id]; ok {
		s.IsActive = false
	}
	return nil
}

type profileStub map[string]*models.UserProfile

func (p profileStub) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, ok := p[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return profile, nil
}

func TestSessionCreateRequiresAdminAndUniqueness(t *testing.T) {
	repo := newSessionRepoStub(&models.AcademicSession{ID: "s1", Name: "Spring", Year: 2025})
	audit := &auditLoggerStub{}
	svc := NewSessionService(repo, nil, nil, audit, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, facultyActor, dto.CreateSessionRequest{Name: "Fall", Year: 2026})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Create(ctx, staffActor, dto.CreateSessionRequest{Name: "Spring", Year: 2026})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(ctx, staffActor, dto.CreateSessionRequest{Name: "Fall", Year: 2025})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -1, 0)
	_, err = svc.Create(ctx, staffActor, dto.CreateSessionRequest{Name: "Fall", Year: 2026, StartDate: &start, EndDate: &end})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, staffActor, dto.CreateSessionRequest{Name: "Fall"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	session, err := svc.Create(ctx, staffActor, dto.CreateSessionRequest{Name: " Fall ", Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, "Fall", session.Name)
	assert.False(t, session.IsActive)
	require.NotNil(t, session.CreatedBy)
	assert.Equal(t, "staff", *session.CreatedBy)
}

func TestSessionActivateLeavesSingleActive(t *testing.T) {
	repo := newSessionRepoStub(
		&models.AcademicSession{ID: "s0", Name: "Fall", Year: 2024, IsActive: true},
		&models.AcademicSession{ID: "s1", Name: "Spring", Year: 2025},
	)
	audit := &auditLoggerStub{}
	svc := NewSessionService(repo, nil, nil, audit, nil, nil, nil)
	ctx := context.Background()

	session, err := svc.Activate(ctx, staffActor, "s1", models.RequestMeta{IP: "10.0.0.9"})
	require.NoError(t, err)
	assert.True(t, session.IsActive)
	assert.False(t, repo.sessions["s0"].IsActive)

	active, err := svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", active.ID)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSessionActivate, audit.logs[0].Action)
	assert.Equal(t, "10.0.0.9", audit.logs[0].IPAddress)

	_, err = svc.Deactivate(ctx, staffActor, "s1", models.RequestMeta{})
	require.NoError(t, err)
	_, err = svc.GetActive(ctx)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Activate(ctx, staffActor, "missing", models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Activate(ctx, studentActor, "s1", models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestScopeForPrefersDepartmentOverride(t *testing.T) {
	repo := newSessionRepoStub(
		&models.AcademicSession{ID: "s1", Name: "Spring", Year: 2025, IsActive: true},
		&models.AcademicSession{ID: "s0", Name: "Fall", Year: 2024},
	)
	departments := departmentStub{
		"d1": {ID: "d1", Code: "CSE"},
		"d2": {ID: "d2", Code: "EEE", ActiveSessionOverride: strPtr("s0")},
	}
	profiles := profileStub{
		"f": {UserID: "f", DepartmentID: strPtr("d1")},
		"e": {UserID: "e", DepartmentID: strPtr("d2")},
		"n": {UserID: "n"},
	}
	svc := NewSessionService(repo, departments, profiles, nil, nil, nil, nil)
	ctx := context.Background()

	scope, err := svc.ScopeFor(ctx, facultyActor)
	require.NoError(t, err)
	require.NotNil(t, scope.SessionID)
	assert.Equal(t, "s1", *scope.SessionID)
	assert.Equal(t, "CSE", scope.Department.Code)

	scope, err = svc.ScopeFor(ctx, &models.Actor{UserID: "e"})
	require.NoError(t, err)
	assert.Equal(t, "s0", *scope.SessionID)

	scope, err = svc.ScopeFor(ctx, &models.Actor{UserID: "n"})
	require.NoError(t, err)
	assert.Nil(t, scope.Department)
	assert.Equal(t, "s1", *scope.SessionID)

	scope, err = svc.ScopeFor(ctx, &models.Actor{UserID: "nobody"})
	require.NoError(t, err)
	assert.Nil(t, scope.Profile)
	assert.Equal(t, "s1", *scope.SessionID)

	require.NoError(t, repo.Deactivate(ctx, "s1"))
	scope, err = svc.ScopeFor(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, scope.SessionID)
}
