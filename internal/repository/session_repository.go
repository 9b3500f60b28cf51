package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/deptshare-api/internal/models"
)

const sessionColumns = `id, name, year, is_active, start_date, end_date, description, created_by, created_at, updated_at`

// SessionRepository manages academic session persistence.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns sessions with the active one first, newest year first.
func (r *SessionRepository) List(ctx context.Context) ([]models.AcademicSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM academic_sessions ORDER BY is_active DESC, year DESC`
	var sessions []models.AcademicSession
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.AcademicSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM academic_sessions WHERE id = $1`
	var session models.AcademicSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// FindByYearAndName returns a session matching both year and name.
func (r *SessionRepository) FindByYearAndName(ctx context.Context, year int, name string) (*models.AcademicSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM academic_sessions WHERE year = $1 AND name = $2`
	var session models.AcademicSession
	if err := r.db.GetContext(ctx, &session, query, year, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session by year: %w", err)
	}
	return &session, nil
}

// FindActive returns the globally active session.
func (r *SessionRepository) FindActive(ctx context.Context) (*models.AcademicSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM academic_sessions WHERE is_active = TRUE ORDER BY updated_at DESC LIMIT 1`
	var session models.AcademicSession
	if err := r.db.GetContext(ctx, &session, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}
	return &session, nil
}

// ExistsByNameOrYear reports whether another session already uses the name or year.
func (r *SessionRepository) ExistsByNameOrYear(ctx context.Context, name string, year int, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM academic_sessions WHERE (name = $1 OR year = $2) AND id::text <> $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name, year, excludeID); err != nil {
		return false, fmt.Errorf("check session uniqueness: %w", err)
	}
	return exists, nil
}

// Create inserts a new session. New sessions start inactive.
func (r *SessionRepository) Create(ctx context.Context, session *models.AcademicSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	session.IsActive = false
	const query = `INSERT INTO academic_sessions (id, name, year, is_active, start_date, end_date, description, created_by, created_at, updated_at)
	VALUES (:id, :name, :year, :is_active, :start_date, :end_date, :description, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update changes descriptive fields of a session.
func (r *SessionRepository) Update(ctx context.Context, session *models.AcademicSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_sessions SET name = :name, year = :year, start_date = :start_date, end_date = :end_date, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// SetActive marks the provided session as active and deactivates the rest in one transaction.
func (r *SessionRepository) SetActive(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set active tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_sessions SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE AND id <> $2`, now, id); err != nil {
		return fmt.Errorf("deactivate other sessions: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE academic_sessions SET is_active = TRUE, updated_at = $2 WHERE id = $1`, id, now); err != nil {
		return fmt.Errorf("activate session: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set active tx: %w", err)
	}
	return nil
}

// Deactivate clears the active flag of one session.
func (r *SessionRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE academic_sessions SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}
