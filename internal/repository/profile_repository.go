package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// ProfileRepository persists user profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID returns the profile attached to a user.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	const query = `SELECT user_id, department_id, is_faculty, employee_id, phone, created_at, updated_at FROM user_profiles WHERE user_id = $1`
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// GetView returns the profile joined with account fields.
func (r *ProfileRepository) GetView(ctx context.Context, userID string) (*models.ProfileView, error) {
	const query = `SELECT p.user_id, u.username, u.email, u.full_name, p.department_id, p.employee_id, p.phone, p.is_faculty, p.created_at
	FROM user_profiles p JOIN users u ON u.id = p.user_id WHERE p.user_id = $1`
	var view models.ProfileView
	if err := r.db.GetContext(ctx, &view, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get profile view: %w", err)
	}
	return &view, nil
}

// Upsert inserts or updates a profile row.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO user_profiles (user_id, department_id, is_faculty, employee_id, phone, created_at, updated_at)
	VALUES (:user_id, :department_id, :is_faculty, :employee_id, :phone, :created_at, :updated_at)
	ON CONFLICT (user_id) DO UPDATE SET department_id = EXCLUDED.department_id, is_faculty = EXCLUDED.is_faculty,
	employee_id = EXCLUDED.employee_id, phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
