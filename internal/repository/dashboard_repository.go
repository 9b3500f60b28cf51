package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind the admin dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats returns table counts and the total stored bytes.
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM users) AS users,
		(SELECT COUNT(*) FROM academic_sessions) AS sessions,
		(SELECT COUNT(*) FROM departments) AS departments,
		(SELECT COUNT(*) FROM folders) AS folders,
		(SELECT COUNT(*) FROM file_items) AS files,
		(SELECT COUNT(*) FROM share_links) AS sharelinks,
		(SELECT COUNT(*) FROM notifications) AS notifications,
		(SELECT COUNT(*) FROM allowed_extensions) AS allowed_extensions,
		(SELECT COALESCE(SUM(file_size), 0) FROM file_items) AS storage_bytes`
	var stats models.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &stats, nil
}

// UploadsPerDay counts files created per calendar day since the given instant.
func (r *DashboardRepository) UploadsPerDay(ctx context.Context, since time.Time) ([]models.ChartPoint, error) {
	const query = `SELECT TO_CHAR(DATE(created_at), 'YYYY-MM-DD') AS label, COUNT(*) AS value
	FROM file_items WHERE created_at >= $1 GROUP BY DATE(created_at) ORDER BY DATE(created_at) ASC`
	var points []models.ChartPoint
	if err := r.db.SelectContext(ctx, &points, query, since); err != nil {
		return nil, fmt.Errorf("uploads per day: %w", err)
	}
	return points, nil
}

// FilesByDepartment counts files per department name.
func (r *DashboardRepository) FilesByDepartment(ctx context.Context) ([]models.ChartPoint, error) {
	const query = `SELECT COALESCE(d.name, 'Unknown') AS label, COUNT(f.id) AS value
	FROM file_items f LEFT JOIN departments d ON d.id = f.department_id
	GROUP BY d.name ORDER BY d.name ASC`
	var points []models.ChartPoint
	if err := r.db.SelectContext(ctx, &points, query); err != nil {
		return nil, fmt.Errorf("files by department: %w", err)
	}
	return points, nil
}
