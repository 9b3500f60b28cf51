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

const logFileColumns = `id, name, format, file_path, file_size, generated_by, generated_at, expires_at, download_count, is_active`

// LogFileRepository tracks generated audit exports.
type LogFileRepository struct {
	db *sqlx.DB
}

// NewLogFileRepository constructs the repository.
func NewLogFileRepository(db *sqlx.DB) *LogFileRepository {
	return &LogFileRepository{db: db}
}

// Create inserts an export record.
func (r *LogFileRepository) Create(ctx context.Context, file *models.LogFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.GeneratedAt.IsZero() {
		file.GeneratedAt = time.Now().UTC()
	}
	const query = `INSERT INTO log_files (` + logFileColumns + `)
	VALUES (:id, :name, :format, :file_path, :file_size, :generated_by, :generated_at, :expires_at, :download_count, :is_active)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create log file: %w", err)
	}
	return nil
}

// FindByID returns an export record.
func (r *LogFileRepository) FindByID(ctx context.Context, id string) (*models.LogFile, error) {
	var file models.LogFile
	if err := r.db.GetContext(ctx, &file, `SELECT `+logFileColumns+` FROM log_files WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find log file: %w", err)
	}
	return &file, nil
}

// ListActive returns active exports, newest first.
func (r *LogFileRepository) ListActive(ctx context.Context) ([]models.LogFile, error) {
	var files []models.LogFile
	if err := r.db.SelectContext(ctx, &files, `SELECT `+logFileColumns+` FROM log_files WHERE is_active = TRUE ORDER BY generated_at DESC`); err != nil {
		return nil, fmt.Errorf("list log files: %w", err)
	}
	return files, nil
}

// IncrementDownloads bumps the counter.
func (r *LogFileRepository) IncrementDownloads(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE log_files SET download_count = download_count + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment log file downloads: %w", err)
	}
	return nil
}

// Deactivate hides an export from listings.
func (r *LogFileRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE log_files SET is_active = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deactivate log file: %w", err)
	}
	return nil
}

// DeactivateExpired deactivates exports past their expiry and returns their storage paths.
func (r *LogFileRepository) DeactivateExpired(ctx context.Context, now time.Time) ([]string, error) {
	var paths []string
	const query = `UPDATE log_files SET is_active = FALSE WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at <= $1 RETURNING file_path`
	if err := r.db.SelectContext(ctx, &paths, query, now); err != nil {
		return nil, fmt.Errorf("deactivate expired log files: %w", err)
	}
	return paths, nil
}
