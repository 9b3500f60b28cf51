package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// FileAuditRepository appends and reads the content audit trail. Rows are never updated.
type FileAuditRepository struct {
	db *sqlx.DB
}

// NewFileAuditRepository constructs the repository.
func NewFileAuditRepository(db *sqlx.DB) *FileAuditRepository {
	return &FileAuditRepository{db: db}
}

// Create appends an audit entry.
func (r *FileAuditRepository) Create(ctx context.Context, entry *models.FileAuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if len(entry.Details) == 0 {
		entry.Details = []byte("{}")
	}
	const query = `INSERT INTO file_audit_logs (id, file_item_id, user_id, action, ip_address, user_agent, details, timestamp)
	VALUES (:id, :file_item_id, :user_id, :action, :ip_address, :user_agent, :details, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create file audit log: %w", err)
	}
	return nil
}

const auditEntrySelect = `SELECT a.id, u.username, a.action, f.name AS file_name, a.ip_address, a.timestamp
	FROM file_audit_logs a
	LEFT JOIN users u ON u.id = a.user_id
	LEFT JOIN file_items f ON f.id = a.file_item_id`

// Recent returns the latest entries joined with user and file names.
func (r *FileAuditRepository) Recent(ctx context.Context, limit int) ([]models.FileAuditEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []models.FileAuditEntry
	if err := r.db.SelectContext(ctx, &entries, auditEntrySelect+` ORDER BY a.timestamp DESC LIMIT $1`, limit); err != nil {
		return nil, fmt.Errorf("recent file audit logs: %w", err)
	}
	return entries, nil
}

// Since returns entries recorded at or after the given instant, newest first.
func (r *FileAuditRepository) Since(ctx context.Context, since time.Time) ([]models.FileAuditEntry, error) {
	var entries []models.FileAuditEntry
	if err := r.db.SelectContext(ctx, &entries, auditEntrySelect+` WHERE a.timestamp >= $1 ORDER BY a.timestamp DESC`, since); err != nil {
		return nil, fmt.Errorf("file audit logs since: %w", err)
	}
	return entries, nil
}
