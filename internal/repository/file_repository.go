package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/deptshare-api/internal/models"
)

const fileColumns = `id, session_id, department_id, folder_id, blob_ref, name, original_filename, description, mime_type, owner_id, category_id,
	is_public, is_manual, is_deleted, deleted_at, deleted_by, file_size, download_count, created_at, updated_at`

// FileRepository persists file items.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository constructs the repository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create inserts file metadata.
func (r *FileRepository) Create(ctx context.Context, item *models.FileItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO file_items (id, session_id, department_id, folder_id, blob_ref, name, original_filename, description, mime_type, owner_id, category_id,
	is_public, is_manual, is_deleted, file_size, download_count, created_at, updated_at)
	VALUES (:id, :session_id, :department_id, :folder_id, :blob_ref, :name, :original_filename, :description, :mime_type, :owner_id, :category_id,
	:is_public, :is_manual, :is_deleted, :file_size, :download_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// FindByID returns one file regardless of its deleted flag.
func (r *FileRepository) FindByID(ctx context.Context, id string) (*models.FileItem, error) {
	query := `SELECT ` + fileColumns + ` FROM file_items WHERE id = $1`
	var item models.FileItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find file: %w", err)
	}
	return &item, nil
}

// ExistsByBlobRef reports whether a row already points at the blob path.
func (r *FileRepository) ExistsByBlobRef(ctx context.Context, blobRef string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM file_items WHERE blob_ref = $1)`, blobRef); err != nil {
		return false, fmt.Errorf("check blob ref: %w", err)
	}
	return exists, nil
}

// List returns files matching the filter, newest first.
func (r *FileRepository) List(ctx context.Context, filter models.FolderFilter) ([]models.FileItem, error) {
	conditions, args := contentConditions(filter, "file_items")
	query := `SELECT ` + fileColumns + ` FROM file_items`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	var items []models.FileItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return items, nil
}

// ListByFolder returns every file directly inside the folder, deleted or not.
func (r *FileRepository) ListByFolder(ctx context.Context, folderID string) ([]models.FileItem, error) {
	query := `SELECT ` + fileColumns + ` FROM file_items WHERE folder_id = $1 ORDER BY name ASC`
	var items []models.FileItem
	if err := r.db.SelectContext(ctx, &items, query, folderID); err != nil {
		return nil, fmt.Errorf("list folder files: %w", err)
	}
	return items, nil
}

// ListInFolders returns files in any of the folders, optionally excluding deleted ones.
func (r *FileRepository) ListInFolders(ctx context.Context, folderIDs []string, includeDeleted bool) ([]models.FileItem, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + fileColumns + ` FROM file_items WHERE folder_id = ANY($1)`
	if !includeDeleted {
		query += ` AND is_deleted = FALSE`
	}
	query += ` ORDER BY name ASC`
	var items []models.FileItem
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(folderIDs)); err != nil {
		return nil, fmt.Errorf("list files in folders: %w", err)
	}
	return items, nil
}

// ListPublic returns every public, non-deleted file in the given sessions.
func (r *FileRepository) ListPublic(ctx context.Context, sessionIDs []string) ([]models.FileItem, error) {
	query := `SELECT ` + fileColumns + ` FROM file_items WHERE is_public = TRUE AND is_deleted = FALSE AND session_id = ANY($1) ORDER BY name ASC`
	var items []models.FileItem
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(sessionIDs)); err != nil {
		return nil, fmt.Errorf("list public files: %w", err)
	}
	return items, nil
}

// Search matches name, description or original filename case-insensitively.
func (r *FileRepository) Search(ctx context.Context, filter models.SearchFilter) ([]models.FileItem, error) {
	args := []interface{}{"%" + strings.ToLower(filter.Query) + "%"}
	query := `SELECT ` + fileColumns + ` FROM file_items WHERE is_deleted = FALSE
	AND (LOWER(name) LIKE $1 OR LOWER(description) LIKE $1 OR LOWER(original_filename) LIKE $1)`
	if filter.VisibleTo != "" {
		args = append(args, filter.VisibleTo)
		query += ` AND (is_public = TRUE OR owner_id = $2)`
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)
	var items []models.FileItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	return items, nil
}

// ListDeleted returns soft-deleted files, most recent first.
func (r *FileRepository) ListDeleted(ctx context.Context) ([]models.FileItem, error) {
	query := `SELECT ` + fileColumns + ` FROM file_items WHERE is_deleted = TRUE ORDER BY deleted_at DESC NULLS LAST`
	var items []models.FileItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list deleted files: %w", err)
	}
	return items, nil
}

// Update persists name, description and category.
func (r *FileRepository) Update(ctx context.Context, item *models.FileItem) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE file_items SET name = :name, description = :description, category_id = :category_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

// SetPublic writes the visibility flag of one file.
func (r *FileRepository) SetPublic(ctx context.Context, id string, public bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE file_items SET is_public = $2, updated_at = $3 WHERE id = $1`, id, public, time.Now().UTC()); err != nil {
		return fmt.Errorf("set file visibility: %w", err)
	}
	return nil
}

// MarkDeleted flags one file as soft-deleted.
func (r *FileRepository) MarkDeleted(ctx context.Context, id string, at time.Time, by string) error {
	const query = `UPDATE file_items SET is_deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, by); err != nil {
		return fmt.Errorf("mark file deleted: %w", err)
	}
	return nil
}

// ClearDeleted clears the soft-delete fields of one file.
func (r *FileRepository) ClearDeleted(ctx context.Context, id string) error {
	const query = `UPDATE file_items SET is_deleted = FALSE, deleted_at = NULL, deleted_by = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("restore file: %w", err)
	}
	return nil
}

// IncrementDownloads bumps the download counter and returns the new value.
func (r *FileRepository) IncrementDownloads(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `UPDATE file_items SET download_count = download_count + 1 WHERE id = $1 RETURNING download_count`, id); err != nil {
		return 0, fmt.Errorf("increment file downloads: %w", err)
	}
	return count, nil
}

// Delete removes a file row permanently.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM file_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
