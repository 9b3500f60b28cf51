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

const folderColumns = `id, session_id, department_id, parent_id, name, description, owner_id, category_id, is_public, is_manual, is_deleted, deleted_at, deleted_by, created_at, updated_at`

// FolderRepository persists content tree folders.
type FolderRepository struct {
	db *sqlx.DB
}

// NewFolderRepository constructs the repository.
func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

// Create inserts a folder.
func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	folder.CreatedAt = now
	folder.UpdatedAt = now
	const query = `INSERT INTO folders (id, session_id, department_id, parent_id, name, description, owner_id, category_id, is_public, is_manual, is_deleted, created_at, updated_at)
	VALUES (:id, :session_id, :department_id, :parent_id, :name, :description, :owner_id, :category_id, :is_public, :is_manual, :is_deleted, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, folder); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

// FindByID returns one folder regardless of its deleted flag.
func (r *FolderRepository) FindByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`
	var folder models.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find folder: %w", err)
	}
	return &folder, nil
}

// FindSibling returns a folder with the given name under the same parent and scope.
func (r *FolderRepository) FindSibling(ctx context.Context, sessionID, departmentID string, parentID *string, name string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE session_id = $1 AND department_id = $2 AND name = $3 AND `
	args := []interface{}{sessionID, departmentID, name}
	if parentID == nil {
		query += `parent_id IS NULL`
	} else {
		query += `parent_id = $4`
		args = append(args, *parentID)
	}
	var folder models.Folder
	if err := r.db.GetContext(ctx, &folder, query+` LIMIT 1`, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find sibling folder: %w", err)
	}
	return &folder, nil
}

// List returns folders matching the filter ordered by name.
func (r *FolderRepository) List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, error) {
	conditions, args := contentConditions(filter, "folders")
	query := `SELECT ` + folderColumns + ` FROM folders`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY name ASC`
	var folders []models.Folder
	if err := r.db.SelectContext(ctx, &folders, query, args...); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// ChildIDs returns ids of every direct child, deleted or not.
func (r *FolderRepository) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM folders WHERE parent_id = $1`, parentID); err != nil {
		return nil, fmt.Errorf("list child folders: %w", err)
	}
	return ids, nil
}

// Subtree returns the root folder and all its descendants.
func (r *FolderRepository) Subtree(ctx context.Context, rootID string, includeDeleted bool) ([]models.Folder, error) {
	deleted := ""
	if !includeDeleted {
		deleted = ` AND f.is_deleted = FALSE`
	}
	query := `WITH RECURSIVE tree AS (
		SELECT f.* FROM folders f WHERE f.id = $1` + deleted + `
		UNION
		SELECT f.* FROM folders f JOIN tree t ON f.parent_id = t.id WHERE TRUE` + deleted + `
	) SELECT ` + folderColumns + ` FROM tree ORDER BY name ASC`
	var folders []models.Folder
	if err := r.db.SelectContext(ctx, &folders, query, rootID); err != nil {
		return nil, fmt.Errorf("load folder subtree: %w", err)
	}
	return folders, nil
}

// ListPublic returns every public, non-deleted folder in the given sessions.
func (r *FolderRepository) ListPublic(ctx context.Context, sessionIDs []string) ([]models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE is_public = TRUE AND is_deleted = FALSE AND session_id = ANY($1) ORDER BY name ASC`
	var folders []models.Folder
	if err := r.db.SelectContext(ctx, &folders, query, pq.Array(sessionIDs)); err != nil {
		return nil, fmt.Errorf("list public folders: %w", err)
	}
	return folders, nil
}

// ListDeleted returns soft-deleted folders, most recent first.
func (r *FolderRepository) ListDeleted(ctx context.Context) ([]models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE is_deleted = TRUE ORDER BY deleted_at DESC NULLS LAST`
	var folders []models.Folder
	if err := r.db.SelectContext(ctx, &folders, query); err != nil {
		return nil, fmt.Errorf("list deleted folders: %w", err)
	}
	return folders, nil
}

// Update persists name, description and category.
func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	folder.UpdatedAt = time.Now().UTC()
	const query = `UPDATE folders SET name = :name, description = :description, category_id = :category_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, folder); err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	return nil
}

// SetPublic writes the visibility flag of one folder.
func (r *FolderRepository) SetPublic(ctx context.Context, id string, public bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE folders SET is_public = $2, updated_at = $3 WHERE id = $1`, id, public, time.Now().UTC()); err != nil {
		return fmt.Errorf("set folder visibility: %w", err)
	}
	return nil
}

// MarkDeleted flags one folder as soft-deleted.
func (r *FolderRepository) MarkDeleted(ctx context.Context, id string, at time.Time, by string) error {
	const query = `UPDATE folders SET is_deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, by); err != nil {
		return fmt.Errorf("mark folder deleted: %w", err)
	}
	return nil
}

// ClearDeleted clears the soft-delete fields of one folder.
func (r *FolderRepository) ClearDeleted(ctx context.Context, id string) error {
	const query = `UPDATE folders SET is_deleted = FALSE, deleted_at = NULL, deleted_by = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("restore folder: %w", err)
	}
	return nil
}

// Delete removes a folder row permanently.
func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	return nil
}

// contentConditions renders the shared folder/file filter into SQL predicates.
func contentConditions(filter models.FolderFilter, table string) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if !filter.IncludeDeleted {
		conditions = append(conditions, "is_deleted = FALSE")
	}
	if !filter.IncludeManual {
		conditions = append(conditions, "is_manual = FALSE")
	}
	if filter.PublicOnly {
		conditions = append(conditions, "is_public = TRUE")
	}
	if filter.OwnerID != "" {
		add("owner_id = $%d", filter.OwnerID)
	}
	if filter.SessionID != "" {
		add("session_id = $%d", filter.SessionID)
	}
	if filter.DepartmentID != "" {
		add("department_id = $%d", filter.DepartmentID)
	}
	parentColumn := "parent_id"
	if table == "file_items" {
		parentColumn = "folder_id"
	}
	if filter.ParentID != nil {
		add(parentColumn+" = $%d", *filter.ParentID)
	} else if filter.RootOnly {
		conditions = append(conditions, parentColumn+" IS NULL")
	}
	if filter.VisibleTo != "" {
		add("(is_public = TRUE OR owner_id = $%d)", filter.VisibleTo)
	}
	return conditions, args
}
