package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// ExtensionRepository stores administrator-managed upload extensions.
type ExtensionRepository struct {
	db *sqlx.DB
}

// NewExtensionRepository constructs the repository.
func NewExtensionRepository(db *sqlx.DB) *ExtensionRepository {
	return &ExtensionRepository{db: db}
}

// List returns all allowed extensions ordered by name.
func (r *ExtensionRepository) List(ctx context.Context) ([]models.AllowedExtension, error) {
	var exts []models.AllowedExtension
	if err := r.db.SelectContext(ctx, &exts, `SELECT id, name, created_at FROM allowed_extensions ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list extensions: %w", err)
	}
	return exts, nil
}

// GetOrCreate inserts the extension if missing and returns the stored row.
func (r *ExtensionRepository) GetOrCreate(ctx context.Context, name string) (*models.AllowedExtension, bool, error) {
	const insert = `INSERT INTO allowed_extensions (id, name, created_at) VALUES ($1, $2, $3) ON CONFLICT (name) DO NOTHING`
	res, err := r.db.ExecContext(ctx, insert, uuid.NewString(), name, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("insert extension: %w", err)
	}
	affected, _ := res.RowsAffected()

	var ext models.AllowedExtension
	if err := r.db.GetContext(ctx, &ext, `SELECT id, name, created_at FROM allowed_extensions WHERE name = $1`, name); err != nil {
		return nil, false, fmt.Errorf("load extension: %w", err)
	}
	return &ext, affected > 0, nil
}

// Delete removes an extension by name.
func (r *ExtensionRepository) Delete(ctx context.Context, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM allowed_extensions WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("delete extension: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
