package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// CategoryRepository stores file categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]models.FileCategory, error) {
	var categories []models.FileCategory
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, name, description, color, created_at FROM file_categories ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.FileCategory) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.Color == "" {
		category.Color = "#007bff"
	}
	category.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO file_categories (id, name, description, color, created_at) VALUES (:id, :name, :description, :color, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}
