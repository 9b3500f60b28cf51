package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.FileCategory, error)
	Create(ctx context.Context, category *models.FileCategory) error
}

// CategoryService lists and creates file categories.
type CategoryService struct {
	repo      categoryRepository
	validator *validator.Validate
}

// NewCategoryService constructs the service.
func NewCategoryService(repo categoryRepository, validate *validator.Validate) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	return &CategoryService{repo: repo, validator: validate}
}

// List returns every category.
func (s *CategoryService) List(ctx context.Context) ([]models.FileCategory, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// Create adds a category. Administrators only.
func (s *CategoryService) Create(ctx context.Context, actor *models.Actor, req dto.CreateCategoryRequest) (*models.FileCategory, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.FileCategory{Name: strings.TrimSpace(req.Name), Description: req.Description, Color: req.Color}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return category, nil
}
