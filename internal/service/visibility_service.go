package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type visibilityFolderStore interface {
	FindByID(ctx context.Context, id string) (*models.Folder, error)
	ChildIDs(ctx context.Context, parentID string) ([]string, error)
	SetPublic(ctx context.Context, id string, public bool) error
}

type visibilityFileStore interface {
	FindByID(ctx context.Context, id string) (*models.FileItem, error)
	ListByFolder(ctx context.Context, folderID string) ([]models.FileItem, error)
	SetPublic(ctx context.Context, id string, public bool) error
}

// VisibilityService flips the public flag of files and folders and cascades folder changes.
// Cascades write row by row without a transaction: a failure part way leaves the rows
// already written with their new value.
type VisibilityService struct {
	folders visibilityFolderStore
	files   visibilityFileStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewVisibilityService constructs the service.
func NewVisibilityService(folders visibilityFolderStore, files visibilityFileStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *VisibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityService{folders: folders, files: files, cache: cache, metrics: metrics, logger: logger}
}

// ResolveCreateVisibility decides the flag of a new folder or file. Children always take
// the parent's current flag; a public root item requires faculty or admin rights.
func ResolveCreateVisibility(actor *models.Actor, parentPublic *bool, requested bool) bool {
	if parentPublic != nil {
		return *parentPublic
	}
	if requested && !actor.CanCreatePublicRoot() {
		return false
	}
	return requested
}

// SetFileVisibility changes a single file.
func (s *VisibilityService) SetFileVisibility(ctx context.Context, actor *models.Actor, fileID string, public bool) (*dto.CascadeResult, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if file.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if !actor.CanSetVisibility(file.OwnerID, public) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to change visibility of this file")
	}
	if err := s.files.SetPublic(ctx, file.ID, public); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update file visibility")
	}
	s.metrics.RecordCascade("visibility", 1)
	s.cache.InvalidateContent(ctx)
	return &dto.CascadeResult{ID: file.ID, IsPublic: &public, Files: 1}, nil
}

// SetFolderVisibility writes the flag to the folder, its direct files, then every
// descendant folder and their files.
func (s *VisibilityService) SetFolderVisibility(ctx context.Context, actor *models.Actor, folderID string, public bool) (*dto.CascadeResult, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	folder, err := s.folders.FindByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	if folder.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
	}
	if !actor.CanSetVisibility(folder.OwnerID, public) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to change visibility of this folder")
	}

	result := &dto.CascadeResult{ID: folder.ID, IsPublic: &public}
	_, err = walkFolders(ctx, s.folders, folder.ID, func(id string) error {
		if err := s.folders.SetPublic(ctx, id, public); err != nil {
			return err
		}
		result.Folders++
		files, err := s.files.ListByFolder(ctx, id)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := s.files.SetPublic(ctx, f.ID, public); err != nil {
				return err
			}
			result.Files++
		}
		return nil
	})
	s.metrics.RecordCascade("visibility", result.Folders+result.Files)
	s.cache.InvalidateContent(ctx)
	if err != nil {
		s.logger.Warn("visibility cascade stopped part way",
			zap.String("folder_id", folder.ID), zap.Int("folders", result.Folders), zap.Int("files", result.Files), zap.Error(err))
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "visibility cascade incomplete")
	}
	return result, nil
}
