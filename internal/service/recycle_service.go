package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type recycleFolderStore interface {
	FindByID(ctx context.Context, id string) (*models.Folder, error)
	ChildIDs(ctx context.Context, parentID string) ([]string, error)
	MarkDeleted(ctx context.Context, id string, at time.Time, by string) error
	ClearDeleted(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListDeleted(ctx context.Context) ([]models.Folder, error)
}

type recycleFileStore interface {
	FindByID(ctx context.Context, id string) (*models.FileItem, error)
	ListByFolder(ctx context.Context, folderID string) ([]models.FileItem, error)
	MarkDeleted(ctx context.Context, id string, at time.Time, by string) error
	ClearDeleted(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListDeleted(ctx context.Context) ([]models.FileItem, error)
}

type shareLinkDeactivator interface {
	DeactivateForTarget(ctx context.Context, target models.ShareTarget) (int64, error)
}

type blobRemover interface {
	Delete(relPath string) error
}

// RecycleService soft-deletes, restores and purges content. Walks persist row by row
// and stop at the first failure without rolling back earlier rows.
type RecycleService struct {
	folders recycleFolderStore
	files   recycleFileStore
	links   shareLinkDeactivator
	blobs   blobRemover
	audit   *FileAuditRecorder
	admin   auditLogger
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecycleService constructs the service.
func NewRecycleService(folders recycleFolderStore, files recycleFileStore, links shareLinkDeactivator, blobs blobRemover, audit *FileAuditRecorder, admin auditLogger, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *RecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecycleService{
		folders: folders,
		files:   files,
		links:   links,
		blobs:   blobs,
		audit:   audit,
		admin:   admin,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DeleteFolder marks the folder, every descendant folder and their live files deleted,
// then deactivates links that target the folder itself.
func (s *RecycleService) DeleteFolder(ctx context.Context, actor *models.Actor, folderID string) (*dto.CascadeResult, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
	}
	if !actor.CanDelete(folder.OwnerID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this folder")
	}

	at := s.now()
	result := &dto.CascadeResult{ID: folder.ID}
	_, err = walkFolders(ctx, s.folders, folder.ID, func(id string) error {
		if err := s.folders.MarkDeleted(ctx, id, at, actor.UserID); err != nil {
			return err
		}
		result.Folders++
		files, err := s.files.ListByFolder(ctx, id)
		if err != nil {
			return err
		}
		for _, f := range files {
			if f.IsDeleted {
				continue
			}
			if err := s.files.MarkDeleted(ctx, f.ID, at, actor.UserID); err != nil {
				return err
			}
			result.Files++
		}
		return nil
	})
	s.afterCascade(ctx, "delete", result)
	if err != nil {
		s.logger.Warn("folder delete stopped part way", zap.String("folder_id", folder.ID), zap.Error(err))
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "folder delete incomplete")
	}

	deactivated, err := s.links.DeactivateForTarget(ctx, models.FolderTarget(folder.ID))
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate folder share links")
	}
	result.Links = deactivated
	return result, nil
}

// DeleteFile marks one file deleted, deactivates its links and records a delete event.
func (s *RecycleService) DeleteFile(ctx context.Context, actor *models.Actor, fileID string, meta models.RequestMeta) (*dto.CascadeResult, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	file, err := s.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	if !actor.CanDelete(file.OwnerID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this file")
	}
	if err := s.files.MarkDeleted(ctx, file.ID, s.now(), actor.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	result := &dto.CascadeResult{ID: file.ID, Files: 1}
	s.afterCascade(ctx, "delete", result)

	deactivated, err := s.links.DeactivateForTarget(ctx, models.FileTarget(file.ID))
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate file share links")
	}
	result.Links = deactivated
	s.audit.Record(ctx, file.ID, actor, models.FileActionDelete, meta, map[string]interface{}{"soft_delete": true})
	return result, nil
}

// RestoreFolder clears the deleted marker on the folder subtree and every file in it.
func (s *RecycleService) RestoreFolder(ctx context.Context, actor *models.Actor, folderID string) (*dto.CascadeResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !folder.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "folder is not deleted")
	}

	result := &dto.CascadeResult{ID: folder.ID}
	_, err = walkFolders(ctx, s.folders, folder.ID, func(id string) error {
		if err := s.folders.ClearDeleted(ctx, id); err != nil {
			return err
		}
		result.Folders++
		files, err := s.files.ListByFolder(ctx, id)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := s.files.ClearDeleted(ctx, f.ID); err != nil {
				return err
			}
			result.Files++
		}
		return nil
	})
	s.afterCascade(ctx, "restore", result)
	if err != nil {
		s.logger.Warn("folder restore stopped part way", zap.String("folder_id", folder.ID), zap.Error(err))
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "folder restore incomplete")
	}
	s.emitAdmin(ctx, actor, models.AuditActionRestore, "folder", folder.ID, map[string]interface{}{"name": folder.Name, "folders": result.Folders, "files": result.Files})
	return result, nil
}

// RestoreFile clears the deleted marker on one file.
func (s *RecycleService) RestoreFile(ctx context.Context, actor *models.Actor, fileID string) (*dto.CascadeResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	file, err := s.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !file.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is not deleted")
	}
	if err := s.files.ClearDeleted(ctx, file.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore file")
	}
	result := &dto.CascadeResult{ID: file.ID, Files: 1}
	s.afterCascade(ctx, "restore", result)
	s.emitAdmin(ctx, actor, models.AuditActionRestore, "file", file.ID, map[string]interface{}{"name": file.Name})
	return result, nil
}

// PurgeFolder removes a deleted folder subtree for good: each file's blob, then its row,
// then the folder rows from the leaves up.
func (s *RecycleService) PurgeFolder(ctx context.Context, actor *models.Actor, folderID string) (*dto.CascadeResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !folder.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only deleted folders can be purged")
	}

	result := &dto.CascadeResult{ID: folder.ID}
	order, err := walkFolders(ctx, s.folders, folder.ID, func(id string) error {
		files, err := s.files.ListByFolder(ctx, id)
		if err != nil {
			return err
		}
		for i := range files {
			if err := s.purgeFileRow(ctx, &files[i]); err != nil {
				return err
			}
			result.Files++
		}
		return nil
	})
	if err == nil {
		for i := len(order) - 1; i >= 0; i-- {
			if err = s.folders.Delete(ctx, order[i]); err != nil {
				break
			}
			result.Folders++
		}
	}
	s.afterCascade(ctx, "purge", result)
	if err != nil {
		s.logger.Warn("folder purge stopped part way", zap.String("folder_id", folder.ID), zap.Error(err))
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "folder purge incomplete")
	}
	s.emitAdmin(ctx, actor, models.AuditActionPurge, "folder", folder.ID, map[string]interface{}{"name": folder.Name, "folders": result.Folders, "files": result.Files})
	return result, nil
}

// PurgeFile removes a deleted file's blob and row.
func (s *RecycleService) PurgeFile(ctx context.Context, actor *models.Actor, fileID string) (*dto.CascadeResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	file, err := s.loadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !file.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only deleted files can be purged")
	}
	if err := s.purgeFileRow(ctx, file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge file")
	}
	result := &dto.CascadeResult{ID: file.ID, Files: 1}
	s.afterCascade(ctx, "purge", result)
	s.emitAdmin(ctx, actor, models.AuditActionPurge, "file", file.ID, map[string]interface{}{"name": file.Name, "blob": file.BlobRef})
	return result, nil
}

// RecycleBin lists soft-deleted files and folders.
func (s *RecycleService) RecycleBin(ctx context.Context, actor *models.Actor) (*dto.RecycleBin, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	files, err := s.files.ListDeleted(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deleted files")
	}
	folders, err := s.folders.ListDeleted(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deleted folders")
	}
	return &dto.RecycleBin{Files: files, Folders: folders}, nil
}

func (s *RecycleService) purgeFileRow(ctx context.Context, file *models.FileItem) error {
	if file.BlobRef != "" && s.blobs != nil {
		if err := s.blobs.Delete(file.BlobRef); err != nil {
			return err
		}
	}
	return s.files.Delete(ctx, file.ID)
}

func (s *RecycleService) afterCascade(ctx context.Context, operation string, result *dto.CascadeResult) {
	s.metrics.RecordCascade(operation, result.Folders+result.Files)
	s.cache.InvalidateContent(ctx)
}

func (s *RecycleService) emitAdmin(ctx context.Context, actor *models.Actor, action, resource, id string, values map[string]interface{}) {
	userID := actor.UserID
	emitAudit(ctx, s.admin, s.logger, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &id,
		NewValues:  auditJSON(values),
	})
}

func (s *RecycleService) loadFolder(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := s.folders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	return folder, nil
}

func (s *RecycleService) loadFile(ctx context.Context, id string) (*models.FileItem, error) {
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return file, nil
}
