package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/storage"
)

type contentFolderStore interface {
	Create(ctx context.Context, folder *models.Folder) error
	FindByID(ctx context.Context, id string) (*models.Folder, error)
	FindSibling(ctx context.Context, sessionID, departmentID string, parentID *string, name string) (*models.Folder, error)
	List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, error)
	Update(ctx context.Context, folder *models.Folder) error
}

type contentFileStore interface {
	Create(ctx context.Context, item *models.FileItem) error
	FindByID(ctx context.Context, id string) (*models.FileItem, error)
	ExistsByBlobRef(ctx context.Context, blobRef string) (bool, error)
	List(ctx context.Context, filter models.FolderFilter) ([]models.FileItem, error)
	Search(ctx context.Context, filter models.SearchFilter) ([]models.FileItem, error)
	Update(ctx context.Context, item *models.FileItem) error
	IncrementDownloads(ctx context.Context, id string) (int, error)
}

type blobStore interface {
	SaveStream(relPath string, r io.Reader) (int64, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
}

type scopeResolver interface {
	ScopeFor(ctx context.Context, actor *models.Actor) (*Scope, error)
}

type extensionChecker interface {
	CheckFilename(ctx context.Context, filename string) error
}

// FileUpload is an incoming blob with its client metadata.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.Reader
}

// ContentOptions configures uploads and download links.
type ContentOptions struct {
	MaxFileSize int64
	APIPrefix   string
}

// ContentService manages folders and files inside a session and department.
type ContentService struct {
	folders     contentFolderStore
	files       contentFileStore
	sessions    sessionFinder
	departments departmentFinder
	scopes      scopeResolver
	extensions  extensionChecker
	blobs       blobStore
	signer      blobSigner
	audit       *FileAuditRecorder
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	opts        ContentOptions
}

// NewContentService constructs the service.
func NewContentService(folders contentFolderStore, files contentFileStore, sessions sessionFinder, departments departmentFinder, scopes scopeResolver,
	extensions extensionChecker, blobs blobStore, signer blobSigner, audit *FileAuditRecorder, cache *CacheService, metrics *MetricsService,
	validate *validator.Validate, logger *zap.Logger, opts ContentOptions) *ContentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 50 * 1024 * 1024
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}
	opts.APIPrefix = strings.TrimRight(opts.APIPrefix, "/")
	return &ContentService{
		folders:     folders,
		files:       files,
		sessions:    sessions,
		departments: departments,
		scopes:      scopes,
		extensions:  extensions,
		blobs:       blobs,
		signer:      signer,
		audit:       audit,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		opts:        opts,
	}
}

type placement struct {
	session *models.AcademicSession
	dept    *models.Department
	parent  *models.Folder
}

// CreateFolder adds a folder under parent, or at the root of the caller's session and department.
// A child takes the parent's scope and visibility.
func (s *ContentService) CreateFolder(ctx context.Context, actor *models.Actor, req dto.CreateFolderRequest) (*models.Folder, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid folder payload")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "folder name is invalid")
	}

	place, err := s.place(ctx, actor, req.ParentID, req.SessionID, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	var parentID *string
	var parentPublic *bool
	if place.parent != nil {
		parentID = &place.parent.ID
		parentPublic = &place.parent.IsPublic
	}
	if err := s.ensureNameFree(ctx, place.session.ID, place.dept.ID, parentID, name, ""); err != nil {
		return nil, err
	}

	folder := &models.Folder{
		SessionID:    place.session.ID,
		DepartmentID: place.dept.ID,
		ParentID:     parentID,
		Name:         name,
		Description:  req.Description,
		OwnerID:      actor.UserID,
		CategoryID:   emptyToNil(req.CategoryID),
		IsPublic:     ResolveCreateVisibility(actor, parentPublic, bool(req.IsPublic)),
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create folder")
	}
	if folder.IsPublic {
		s.cache.InvalidateContent(ctx)
	}
	return folder, nil
}

// ListFolders returns folders the actor works with. Administrators see everything,
// others only their own non-manual folders in their active session.
func (s *ContentService) ListFolders(ctx context.Context, actor *models.Actor, parentID *string) ([]models.Folder, error) {
	filter, err := s.listFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	if parentID != nil && *parentID != "" {
		filter.ParentID = parentID
	}
	folders, err := s.folders.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list folders")
	}
	return folders, nil
}

// ListFiles returns files the actor works with, under the same rule as ListFolders.
func (s *ContentService) ListFiles(ctx context.Context, actor *models.Actor, folderID *string) ([]dto.FileView, error) {
	filter, err := s.listFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	if folderID != nil && *folderID != "" {
		filter.ParentID = folderID
	}
	items, err := s.files.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	return s.views(items), nil
}

// FolderContents returns a folder with its direct, non-deleted children the actor may see.
func (s *ContentService) FolderContents(ctx context.Context, actor *models.Actor, id string) (*dto.FolderContents, error) {
	folder, err := s.liveFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, folder.OwnerID, folder.IsPublic) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "folder is private")
	}
	filter := models.FolderFilter{ParentID: &folder.ID, IncludeManual: true}
	switch {
	case actor.IsAdmin():
	case actor.Authenticated():
		filter.VisibleTo = actor.UserID
	default:
		filter.PublicOnly = true
	}
	children, err := s.folders.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list child folders")
	}
	files, err := s.files.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list folder files")
	}
	return &dto.FolderContents{Folder: *folder, Children: children, Files: s.views(files)}, nil
}

// UpdateFolder edits name, description and category. Owner or administrator only.
func (s *ContentService) UpdateFolder(ctx context.Context, actor *models.Actor, id string, req dto.UpdateContentRequest) (*models.Folder, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid folder payload")
	}
	folder, err := s.liveFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanDelete(folder.OwnerID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this folder")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || strings.ContainsAny(name, `/\`) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "folder name is invalid")
		}
		if name != folder.Name {
			if err := s.ensureNameFree(ctx, folder.SessionID, folder.DepartmentID, folder.ParentID, name, folder.ID); err != nil {
				return nil, err
			}
			folder.Name = name
		}
	}
	if req.Description != nil {
		folder.Description = *req.Description
	}
	if req.CategoryID != nil {
		folder.CategoryID = emptyToNil(req.CategoryID)
	}
	if err := s.folders.Update(ctx, folder); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update folder")
	}
	if folder.IsPublic {
		s.cache.InvalidateContent(ctx)
	}
	return folder, nil
}

// Upload stores a blob and records it. The extension must be allowed and the size within
// the limit. Inside a folder the file takes the folder's scope and visibility.
func (s *ContentService) Upload(ctx context.Context, actor *models.Actor, req dto.UploadFileRequest, upload FileUpload, meta models.RequestMeta) (*dto.FileView, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	filename := path.Base(strings.ReplaceAll(strings.TrimSpace(upload.Filename), `\`, "/"))
	if upload.Content == nil || filename == "" || filename == "." || filename == "/" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.opts.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %s limit", models.HumanizeBytes(s.opts.MaxFileSize)))
	}
	if s.extensions != nil {
		if err := s.extensions.CheckFilename(ctx, filename); err != nil {
			return nil, err
		}
	}

	place, err := s.place(ctx, actor, emptyToNil(req.FolderID), emptyToNil(req.SessionID), emptyToNil(req.DepartmentID))
	if err != nil {
		return nil, err
	}
	chain, err := s.folderChain(ctx, place.parent)
	if err != nil {
		return nil, err
	}
	blobRef, err := s.freeBlobRef(ctx, models.BlobPath(place.session, place.dept, chain, filename))
	if err != nil {
		return nil, err
	}

	written, err := s.blobs.SaveStream(blobRef, io.LimitReader(upload.Content, s.opts.MaxFileSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	if written > s.opts.MaxFileSize {
		_ = s.blobs.Delete(blobRef)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %s limit", models.HumanizeBytes(s.opts.MaxFileSize)))
	}

	var folderID *string
	var parentPublic *bool
	if place.parent != nil {
		folderID = &place.parent.ID
		parentPublic = &place.parent.IsPublic
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = filename
	}
	item := &models.FileItem{
		SessionID:        place.session.ID,
		DepartmentID:     place.dept.ID,
		FolderID:         folderID,
		BlobRef:          blobRef,
		Name:             name,
		OriginalFilename: filename,
		Description:      req.Description,
		MimeType:         upload.MimeType,
		OwnerID:          actor.UserID,
		CategoryID:       emptyToNil(req.CategoryID),
		IsPublic:         ResolveCreateVisibility(actor, parentPublic, dto.Truthy(req.IsPublic)),
		FileSize:         written,
	}
	if err := s.files.Create(ctx, item); err != nil {
		_ = s.blobs.Delete(blobRef)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record file")
	}

	s.audit.Record(ctx, item.ID, actor, models.FileActionUpload, meta, nil)
	s.metrics.RecordUpload(written)
	if item.IsPublic {
		s.cache.InvalidateContent(ctx)
	}
	s.logger.Info("file uploaded", zap.String("file_id", item.ID), zap.String("blob", blobRef), zap.Int64("size", written))
	view := dto.NewFileView(*item, path.Join(chain...), s.downloadURL(item))
	return &view, nil
}

// GetFile returns a visible file with a signed download URL and records a view.
func (s *ContentService) GetFile(ctx context.Context, actor *models.Actor, id string, meta models.RequestMeta) (*dto.FileView, error) {
	item, err := s.visibleFile(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, item.ID, actor, models.FileActionView, meta, nil)
	view := dto.NewFileView(*item, "", s.downloadURL(item))
	return &view, nil
}

// UpdateFile edits name, description and category. Owner or administrator only.
func (s *ContentService) UpdateFile(ctx context.Context, actor *models.Actor, id string, req dto.UpdateContentRequest) (*dto.FileView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid file payload")
	}
	item, err := s.liveFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanDelete(item.OwnerID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this file")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file name is required")
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.CategoryID != nil {
		item.CategoryID = emptyToNil(req.CategoryID)
	}
	if err := s.files.Update(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update file")
	}
	if item.IsPublic {
		s.cache.InvalidateContent(ctx)
	}
	view := dto.NewFileView(*item, "", s.downloadURL(item))
	return &view, nil
}

// Search matches name, description and original filename. Non-administrators only
// see public files and their own.
func (s *ContentService) Search(ctx context.Context, actor *models.Actor, query string, limit int) (*dto.SearchResponse, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "query parameter 'q' is required")
	}
	filter := models.SearchFilter{Query: query, Limit: limit}
	if !actor.IsAdmin() {
		filter.VisibleTo = actor.UserID
	}
	items, err := s.files.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search files")
	}
	views := s.views(items)
	return &dto.SearchResponse{Results: views, Count: len(views)}, nil
}

// Download opens a file behind a signed token from GetFile and counts the download.
func (s *ContentService) Download(ctx context.Context, actor *models.Actor, id, token string, meta models.RequestMeta) (*BlobDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	fileID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrGone, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	item, err := s.liveFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if fileID != item.ID || relPath != item.BlobRef {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	handle, err := s.blobs.Open(item.BlobRef)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, appErrors.Clone(appErrors.ErrFileMissing, "the file is missing from storage")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	if _, err := s.files.IncrementDownloads(ctx, item.ID); err != nil {
		s.logger.Warn("failed to count download", zap.String("file_id", item.ID), zap.Error(err))
	}
	s.audit.Record(ctx, item.ID, actor, models.FileActionDownload, meta, nil)
	return &BlobDownload{File: handle, Filename: item.OriginalFilename, MimeType: item.MimeType, Size: item.FileSize}, nil
}

// place resolves where new content lands: under parent when given, else in the requested
// or the actor's own session and department. Non-administrators may only write to their
// active session.
func (s *ContentService) place(ctx context.Context, actor *models.Actor, parentID, sessionID, departmentID *string) (*placement, error) {
	if parentID != nil {
		parent, err := s.liveFolder(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if !actor.IsAdmin() && !actor.Owns(parent.OwnerID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to add content to this folder")
		}
		session, err := s.loadSession(ctx, parent.SessionID)
		if err != nil {
			return nil, err
		}
		dept, err := s.loadDepartment(ctx, parent.DepartmentID)
		if err != nil {
			return nil, err
		}
		return &placement{session: session, dept: dept, parent: parent}, nil
	}

	scope, err := s.scopes.ScopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	sid := scope.SessionID
	if sessionID != nil && actor.IsAdmin() {
		sid = sessionID
	}
	if sid == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no active session")
	}
	if !actor.IsAdmin() && sessionID != nil && *sessionID != *sid {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "content can only be added to the active session")
	}
	var did *string
	if scope.Profile != nil {
		did = scope.Profile.DepartmentID
	}
	if departmentID != nil && actor.IsAdmin() {
		did = departmentID
	}
	if did == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a department is required")
	}
	session, err := s.loadSession(ctx, *sid)
	if err != nil {
		return nil, err
	}
	dept, err := s.loadDepartment(ctx, *did)
	if err != nil {
		return nil, err
	}
	return &placement{session: session, dept: dept}, nil
}

func (s *ContentService) listFilter(ctx context.Context, actor *models.Actor) (models.FolderFilter, error) {
	if !actor.Authenticated() {
		return models.FolderFilter{}, appErrors.ErrUnauthorized
	}
	if actor.IsAdmin() {
		return models.FolderFilter{IncludeManual: true}, nil
	}
	filter := models.FolderFilter{OwnerID: actor.UserID}
	scope, err := s.scopes.ScopeFor(ctx, actor)
	if err != nil {
		return filter, err
	}
	if scope.SessionID != nil {
		filter.SessionID = *scope.SessionID
	}
	return filter, nil
}

// folderChain returns folder names from the root down to folder.
func (s *ContentService) folderChain(ctx context.Context, folder *models.Folder) ([]string, error) {
	var chain []string
	seen := make(map[string]struct{})
	for folder != nil {
		if _, loop := seen[folder.ID]; loop {
			break
		}
		seen[folder.ID] = struct{}{}
		chain = append([]string{folder.Name}, chain...)
		if folder.ParentID == nil {
			break
		}
		parent, err := s.folders.FindByID(ctx, *folder.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				break
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
		}
		folder = parent
	}
	return chain, nil
}

// freeBlobRef suffixes the filename when another row already uses ref.
func (s *ContentService) freeBlobRef(ctx context.Context, ref string) (string, error) {
	taken, err := s.files.ExistsByBlobRef(ctx, ref)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check storage path")
	}
	if !taken {
		return ref, nil
	}
	ext := path.Ext(ref)
	return strings.TrimSuffix(ref, ext) + "_" + uuid.NewString()[:8] + ext, nil
}

func (s *ContentService) ensureNameFree(ctx context.Context, sessionID, departmentID string, parentID *string, name, selfID string) error {
	existing, err := s.folders.FindSibling(ctx, sessionID, departmentID, parentID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check folder name")
	}
	if existing.ID == selfID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrValidation, "a folder with this name already exists here")
}

func (s *ContentService) visibleFile(ctx context.Context, actor *models.Actor, id string) (*models.FileItem, error) {
	item, err := s.liveFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, item.OwnerID, item.IsPublic) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "file is private")
	}
	return item, nil
}

func (s *ContentService) liveFolder(ctx context.Context, id string) (*models.Folder, error) {
	folder, err := s.folders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	if folder.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
	}
	return folder, nil
}

func (s *ContentService) liveFile(ctx context.Context, id string) (*models.FileItem, error) {
	item, err := s.files.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if item.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return item, nil
}

func (s *ContentService) loadSession(ctx context.Context, id string) (*models.AcademicSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "session does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *ContentService) loadDepartment(ctx context.Context, id string) (*models.Department, error) {
	dept, err := s.departments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return dept, nil
}

func (s *ContentService) views(items []models.FileItem) []dto.FileView {
	views := make([]dto.FileView, 0, len(items))
	for i := range items {
		views = append(views, dto.NewFileView(items[i], "", ""))
	}
	return views
}

func (s *ContentService) downloadURL(item *models.FileItem) string {
	if s.signer == nil {
		return ""
	}
	token, _, err := s.signer.Generate(item.ID, item.BlobRef)
	if err != nil {
		s.logger.Warn("failed to sign download", zap.String("file_id", item.ID), zap.Error(err))
		return ""
	}
	return fmt.Sprintf("%s/files/%s/download?token=%s", s.opts.APIPrefix, item.ID, token)
}

func canSee(actor *models.Actor, ownerID string, public bool) bool {
	return public || actor.IsAdmin() || actor.Owns(ownerID)
}

func emptyToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
