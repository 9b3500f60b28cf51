package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type browseFolderStore interface {
	List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, error)
	ListPublic(ctx context.Context, sessionIDs []string) ([]models.Folder, error)
}

type browseFileStore interface {
	List(ctx context.Context, filter models.FolderFilter) ([]models.FileItem, error)
	ListPublic(ctx context.Context, sessionIDs []string) ([]models.FileItem, error)
}

type sessionLister interface {
	List(ctx context.Context) ([]models.AcademicSession, error)
	FindByID(ctx context.Context, id string) (*models.AcademicSession, error)
}

type departmentLister interface {
	List(ctx context.Context, activeOnly bool) ([]models.Department, error)
}

// BrowseService serves read-only catalogue views of the content tree.
type BrowseService struct {
	folders     browseFolderStore
	files       browseFileStore
	sessions    sessionLister
	departments departmentLister
	cache       *CacheService
	ttl         time.Duration
	apiPrefix   string
	logger      *zap.Logger
}

// NewBrowseService constructs the service. ttl bounds the cached public tree.
func NewBrowseService(folders browseFolderStore, files browseFileStore, sessions sessionLister, departments departmentLister,
	cache *CacheService, ttl time.Duration, apiPrefix string, logger *zap.Logger) *BrowseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &BrowseService{folders: folders, files: files, sessions: sessions, departments: departments, cache: cache, ttl: ttl, apiPrefix: apiPrefix, logger: logger}
}

// PublicTree returns every session with its active departments and their public,
// non-deleted content. Departments without public content are omitted.
func (s *BrowseService) PublicTree(ctx context.Context) (*dto.PublicTree, error) {
	var cached dto.PublicTree
	if hit, err := s.cache.Get(ctx, publicTreeCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	depts, err := s.departments.List(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	folders, err := s.folders.ListPublic(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list public folders")
	}
	files, err := s.files.ListPublic(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list public files")
	}

	type scopeKey struct{ session, dept string }
	folderScope := make(map[scopeKey][]models.Folder)
	for _, f := range folders {
		k := scopeKey{f.SessionID, f.DepartmentID}
		folderScope[k] = append(folderScope[k], f)
	}
	fileScope := make(map[scopeKey][]models.FileItem)
	for _, f := range files {
		k := scopeKey{f.SessionID, f.DepartmentID}
		fileScope[k] = append(fileScope[k], f)
	}

	tree := &dto.PublicTree{Sessions: make([]dto.SessionNode, 0, len(sessions))}
	for _, session := range sessions {
		node := dto.SessionNode{ID: session.ID, Name: session.Name, Year: session.Year, IsActive: session.IsActive, Departments: []dto.DepartmentNode{}}
		for _, dept := range depts {
			k := scopeKey{session.ID, dept.ID}
			if len(folderScope[k]) == 0 && len(fileScope[k]) == 0 {
				continue
			}
			roots, rootFiles, t := s.arrange(folderScope[k], fileScope[k])
			deptNode := dto.DepartmentNode{ID: dept.ID, Name: dept.Name, Code: dept.Code, Folders: make([]dto.FolderNode, 0, len(roots))}
			for _, root := range roots {
				deptNode.Folders = append(deptNode.Folders, t.node(root))
			}
			deptNode.Files = t.fileNodes(rootFiles)
			node.Departments = append(node.Departments, deptNode)
		}
		tree.Sessions = append(tree.Sessions, node)
	}

	if err := s.cache.Set(ctx, publicTreeCacheKey, tree, s.ttl); err != nil {
		s.logger.Warn("public tree cache write failed", zap.Error(err))
	}
	return tree, nil
}

// SessionBrowse lists one session/department: public content plus the caller's own
// private content. Administrators see everything including imported items.
func (s *BrowseService) SessionBrowse(ctx context.Context, actor *models.Actor, sessionID, departmentID string) (*dto.SessionBrowseResponse, error) {
	if sessionID == "" || departmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session and department are required")
	}
	if _, err := s.sessions.FindByID(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	filter := models.FolderFilter{SessionID: sessionID, DepartmentID: departmentID}
	switch {
	case actor.IsAdmin():
		filter.IncludeManual = true
	case actor.Authenticated():
		filter.VisibleTo = actor.UserID
	default:
		filter.PublicOnly = true
	}
	folders, err := s.folders.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list folders")
	}
	files, err := s.files.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}

	roots, rootFiles, t := s.arrange(folders, files)
	resp := &dto.SessionBrowseResponse{
		SessionID:    sessionID,
		DepartmentID: departmentID,
		Folders:      make([]dto.FolderNode, 0, len(roots)),
		Files:        make([]dto.FileView, 0, len(rootFiles)),
	}
	for _, root := range roots {
		resp.Folders = append(resp.Folders, t.node(root))
	}
	for _, f := range rootFiles {
		resp.Files = append(resp.Files, dto.NewFileView(f, "", s.fileURL(f)))
	}
	return resp, nil
}

// arrange indexes a visible subset of the tree. Folders whose parent is not in the
// subset become roots, and files outside every visible folder become root files.
func (s *BrowseService) arrange(folders []models.Folder, files []models.FileItem) ([]models.Folder, []models.FileItem, *folderTree) {
	present := make(map[string]struct{}, len(folders))
	for _, f := range folders {
		present[f.ID] = struct{}{}
	}
	var roots []models.Folder
	for _, f := range folders {
		if f.ParentID == nil {
			roots = append(roots, f)
			continue
		}
		if _, ok := present[*f.ParentID]; !ok {
			roots = append(roots, f)
		}
	}
	var rootFiles []models.FileItem
	for _, f := range files {
		if f.FolderID == nil {
			rootFiles = append(rootFiles, f)
			continue
		}
		if _, ok := present[*f.FolderID]; !ok {
			rootFiles = append(rootFiles, f)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	sort.SliceStable(rootFiles, func(i, j int) bool { return rootFiles[i].Name < rootFiles[j].Name })
	return roots, rootFiles, newFolderTree(folders, files, s.fileURL)
}

func (s *BrowseService) fileURL(f models.FileItem) string {
	return s.apiPrefix + "/files/" + f.ID
}
