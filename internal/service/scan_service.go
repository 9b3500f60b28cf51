package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
)

type blobWalker interface {
	Walk(prefix string, fn func(relPath string, size int64) error) error
	Path(relPath string) string
}

type scanSessionStore interface {
	FindByYearAndName(ctx context.Context, year int, name string) (*models.AcademicSession, error)
	Create(ctx context.Context, session *models.AcademicSession) error
}

type scanDepartmentStore interface {
	FindByCode(ctx context.Context, code string) (*models.Department, error)
	Create(ctx context.Context, dept *models.Department) error
}

type scanFolderStore interface {
	FindSibling(ctx context.Context, sessionID, departmentID string, parentID *string, name string) (*models.Folder, error)
	Create(ctx context.Context, folder *models.Folder) error
}

type scanFileStore interface {
	ExistsByBlobRef(ctx context.Context, blobRef string) (bool, error)
	Create(ctx context.Context, item *models.FileItem) error
}

var knownDepartments = map[string]string{
	"CSE":   "Computer Science Engineering",
	"IT":    "Information Technology",
	"ECE":   "Electronics and Communication Engineering",
	"ME":    "Mechanical Engineering",
	"CE":    "Civil Engineering",
	"IO":    "Industrial Engineering",
	"ADMIN": "Administration",
}

// ScanService imports blobs placed directly in storage as manual catalogue entries.
type ScanService struct {
	blobs       blobWalker
	sessions    scanSessionStore
	departments scanDepartmentStore
	folders     scanFolderStore
	files       scanFileStore
	audit       auditLogger
	cache       *CacheService
	logger      *zap.Logger
}

// NewScanService constructs a ScanService.
func NewScanService(blobs blobWalker, sessions scanSessionStore, departments scanDepartmentStore, folders scanFolderStore,
	files scanFileStore, audit auditLogger, cache *CacheService, logger *zap.Logger) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		blobs:       blobs,
		sessions:    sessions,
		departments: departments,
		folders:     folders,
		files:       files,
		audit:       audit,
		cache:       cache,
		logger:      logger,
	}
}

// scanRun memoises lookups made while walking one import.
type scanRun struct {
	actor       *models.Actor
	report      *dto.ScanReport
	sessions    map[string]scanEntry[models.AcademicSession]
	departments map[string]scanEntry[models.Department]
	folders     map[string]scanEntry[models.Folder]
}

// Scan walks storage and creates manual sessions, departments, folders and files for
// blobs laid out as "{year}_{session}/{DEPT}/{folders...}/{file}". Blobs already
// referenced by a file row are skipped, as are paths that do not fit the layout.
func (s *ScanService) Scan(ctx context.Context, actor *models.Actor, req dto.ScanRequest, meta models.RequestMeta) (*dto.ScanReport, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	run := &scanRun{
		actor:       actor,
		report:      &dto.ScanReport{},
		sessions:    make(map[string]scanEntry[models.AcademicSession]),
		departments: make(map[string]scanEntry[models.Department]),
		folders:     make(map[string]scanEntry[models.Folder]),
	}

	err := s.blobs.Walk("", func(relPath string, size int64) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return s.importBlob(ctx, run, req, relPath, size)
	})
	if err != nil {
		return run.report, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "media scan aborted")
	}

	if !req.DryRun && run.report.FilesCreated+run.report.FoldersCreated > 0 {
		s.cache.InvalidateContent(ctx)
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		UserID:   optionalString(actor.UserID),
		Action:   models.AuditActionManualScan,
		Resource: "storage",
		NewValues: auditJSON(map[string]interface{}{
			"dry_run":             req.DryRun,
			"sessions_created":    run.report.SessionsCreated,
			"departments_created": run.report.DepartmentsCreated,
			"folders_created":     run.report.FoldersCreated,
			"files_created":       run.report.FilesCreated,
			"skipped":             len(run.report.Skipped),
		}),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})
	s.logger.Info("media scan finished",
		zap.Bool("dry_run", req.DryRun),
		zap.Int("files_created", run.report.FilesCreated),
		zap.Int("folders_created", run.report.FoldersCreated),
		zap.Int("skipped", len(run.report.Skipped)))
	return run.report, nil
}

func (s *ScanService) importBlob(ctx context.Context, run *scanRun, req dto.ScanRequest, relPath string, size int64) error {
	parts := strings.Split(relPath, "/")
	if parts[0] == exportPrefix {
		return nil
	}
	if len(parts) < 3 {
		run.skip(relPath, "outside session/department layout")
		return nil
	}
	year, sessionName, ok := parseSessionDir(parts[0])
	if !ok {
		run.skip(relPath, "unrecognised session directory")
		return nil
	}
	if req.Year != 0 && req.Year != year {
		return nil
	}

	exists, err := s.files.ExistsByBlobRef(ctx, relPath)
	if err != nil {
		return err
	}
	if exists {
		run.skip(relPath, "already catalogued")
		return nil
	}

	session, sessionStored, err := s.session(ctx, run, req.DryRun, year, sessionName)
	if err != nil {
		return err
	}
	dept, deptStored, err := s.department(ctx, run, req.DryRun, parts[1])
	if err != nil {
		return err
	}

	// Lookups below an entity that only exists in a dry run cannot match anything.
	stored := sessionStored && deptStored
	var parentID *string
	for i := 2; i < len(parts)-1; i++ {
		key := strings.Join(parts[:i+1], "/")
		folder, folderStored, err := s.folder(ctx, run, req.DryRun, stored, key, session.ID, dept.ID, parentID, parts[i])
		if err != nil {
			return err
		}
		stored = folderStored
		parentID = optionalString(folder.ID)
	}

	filename := parts[len(parts)-1]
	run.report.FilesCreated++
	if req.DryRun {
		return nil
	}
	item := &models.FileItem{
		SessionID:        session.ID,
		DepartmentID:     dept.ID,
		FolderID:         parentID,
		BlobRef:          relPath,
		Name:             filename,
		OriginalFilename: filename,
		Description:      "Imported from storage: " + relPath,
		MimeType:         s.detectMime(relPath),
		OwnerID:          run.actor.UserID,
		IsManual:         true,
		FileSize:         size,
	}
	return s.files.Create(ctx, item)
}

type scanEntry[T any] struct {
	value  *T
	stored bool
}

func (s *ScanService) session(ctx context.Context, run *scanRun, dryRun bool, year int, name string) (*models.AcademicSession, bool, error) {
	key := strconv.Itoa(year) + "_" + name
	if cached, ok := run.sessions[key]; ok {
		return cached.value, cached.stored, nil
	}
	session, err := s.sessions.FindByYearAndName(ctx, year, name)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		session = &models.AcademicSession{
			Name:        name,
			Year:        year,
			Description: "Imported from storage directory " + key,
			CreatedBy:   optionalString(run.actor.UserID),
		}
		run.report.SessionsCreated++
		if !dryRun {
			if err := s.sessions.Create(ctx, session); err != nil {
				return nil, false, err
			}
		}
	default:
		return nil, false, err
	}
	stored := session.ID != ""
	run.sessions[key] = scanEntry[models.AcademicSession]{session, stored}
	return session, stored, nil
}

func (s *ScanService) department(ctx context.Context, run *scanRun, dryRun bool, code string) (*models.Department, bool, error) {
	code = strings.ToUpper(code)
	if cached, ok := run.departments[code]; ok {
		return cached.value, cached.stored, nil
	}
	dept, err := s.departments.FindByCode(ctx, code)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		name, known := knownDepartments[code]
		if !known {
			name = code
		}
		dept = &models.Department{Name: name, Code: code, Description: "Imported department " + name, IsActive: true}
		run.report.DepartmentsCreated++
		if !dryRun {
			if err := s.departments.Create(ctx, dept); err != nil {
				return nil, false, err
			}
		}
	default:
		return nil, false, err
	}
	stored := dept.ID != ""
	run.departments[code] = scanEntry[models.Department]{dept, stored}
	return dept, stored, nil
}

func (s *ScanService) folder(ctx context.Context, run *scanRun, dryRun, lookup bool, key, sessionID, deptID string, parentID *string, name string) (*models.Folder, bool, error) {
	if cached, ok := run.folders[key]; ok {
		return cached.value, cached.stored, nil
	}
	var (
		folder *models.Folder
		err    = sql.ErrNoRows
	)
	if lookup {
		folder, err = s.folders.FindSibling(ctx, sessionID, deptID, parentID, name)
	}
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		folder = &models.Folder{
			SessionID:    sessionID,
			DepartmentID: deptID,
			ParentID:     parentID,
			Name:         name,
			Description:  "Imported from storage: " + key,
			OwnerID:      run.actor.UserID,
			IsManual:     true,
		}
		run.report.FoldersCreated++
		if !dryRun {
			if err := s.folders.Create(ctx, folder); err != nil {
				return nil, false, err
			}
		}
	default:
		return nil, false, err
	}
	stored := folder.ID != ""
	run.folders[key] = scanEntry[models.Folder]{folder, stored}
	return folder, stored, nil
}

func (s *ScanService) detectMime(relPath string) string {
	abs := s.blobs.Path(relPath)
	if abs == "" {
		return "application/octet-stream"
	}
	mt, err := mimetype.DetectFile(abs)
	if err != nil {
		s.logger.Debug("mime detection failed", zap.String("path", relPath), zap.Error(err))
		return "application/octet-stream"
	}
	return mt.String()
}

func (r *scanRun) skip(relPath, reason string) {
	r.report.Skipped = append(r.report.Skipped, fmt.Sprintf("%s: %s", relPath, reason))
}

// parseSessionDir splits "2025_Spring" into its year and session name.
func parseSessionDir(dir string) (int, string, bool) {
	yearPart, name, found := strings.Cut(dir, "_")
	if !found || name == "" {
		return 0, "", false
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1900 {
		return 0, "", false
	}
	return year, strings.TrimSpace(name), true
}
