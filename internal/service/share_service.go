package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/storage"
)

type shareLinkStore interface {
	Create(ctx context.Context, link *models.ShareLink) error
	FindByToken(ctx context.Context, token string) (*models.ShareLink, error)
	FindByID(ctx context.Context, id string) (*models.ShareLink, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.ShareLink, error)
	IncrementDownloads(ctx context.Context, id string) (int, error)
	Deactivate(ctx context.Context, id string) error
}

type shareFolderStore interface {
	FindByID(ctx context.Context, id string) (*models.Folder, error)
	Subtree(ctx context.Context, rootID string, includeDeleted bool) ([]models.Folder, error)
}

type shareFileStore interface {
	FindByID(ctx context.Context, id string) (*models.FileItem, error)
	ListInFolders(ctx context.Context, folderIDs []string, includeDeleted bool) ([]models.FileItem, error)
}

type sessionFinder interface {
	FindByID(ctx context.Context, id string) (*models.AcademicSession, error)
}

type departmentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

type blobReader interface {
	Exists(relPath string) (bool, error)
	Open(relPath string) (*os.File, error)
}

type blobSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (subject, relPath string, expiresAt time.Time, err error)
}

type shareNotifier interface {
	ShareCreated(ctx context.Context, notice ShareNotice)
}

// ShareNotice describes a new link for mail delivery. Password holds the plain value
// only for password links, since the stored copy is a hash.
type ShareNotice struct {
	Link       models.ShareLink
	ItemKind   string
	ItemName   string
	Department string
	Session    string
	SharedBy   string
	Password   string
	URL        string
}

// ShareOptions configures link issuing.
type ShareOptions struct {
	BaseURL       string
	DefaultExpiry time.Duration
}

// BlobDownload is an opened blob ready to stream.
type BlobDownload struct {
	File     *os.File
	Filename string
	MimeType string
	Size     int64
}

// ShareService issues and resolves share links.
type ShareService struct {
	links       shareLinkStore
	folders     shareFolderStore
	files       shareFileStore
	sessions    sessionFinder
	departments departmentFinder
	blobs       blobReader
	signer      blobSigner
	notifier    shareNotifier
	audit       *FileAuditRecorder
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	options     ShareOptions
	now         func() time.Time
}

// NewShareService constructs the service.
func NewShareService(links shareLinkStore, folders shareFolderStore, files shareFileStore, sessions sessionFinder, departments departmentFinder,
	blobs blobReader, signer blobSigner, notifier shareNotifier, audit *FileAuditRecorder, metrics *MetricsService,
	validate *validator.Validate, logger *zap.Logger, options ShareOptions) *ShareService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	options.BaseURL = strings.TrimRight(options.BaseURL, "/")
	return &ShareService{
		links:       links,
		folders:     folders,
		files:       files,
		sessions:    sessions,
		departments: departments,
		blobs:       blobs,
		signer:      signer,
		notifier:    notifier,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		options:     options,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// bcrypt only hashes the first 72 bytes and rejects longer input.
const maxSharePasswordBytes = 72

type shareItem struct {
	name         string
	ownerID      string
	isPublic     bool
	sessionID    string
	departmentID string
}

// CreateLink issues a token for one file or folder. Admins and owners may share anything;
// other users may only share items that are already public.
func (s *ShareService) CreateLink(ctx context.Context, actor *models.Actor, req dto.CreateShareRequest, meta models.RequestMeta) (*dto.ShareLinkView, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload")
	}
	target, err := models.NewShareTarget(req.FileID, req.FolderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "provide exactly one of file_item or folder")
	}

	email := strings.TrimSpace(deref(req.Email))
	password := deref(req.Password)
	switch req.ShareType {
	case models.ShareTypeEmail:
		if email == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "email shares require an email address")
		}
	case models.ShareTypePassword:
		if password == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "password shares require a password")
		}
		if len(password) > maxSharePasswordBytes {
			return nil, appErrors.Clone(appErrors.ErrValidation, "share password must be at most 72 bytes")
		}
	}

	item, err := s.loadTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(item.ownerID) && !item.isPublic {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to share this item")
	}

	now := s.now()
	expiresAt, err := s.resolveExpiry(req, now)
	if err != nil {
		return nil, err
	}

	link := &models.ShareLink{
		ID:           uuid.NewString(),
		Token:        uuid.NewString(),
		Target:       target,
		ShareType:    req.ShareType,
		CreatedBy:    actor.UserID,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
		MaxDownloads: req.MaxDownloads,
		IsActive:     true,
	}
	if email != "" {
		link.Email = &email
	}
	if req.ShareType == models.ShareTypePassword {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash share password")
		}
		hashed := string(hash)
		link.PasswordHash = &hashed
	}

	if err := s.links.Create(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create share link")
	}

	if target.IsFile() {
		s.audit.Record(ctx, target.ID, actor, models.FileActionShare, meta, map[string]interface{}{
			"share_type": link.ShareType,
			"email":      link.Email,
			"folder":     nil,
		})
	}

	if s.notifier != nil {
		notice := ShareNotice{
			Link:     *link,
			ItemKind: "File",
			ItemName: item.name,
			SharedBy: actorName(actor),
			URL:      s.linkURL(link.Token),
		}
		if target.IsFolder() {
			notice.ItemKind = "Folder"
		}
		if req.ShareType == models.ShareTypePassword {
			notice.Password = password
		}
		notice.Session, notice.Department = s.scopeNames(ctx, item.sessionID, item.departmentID)
		s.notifier.ShareCreated(ctx, notice)
	}

	return s.view(link), nil
}

// ListLinks returns links created by the actor.
func (s *ShareService) ListLinks(ctx context.Context, actor *models.Actor) ([]dto.ShareLinkView, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	links, err := s.links.ListByCreator(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list share links")
	}
	views := make([]dto.ShareLinkView, 0, len(links))
	for i := range links {
		views = append(views, *s.view(&links[i]))
	}
	return views, nil
}

// DeactivateLink turns a link off. Only its creator or an administrator may do so.
func (s *ShareService) DeactivateLink(ctx context.Context, actor *models.Actor, id string) error {
	if !actor.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	link, err := s.links.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "share link not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load share link")
	}
	if link.CreatedBy != actor.UserID && !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to deactivate this link")
	}
	if err := s.links.Deactivate(ctx, link.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate share link")
	}
	return nil
}

// ResolveLink checks a token and returns the shared file or folder tree. Each success
// consumes one download. A file whose blob is gone is reported as missing without
// consuming a download.
func (s *ShareService) ResolveLink(ctx context.Context, requester *models.Actor, token, password string, meta models.RequestMeta) (*dto.ShareResolveResponse, error) {
	resp, outcome, err := s.resolve(ctx, requester, token, password, meta)
	s.metrics.RecordShareResolve(outcome)
	return resp, err
}

func (s *ShareService) resolve(ctx context.Context, requester *models.Actor, token, password string, meta models.RequestMeta) (*dto.ShareResolveResponse, string, error) {
	link, err := s.links.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "not_found", appErrors.Clone(appErrors.ErrNotFound, "share link not found")
		}
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load share link")
	}

	if state := link.State(s.now()); state != models.ShareStateActive {
		return nil, "gone", appErrors.Clone(appErrors.ErrGone, fmt.Sprintf("share link is %s", state))
	}

	switch link.ShareType {
	case models.ShareTypeEmail:
		if !requester.Authenticated() || link.Email == nil || !strings.EqualFold(requester.Email, *link.Email) {
			return nil, "forbidden", appErrors.Clone(appErrors.ErrForbidden, "this link is restricted to another email address")
		}
	case models.ShareTypePassword:
		if password == "" || link.PasswordHash == nil ||
			bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(password)) != nil {
			return nil, "unauthorized", appErrors.Clone(appErrors.ErrUnauthorized, "a valid password is required")
		}
	}

	if link.Target.IsFile() {
		return s.resolveFile(ctx, requester, link, meta)
	}
	return s.resolveFolder(ctx, link)
}

func (s *ShareService) resolveFile(ctx context.Context, requester *models.Actor, link *models.ShareLink, meta models.RequestMeta) (*dto.ShareResolveResponse, string, error) {
	file, err := s.files.FindByID(ctx, link.Target.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "gone", appErrors.Clone(appErrors.ErrGone, "shared file no longer exists")
		}
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shared file")
	}
	if file.IsDeleted {
		return nil, "gone", appErrors.Clone(appErrors.ErrGone, "shared file was deleted")
	}

	exists, err := s.blobs.Exists(file.BlobRef)
	if err != nil {
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check stored file")
	}
	if !exists {
		s.logger.Warn("shared blob missing", zap.String("file_id", file.ID), zap.String("blob", file.BlobRef))
		return nil, "file_missing", appErrors.Clone(appErrors.ErrFileMissing, "the shared file is missing from storage")
	}

	if out, err := s.consume(ctx, link); err != nil {
		return nil, out, err
	}
	s.audit.Record(ctx, file.ID, requester, models.FileActionDownload, meta, map[string]interface{}{"share_link": link.ID})

	shared := &dto.SharedFile{
		ID:              file.ID,
		Name:            file.Name,
		FileExtension:   file.Extension(),
		IsPublic:        file.IsPublic,
		FileSize:        file.FileSize,
		FileSizeDisplay: file.SizeDisplay(),
		DownloadCount:   file.DownloadCount,
	}
	shared.Session, shared.Department = s.scopeNames(ctx, file.SessionID, file.DepartmentID)
	if u, expiresAt, err := s.downloadURL(link, file); err == nil {
		shared.URL = u
		shared.URLExpiresAt = &expiresAt
	} else {
		s.logger.Warn("failed to sign share download", zap.String("link_id", link.ID), zap.Error(err))
	}
	return &dto.ShareResolveResponse{Kind: models.ShareTargetFile, ShareType: link.ShareType, File: shared}, "ok", nil
}

func (s *ShareService) resolveFolder(ctx context.Context, link *models.ShareLink) (*dto.ShareResolveResponse, string, error) {
	root, err := s.folders.FindByID(ctx, link.Target.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "gone", appErrors.Clone(appErrors.ErrGone, "shared folder no longer exists")
		}
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shared folder")
	}
	if root.IsDeleted {
		return nil, "gone", appErrors.Clone(appErrors.ErrGone, "shared folder was deleted")
	}

	subtree, err := s.folders.Subtree(ctx, root.ID, false)
	if err != nil {
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shared folder tree")
	}
	files, err := s.files.ListInFolders(ctx, folderIDs(subtree), false)
	if err != nil {
		return nil, "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shared files")
	}

	if out, err := s.consume(ctx, link); err != nil {
		return nil, out, err
	}

	tree := newFolderTree(subtree, files, func(f models.FileItem) string {
		u, _, err := s.downloadURL(link, &f)
		if err != nil {
			return ""
		}
		return u
	})
	node := tree.node(*root)
	return &dto.ShareResolveResponse{Kind: models.ShareTargetFolder, ShareType: link.ShareType, Folder: &node}, "ok", nil
}

func (s *ShareService) consume(ctx context.Context, link *models.ShareLink) (string, error) {
	count, err := s.links.IncrementDownloads(ctx, link.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "gone", appErrors.Clone(appErrors.ErrGone, "share link is exhausted")
		}
		return "error", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record share download")
	}
	link.DownloadCount = count
	return "", nil
}

// DownloadShared opens the blob behind a signed reference issued by ResolveLink.
func (s *ShareService) DownloadShared(ctx context.Context, token, signature string) (*BlobDownload, error) {
	link, err := s.links.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "share link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load share link")
	}
	subject, relPath, _, err := s.signer.Parse(signature, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrGone, "download reference expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download reference")
	}
	linkID, fileID, ok := strings.Cut(subject, ":")
	if !ok || linkID != link.ID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download reference does not match link")
	}
	if !link.IsActive {
		return nil, appErrors.Clone(appErrors.ErrGone, "share link is deactivated")
	}

	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrGone, "shared file no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shared file")
	}
	if file.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrGone, "shared file was deleted")
	}
	if file.BlobRef != relPath {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download reference does not match file")
	}
	if err := s.ensureInScope(ctx, link, file); err != nil {
		return nil, err
	}

	handle, err := s.blobs.Open(file.BlobRef)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, appErrors.Clone(appErrors.ErrFileMissing, "the shared file is missing from storage")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open shared file")
	}
	return &BlobDownload{File: handle, Filename: file.OriginalFilename, MimeType: file.MimeType, Size: file.FileSize}, nil
}

// ensureInScope checks the file is the link target or sits below the target folder.
func (s *ShareService) ensureInScope(ctx context.Context, link *models.ShareLink, file *models.FileItem) error {
	if link.Target.IsFile() {
		if file.ID != link.Target.ID {
			return appErrors.Clone(appErrors.ErrForbidden, "file is outside the shared scope")
		}
		return nil
	}
	seen := make(map[string]struct{})
	current := file.FolderID
	for current != nil {
		if *current == link.Target.ID {
			return nil
		}
		if _, loop := seen[*current]; loop {
			break
		}
		seen[*current] = struct{}{}
		folder, err := s.folders.FindByID(ctx, *current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				break
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
		}
		current = folder.ParentID
	}
	return appErrors.Clone(appErrors.ErrForbidden, "file is outside the shared scope")
}

func (s *ShareService) loadTarget(ctx context.Context, target models.ShareTarget) (*shareItem, error) {
	if target.IsFile() {
		file, err := s.files.FindByID(ctx, target.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
		}
		if file.IsDeleted {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return &shareItem{name: file.Name, ownerID: file.OwnerID, isPublic: file.IsPublic, sessionID: file.SessionID, departmentID: file.DepartmentID}, nil
	}
	folder, err := s.folders.FindByID(ctx, target.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	if folder.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "folder not found")
	}
	return &shareItem{name: folder.Name, ownerID: folder.OwnerID, isPublic: folder.IsPublic, sessionID: folder.SessionID, departmentID: folder.DepartmentID}, nil
}

func (s *ShareService) resolveExpiry(req dto.CreateShareRequest, now time.Time) (*time.Time, error) {
	var expiresAt *time.Time
	switch {
	case req.ExpiresAt != nil:
		at := req.ExpiresAt.UTC()
		expiresAt = &at
	case req.ExpiresInHours != nil:
		at := now.Add(time.Duration(*req.ExpiresInHours) * time.Hour)
		expiresAt = &at
	case s.options.DefaultExpiry > 0:
		at := now.Add(s.options.DefaultExpiry)
		expiresAt = &at
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expiry must be in the future")
	}
	return expiresAt, nil
}

func (s *ShareService) scopeNames(ctx context.Context, sessionID, departmentID string) (string, string) {
	var sessionName, departmentName string
	if s.sessions != nil {
		if session, err := s.sessions.FindByID(ctx, sessionID); err == nil {
			sessionName = session.Name
		}
	}
	if s.departments != nil {
		if dept, err := s.departments.FindByID(ctx, departmentID); err == nil {
			departmentName = dept.Name
		}
	}
	return sessionName, departmentName
}

func (s *ShareService) downloadURL(link *models.ShareLink, file *models.FileItem) (string, time.Time, error) {
	if s.signer == nil {
		return "", time.Time{}, fmt.Errorf("signer not configured")
	}
	sig, expiresAt, err := s.signer.Generate(link.ID+":"+file.ID, file.BlobRef)
	if err != nil {
		return "", time.Time{}, err
	}
	return fmt.Sprintf("%s/api/v1/share/%s/download?sig=%s", s.options.BaseURL, link.Token, url.QueryEscape(sig)), expiresAt, nil
}

func (s *ShareService) linkURL(token string) string {
	return s.options.BaseURL + "/share/" + token
}

func (s *ShareService) view(link *models.ShareLink) *dto.ShareLinkView {
	return &dto.ShareLinkView{ShareLink: *link, URL: s.linkURL(link.Token), State: link.State(s.now())}
}

func actorName(actor *models.Actor) string {
	if actor == nil {
		return ""
	}
	if actor.Username != "" {
		return actor.Username
	}
	return actor.Email
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
