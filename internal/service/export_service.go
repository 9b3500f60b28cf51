package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/export"
	"github.com/noah-isme/deptshare-api/pkg/storage"
)

const exportPrefix = "exports"

type auditSource interface {
	Since(ctx context.Context, since time.Time) ([]models.FileAuditEntry, error)
}

type logFileRepository interface {
	Create(ctx context.Context, file *models.LogFile) error
	FindByID(ctx context.Context, id string) (*models.LogFile, error)
	ListActive(ctx context.Context) ([]models.LogFile, error)
	IncrementDownloads(ctx context.Context, id string) error
	DeactivateExpired(ctx context.Context, now time.Time) ([]string, error)
}

type exportStorage interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	CleanupOlderThan(prefix string, ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix   string
	ResultTTL   time.Duration
	DefaultDays int
}

// ExportService renders file audit entries into downloadable CSV or PDF exports.
type ExportService struct {
	audits   auditSource
	files    logFileRepository
	storage  exportStorage
	csv      datasetRenderer
	pdf      datasetRenderer
	signer   *storage.SignedURLSigner
	validate *validator.Validate
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the package defaults.
func NewExportService(audits auditSource, files logFileRepository, store exportStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 30
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		audits:   audits,
		files:    files,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Generate renders the audit trail of the last req.Days days and records the export.
func (s *ExportService) Generate(ctx context.Context, actor *models.Actor, req dto.GenerateExportRequest) (*dto.LogFileView, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	days := req.Days
	if days == 0 {
		days = s.cfg.DefaultDays
	}
	format := export.Format(req.Format)

	now := s.now().UTC()
	entries, err := s.audits.Since(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit entries")
	}
	dataset := buildAuditDataset(entries, days)

	var payload []byte
	switch format {
	case export.FormatCSV:
		payload, err = s.csv.Render(dataset)
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	name := fmt.Sprintf("audit_log_%dd_%s.%s", days, now.Format("20060102_150405"), format)
	relPath, err := s.storage.Save(exportPrefix+"/"+sanitizeFilename(name), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	expiresAt := now.Add(s.cfg.ResultTTL)
	record := &models.LogFile{
		Name:        name,
		Format:      string(format),
		FilePath:    relPath,
		FileSize:    int64(len(payload)),
		GeneratedBy: actor.UserID,
		GeneratedAt: now,
		ExpiresAt:   &expiresAt,
		IsActive:    true,
	}
	if err := s.files.Create(ctx, record); err != nil {
		if delErr := s.storage.Delete(relPath); delErr != nil {
			s.logger.Warn("orphaned export blob", zap.String("path", relPath), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record export")
	}
	s.logger.Info("audit export generated", zap.String("id", record.ID), zap.String("format", record.Format), zap.Int("entries", len(entries)))
	return s.view(*record)
}

// List returns active, unexpired exports with fresh download URLs.
func (s *ExportService) List(ctx context.Context, actor *models.Actor) ([]dto.LogFileView, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}
	files, err := s.files.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exports")
	}
	now := s.now()
	out := make([]dto.LogFileView, 0, len(files))
	for _, f := range files {
		if f.Expired(now) {
			continue
		}
		view, err := s.view(f)
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, nil
}

// Open validates a download token for export id and returns the stored blob.
func (s *ExportService) Open(ctx context.Context, id, token string) (*os.File, *models.LogFile, error) {
	subject, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, nil, appErrors.Clone(appErrors.ErrGone, "download link expired")
		}
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	if subject != id {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	record, err := s.files.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export")
	}
	if !record.IsActive || record.Expired(s.now()) || record.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrGone, "export no longer available")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export file missing")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	if err := s.files.IncrementDownloads(ctx, id); err != nil {
		s.logger.Warn("export download count not updated", zap.String("id", id), zap.Error(err))
	}
	return file, record, nil
}

// Cleanup deactivates expired exports and removes their blobs plus any stray files
// older than ttl (defaults to the configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	paths, err := s.files.DeactivateExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if err := s.storage.Delete(p); err != nil {
			s.logger.Warn("export blob delete failed", zap.String("path", p), zap.Error(err))
			continue
		}
		removed++
	}
	stale, err := s.storage.CleanupOlderThan(exportPrefix, ttl)
	if err != nil {
		return removed, err
	}
	return removed + len(stale), nil
}

func (s *ExportService) view(f models.LogFile) (*dto.LogFileView, error) {
	token, _, err := s.signer.Generate(f.ID, f.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &dto.LogFileView{
		LogFile:     f,
		DownloadURL: fmt.Sprintf("%s/admin/logs/%s/download?token=%s", prefix, f.ID, token),
	}, nil
}

func buildAuditDataset(entries []models.FileAuditEntry, days int) export.Dataset {
	headers := []string{"Timestamp", "User", "Action", "File", "IP Address"}
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]string{
			"Timestamp":  e.Timestamp.UTC().Format(time.RFC3339),
			"User":       derefOr(e.Username, "Anonymous"),
			"Action":     e.Action.Display(),
			"File":       derefOr(e.FileName, "Deleted file"),
			"IP Address": derefOr(e.IPAddress, ""),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("File Audit Log (last %d days)", days),
		Headers: headers,
		Rows:    rows,
	}
}

func derefOr(ptr *string, fallback string) string {
	if ptr == nil || *ptr == "" {
		return fallback
	}
	return *ptr
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
