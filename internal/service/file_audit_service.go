package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/deptshare-api/internal/models"
)

type fileAuditWriter interface {
	Create(ctx context.Context, entry *models.FileAuditLog) error
}

// FileAuditRecorder appends content events. Write failures are logged and swallowed.
type FileAuditRecorder struct {
	repo   fileAuditWriter
	logger *zap.Logger
}

// NewFileAuditRecorder constructs the recorder.
func NewFileAuditRecorder(repo fileAuditWriter, logger *zap.Logger) *FileAuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileAuditRecorder{repo: repo, logger: logger}
}

// Record appends an event for fileID. Anonymous actors are recorded without a user.
func (r *FileAuditRecorder) Record(ctx context.Context, fileID string, actor *models.Actor, action models.FileAction, meta models.RequestMeta, details map[string]interface{}) {
	if r == nil || r.repo == nil {
		return
	}
	entry := &models.FileAuditLog{
		Action:    action,
		UserAgent: meta.UserAgent,
	}
	if fileID != "" {
		entry.FileItemID = &fileID
	}
	if actor.Authenticated() {
		userID := actor.UserID
		entry.UserID = &userID
	}
	if meta.IP != "" {
		ip := meta.IP
		entry.IPAddress = &ip
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = raw
		}
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Warn("failed to record file audit", zap.String("action", string(action)), zap.String("file_id", fileID), zap.Error(err))
	}
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// emitAudit writes an administrative audit entry, logging instead of failing.
func emitAudit(ctx context.Context, sink auditLogger, logger *zap.Logger, entry *models.AuditLog) {
	if sink == nil || entry == nil {
		return
	}
	if err := sink.CreateAuditLog(ctx, entry); err != nil && logger != nil {
		logger.Warn("failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func auditJSON(values map[string]interface{}) []byte {
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return raw
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
