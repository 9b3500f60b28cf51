package models

import (
	"encoding/json"
	"time"
)

// AuditAction constants represent administrative actions to be logged.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionLogout            = "LOGOUT"
	AuditActionUserUpdate        = "USER_UPDATE"
	AuditActionPasswordChange    = "PASSWORD_CHANGE"
	AuditActionSessionCreate     = "SESSION_CREATE"
	AuditActionSessionUpdate     = "SESSION_UPDATE"
	AuditActionSessionActivate   = "SESSION_ACTIVATE"
	AuditActionSessionDeactivate = "SESSION_DEACTIVATE"
	AuditActionDepartmentCreate  = "DEPARTMENT_CREATE"
	AuditActionDepartmentUpdate  = "DEPARTMENT_UPDATE"
	AuditActionCategoryCreate    = "CATEGORY_CREATE"
	AuditActionLogExport         = "LOG_EXPORT"
	AuditActionRestore           = "RESTORE"
	AuditActionPurge             = "PURGE"
	AuditActionExtensionChange   = "EXTENSION_CHANGE"
	AuditActionManualScan        = "MANUAL_SCAN"
)

// AuditLog represents an administrative audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FileAction enumerates content events recorded in the file audit trail.
type FileAction string

const (
	FileActionUpload   FileAction = "upload"
	FileActionDownload FileAction = "download"
	FileActionDelete   FileAction = "delete"
	FileActionShare    FileAction = "share"
	FileActionView     FileAction = "view"
)

// Display returns the label shown in activity feeds.
func (a FileAction) Display() string {
	switch a {
	case FileActionUpload:
		return "Upload"
	case FileActionDownload:
		return "Download"
	case FileActionDelete:
		return "Delete"
	case FileActionShare:
		return "Share"
	case FileActionView:
		return "View"
	default:
		return string(a)
	}
}

// FileAuditLog is an append-only content event.
type FileAuditLog struct {
	ID         string          `db:"id" json:"id"`
	FileItemID *string         `db:"file_item_id" json:"file,omitempty"`
	UserID     *string         `db:"user_id" json:"user,omitempty"`
	Action     FileAction      `db:"action" json:"action"`
	IPAddress  *string         `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	Details    json.RawMessage `db:"details" json:"details"`
	Timestamp  time.Time       `db:"timestamp" json:"timestamp"`
}

// FileAuditEntry is a file audit row joined with user and file names for feeds and exports.
type FileAuditEntry struct {
	ID        string     `db:"id" json:"id"`
	Username  *string    `db:"username" json:"user,omitempty"`
	Action    FileAction `db:"action" json:"action"`
	FileName  *string    `db:"file_name" json:"file,omitempty"`
	IPAddress *string    `db:"ip_address" json:"ip_address,omitempty"`
	Timestamp time.Time  `db:"timestamp" json:"timestamp"`
}

// RequestMeta carries client details attached to audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}
