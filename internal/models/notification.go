package models

import "time"

// NotificationType classifies inbox entries.
type NotificationType string

const (
	NotificationFileShared       NotificationType = "file_shared"
	NotificationSessionActivated NotificationType = "session_activated"
	NotificationFileUploaded     NotificationType = "file_uploaded"
	NotificationSystem           NotificationType = "system"
)

// Notification is a per-user inbox entry.
type Notification struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user"`
	Type             NotificationType `db:"notification_type" json:"notification_type"`
	Title            string           `db:"title" json:"title"`
	Message          string           `db:"message" json:"message"`
	IsRead           bool             `db:"is_read" json:"is_read"`
	RelatedFileID    *string          `db:"related_file_id" json:"related_file,omitempty"`
	RelatedSessionID *string          `db:"related_session_id" json:"related_session,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// LogFile is a generated audit export kept in blob storage.
type LogFile struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Format        string     `db:"format" json:"format"`
	FilePath      string     `db:"file_path" json:"-"`
	FileSize      int64      `db:"file_size" json:"file_size"`
	GeneratedBy   string     `db:"generated_by" json:"generated_by"`
	GeneratedAt   time.Time  `db:"generated_at" json:"generated_at"`
	ExpiresAt     *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	DownloadCount int        `db:"download_count" json:"download_count"`
	IsActive      bool       `db:"is_active" json:"is_active"`
}

// Expired reports whether the export is past its expiry at now.
func (l *LogFile) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}
