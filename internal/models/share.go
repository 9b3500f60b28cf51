package models

import (
	"errors"
	"time"
)

// ShareType selects how a link authenticates its requester.
type ShareType string

const (
	ShareTypePublic   ShareType = "public"
	ShareTypeEmail    ShareType = "email"
	ShareTypePassword ShareType = "password"
)

// Valid reports whether t is a known share type.
func (t ShareType) Valid() bool {
	return t == ShareTypePublic || t == ShareTypeEmail || t == ShareTypePassword
}

// ShareTargetKind distinguishes file and folder links.
type ShareTargetKind string

const (
	ShareTargetFile   ShareTargetKind = "file"
	ShareTargetFolder ShareTargetKind = "folder"
)

// ShareTarget names exactly one file or one folder.
type ShareTarget struct {
	Kind ShareTargetKind `json:"kind"`
	ID   string          `json:"id"`
}

// FileTarget targets a single file.
func FileTarget(id string) ShareTarget { return ShareTarget{Kind: ShareTargetFile, ID: id} }

// FolderTarget targets a folder and its subtree.
func FolderTarget(id string) ShareTarget { return ShareTarget{Kind: ShareTargetFolder, ID: id} }

// IsFile reports whether the target is a file.
func (t ShareTarget) IsFile() bool { return t.Kind == ShareTargetFile }

// IsFolder reports whether the target is a folder.
func (t ShareTarget) IsFolder() bool { return t.Kind == ShareTargetFolder }

// ErrInvalidShareTarget is returned when a target does not name exactly one file or folder.
var ErrInvalidShareTarget = errors.New("share link must target exactly one file or folder")

// NewShareTarget builds a target from optional file and folder ids, requiring exactly one.
func NewShareTarget(fileID, folderID *string) (ShareTarget, error) {
	hasFile := fileID != nil && *fileID != ""
	hasFolder := folderID != nil && *folderID != ""
	switch {
	case hasFile && !hasFolder:
		return FileTarget(*fileID), nil
	case hasFolder && !hasFile:
		return FolderTarget(*folderID), nil
	default:
		return ShareTarget{}, ErrInvalidShareTarget
	}
}

// Validate checks the target is well formed.
func (t ShareTarget) Validate() error {
	if t.ID == "" || (t.Kind != ShareTargetFile && t.Kind != ShareTargetFolder) {
		return ErrInvalidShareTarget
	}
	return nil
}

// ShareState is the lifecycle position of a link.
type ShareState string

const (
	ShareStateActive      ShareState = "active"
	ShareStateExpired     ShareState = "expired"
	ShareStateExhausted   ShareState = "exhausted"
	ShareStateDeactivated ShareState = "deactivated"
)

// ShareLink is a capability token granting access to one file or folder subtree.
type ShareLink struct {
	ID            string      `json:"id"`
	Token         string      `json:"token"`
	Target        ShareTarget `json:"target"`
	ShareType     ShareType   `json:"share_type"`
	CreatedBy     string      `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
	Email         *string     `json:"email,omitempty"`
	PasswordHash  *string     `json:"-"`
	MaxDownloads  *int        `json:"max_downloads,omitempty"`
	DownloadCount int         `json:"download_count"`
	IsActive      bool        `json:"is_active"`
}

// State evaluates the link at now. Deactivation wins over expiry, expiry over exhaustion.
func (l *ShareLink) State(now time.Time) ShareState {
	switch {
	case !l.IsActive:
		return ShareStateDeactivated
	case l.ExpiresAt != nil && !now.Before(*l.ExpiresAt):
		return ShareStateExpired
	case l.MaxDownloads != nil && l.DownloadCount >= *l.MaxDownloads:
		return ShareStateExhausted
	default:
		return ShareStateActive
	}
}

// IsValid reports whether the link still grants access at now.
func (l *ShareLink) IsValid(now time.Time) bool {
	return l.State(now) == ShareStateActive
}
