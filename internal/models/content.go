package models

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Folder is a node of the content tree scoped to one session and department.
type Folder struct {
	ID           string     `db:"id" json:"id"`
	SessionID    string     `db:"session_id" json:"session"`
	DepartmentID string     `db:"department_id" json:"department"`
	ParentID     *string    `db:"parent_id" json:"parent,omitempty"`
	Name         string     `db:"name" json:"name"`
	Description  string     `db:"description" json:"description"`
	OwnerID      string     `db:"owner_id" json:"owner"`
	CategoryID   *string    `db:"category_id" json:"category,omitempty"`
	IsPublic     bool       `db:"is_public" json:"is_public"`
	IsManual     bool       `db:"is_manual" json:"is_manual"`
	IsDeleted    bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy    *string    `db:"deleted_by" json:"deleted_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FileItem is a stored blob placed in a folder or at the session/department root.
type FileItem struct {
	ID               string     `db:"id" json:"id"`
	SessionID        string     `db:"session_id" json:"session"`
	DepartmentID     string     `db:"department_id" json:"department"`
	FolderID         *string    `db:"folder_id" json:"folder,omitempty"`
	BlobRef          string     `db:"blob_ref" json:"-"`
	Name             string     `db:"name" json:"name"`
	OriginalFilename string     `db:"original_filename" json:"original_filename"`
	Description      string     `db:"description" json:"description"`
	MimeType         string     `db:"mime_type" json:"mime_type"`
	OwnerID          string     `db:"owner_id" json:"owner"`
	CategoryID       *string    `db:"category_id" json:"category,omitempty"`
	IsPublic         bool       `db:"is_public" json:"is_public"`
	IsManual         bool       `db:"is_manual" json:"is_manual"`
	IsDeleted        bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy        *string    `db:"deleted_by" json:"deleted_by,omitempty"`
	FileSize         int64      `db:"file_size" json:"file_size"`
	DownloadCount    int        `db:"download_count" json:"download_count"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Extension returns the upper-cased suffix of the original filename without the dot.
func (f *FileItem) Extension() string {
	ext := path.Ext(f.OriginalFilename)
	return strings.ToUpper(strings.TrimPrefix(ext, "."))
}

// SizeDisplay renders the size the way file listings show it.
func (f *FileItem) SizeDisplay() string {
	return SizeDisplay(f.FileSize)
}

// SizeDisplay formats a byte count with whole-unit precision.
func SizeDisplay(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%d KB", size/1024)
	default:
		return fmt.Sprintf("%d MB", size/(1024*1024))
	}
}

// HumanizeBytes formats a byte count with one decimal above bytes, up to terabytes.
func HumanizeBytes(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size)
	units := []string{"KB", "MB", "GB", "TB"}
	unit := ""
	for _, u := range units {
		value /= 1024
		unit = u
		if value < 1024 {
			break
		}
	}
	return fmt.Sprintf("%.1f %s", value, unit)
}

// BlobPath builds the storage path "{year}_{session}/{DEPT}/{folder chain}/{filename}".
func BlobPath(session *AcademicSession, dept *Department, folderChain []string, filename string) string {
	parts := []string{session.DirName(), strings.ToUpper(dept.Code)}
	parts = append(parts, folderChain...)
	parts = append(parts, path.Base(filename))
	return path.Join(parts...)
}

// FolderFilter narrows folder and file listings.
type FolderFilter struct {
	OwnerID        string
	SessionID      string
	DepartmentID   string
	ParentID       *string
	RootOnly       bool
	PublicOnly     bool
	IncludeManual  bool
	IncludeDeleted bool
	// VisibleTo restricts rows to public ones plus those owned by this user.
	VisibleTo string
}

// SearchFilter narrows file search.
type SearchFilter struct {
	Query     string
	VisibleTo string
	Limit     int
}
