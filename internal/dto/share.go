package dto

import (
	"time"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// CreateShareRequest issues a share link for exactly one file or folder.
type CreateShareRequest struct {
	FileID         *string          `json:"file_item"`
	FolderID       *string          `json:"folder"`
	ShareType      models.ShareType `json:"share_type" validate:"required,oneof=public email password"`
	Email          *string          `json:"email" validate:"omitempty,email"`
	Password       *string          `json:"password" validate:"omitempty,min=1,max=72"`
	ExpiresAt      *time.Time       `json:"expires_at"`
	ExpiresInHours *int             `json:"expires_in_hours" validate:"omitempty,min=1"`
	MaxDownloads   *int             `json:"max_downloads" validate:"omitempty,min=1"`
}

// ShareLinkView exposes a link with its public URL and current state.
type ShareLinkView struct {
	models.ShareLink
	URL   string            `json:"url"`
	State models.ShareState `json:"state"`
}

// SharedFile is the payload returned when a file link resolves.
type SharedFile struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	URL             string     `json:"file"`
	URLExpiresAt    *time.Time `json:"file_expires_at,omitempty"`
	FileExtension   string     `json:"file_extension"`
	IsPublic        bool       `json:"is_public"`
	FileSize        int64      `json:"file_size"`
	FileSizeDisplay string     `json:"file_size_display"`
	DownloadCount   int        `json:"download_count"`
	Department      string     `json:"department"`
	Session         string     `json:"session"`
}

// FileNode is a file leaf inside a serialized tree.
type FileNode struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FileSize int64  `json:"file_size"`
	IsPublic bool   `json:"is_public"`
	URL      string `json:"file,omitempty"`
}

// FolderNode is a folder with its nested children and files.
type FolderNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	IsPublic bool         `json:"is_public"`
	Children []FolderNode `json:"children"`
	Files    []FileNode   `json:"files"`
}

// ShareResolveResponse carries either a file or a folder tree.
type ShareResolveResponse struct {
	Kind      models.ShareTargetKind `json:"kind"`
	ShareType models.ShareType       `json:"share_type"`
	File      *SharedFile            `json:"file,omitempty"`
	Folder    *FolderNode            `json:"folder,omitempty"`
}
