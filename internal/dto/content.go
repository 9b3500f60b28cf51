package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// FlexBool accepts JSON booleans, numbers and the strings "1", "true", "yes" and "on".
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = FlexBool(Truthy(s))
		return nil
	}
	*b = FlexBool(Truthy(string(data)))
	return nil
}

// UnmarshalParam lets gin bind form and query values.
func (b *FlexBool) UnmarshalParam(param string) error {
	*b = FlexBool(Truthy(param))
	return nil
}

// Truthy interprets form-style boolean strings.
func Truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return n != 0
	}
	return false
}

// VisibilityRequest toggles the public flag of a file or folder.
type VisibilityRequest struct {
	IsPublic FlexBool `json:"is_public" form:"is_public"`
}

// CreateFolderRequest creates a folder at the root of a session/department or under a parent.
type CreateFolderRequest struct {
	Name         string   `json:"name" validate:"required,max=255"`
	ParentID     *string  `json:"parent"`
	SessionID    *string  `json:"session"`
	DepartmentID *string  `json:"department"`
	Description  string   `json:"description"`
	CategoryID   *string  `json:"category"`
	IsPublic     FlexBool `json:"is_public"`
}

// UpdateContentRequest edits descriptive fields of a folder or file.
type UpdateContentRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	CategoryID  *string `json:"category"`
}

// UploadFileRequest carries the form fields that accompany an upload.
type UploadFileRequest struct {
	FolderID     *string `form:"folder"`
	SessionID    *string `form:"session"`
	DepartmentID *string `form:"department"`
	Name         string  `form:"name"`
	Description  string  `form:"description"`
	CategoryID   *string `form:"category"`
	IsPublic     string  `form:"is_public"`
}

// FileView decorates a file with display fields.
type FileView struct {
	models.FileItem
	FileExtension   string `json:"file_extension"`
	FileSizeDisplay string `json:"file_size_display"`
	FolderPath      string `json:"folder_path,omitempty"`
	DownloadURL     string `json:"download_url,omitempty"`
}

// NewFileView builds the display view of a file.
func NewFileView(item models.FileItem, folderPath, downloadURL string) FileView {
	return FileView{
		FileItem:        item,
		FileExtension:   item.Extension(),
		FileSizeDisplay: item.SizeDisplay(),
		FolderPath:      folderPath,
		DownloadURL:     downloadURL,
	}
}

// FolderContents lists the direct children of a folder.
type FolderContents struct {
	Folder   models.Folder   `json:"folder"`
	Children []models.Folder `json:"children"`
	Files    []FileView      `json:"files"`
}

// SearchResponse wraps file search hits.
type SearchResponse struct {
	Results []FileView `json:"results"`
	Count   int        `json:"count"`
}

// RecycleBin lists soft-deleted content.
type RecycleBin struct {
	Files   []models.FileItem `json:"files"`
	Folders []models.Folder   `json:"folders"`
}

// CascadeResult reports the rows a tree operation touched.
type CascadeResult struct {
	ID       string `json:"id"`
	IsPublic *bool  `json:"is_public,omitempty"`
	Folders  int    `json:"folders"`
	Files    int    `json:"files"`
	Links    int64  `json:"links_deactivated,omitempty"`
}
