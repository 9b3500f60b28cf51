package models

import (
	"path"
	"strings"
	"time"
)

// DefaultAllowedExtensions is always accepted for uploads.
var DefaultAllowedExtensions = []string{
	"pdf", "doc", "docx", "ppt", "pptx", "xls", "xlsx", "txt", "zip", "rar", "jpg", "jpeg", "png", "gif",
}

// AllowedExtension is an administrator-managed upload extension.
type AllowedExtension struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NormalizeExtension trims, lower-cases and strips a leading dot.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// ExtensionOf returns the normalized extension of a filename.
func ExtensionOf(filename string) string {
	return NormalizeExtension(path.Ext(filename))
}

// IsAllowed reports whether ext appears in the default set or the dynamic set.
func IsAllowed(ext string, dynamic map[string]struct{}) bool {
	ext = NormalizeExtension(ext)
	if ext == "" {
		return false
	}
	for _, allowed := range DefaultAllowedExtensions {
		if allowed == ext {
			return true
		}
	}
	_, ok := dynamic[ext]
	return ok
}
