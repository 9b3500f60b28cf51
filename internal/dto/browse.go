package dto

// PublicTree is the anonymous catalogue of public content.
type PublicTree struct {
	Sessions []SessionNode `json:"sessions"`
}

// SessionNode groups departments of one academic session.
type SessionNode struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Year        int              `json:"year"`
	IsActive    bool             `json:"is_active"`
	Departments []DepartmentNode `json:"departments"`
}

// DepartmentNode holds the root folders and files of a department in a session.
type DepartmentNode struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Code    string       `json:"code"`
	Folders []FolderNode `json:"folders"`
	Files   []FileNode   `json:"files"`
}

// SessionBrowseResponse lists root content of a session/department visible to the caller.
type SessionBrowseResponse struct {
	SessionID    string       `json:"session"`
	DepartmentID string       `json:"department"`
	Folders      []FolderNode `json:"folders"`
	Files        []FileView   `json:"files"`
}
