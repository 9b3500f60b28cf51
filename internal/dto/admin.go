package dto

import (
	"time"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// CreateSessionRequest registers an academic session.
type CreateSessionRequest struct {
	Name        string     `json:"name" validate:"required,max=50"`
	Year        int        `json:"year" validate:"required,min=1900,max=3000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Description string     `json:"description"`
}

// CreateDepartmentRequest registers a department.
type CreateDepartmentRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Code        string `json:"code" validate:"required,max=10"`
	Description string `json:"description"`
}

// UpdateDepartmentRequest edits a department. An empty override clears it.
type UpdateDepartmentRequest struct {
	HeadOfDept            *string `json:"head_of_dept"`
	IsActive              *bool   `json:"is_active"`
	ActiveSessionOverride *string `json:"active_session_override"`
}

// CreateCategoryRequest adds a file category.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

// ExtensionRequest names an upload extension.
type ExtensionRequest struct {
	Name string `json:"name" form:"name" validate:"required,max=10"`
}

// UpdateUserRequest changes account flags and profile facts of a user.
type UpdateUserRequest struct {
	IsStaff      *bool   `json:"is_staff"`
	IsSuperuser  *bool   `json:"is_superuser"`
	IsFaculty    *bool   `json:"is_faculty"`
	DepartmentID *string `json:"department"`
}

// ActivityEntry is one line of the recent activity feed.
type ActivityEntry struct {
	User      string    `json:"user"`
	Action    string    `json:"action"`
	File      string    `json:"file"`
	Timestamp time.Time `json:"timestamp"`
}

// DashboardCharts bundles the dashboard chart series.
type DashboardCharts struct {
	UploadsPerDay     models.ChartSeries `json:"uploads_per_day"`
	FilesByDepartment models.ChartSeries `json:"files_by_department"`
}

// GenerateExportRequest asks for an audit export over the last Days days.
type GenerateExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
	Days   int    `json:"days" validate:"omitempty,min=1,max=365"`
}

// LogFileView exposes an export with its signed download URL.
type LogFileView struct {
	models.LogFile
	DownloadURL string `json:"download_url,omitempty"`
}

// ScanRequest tunes a manual media import. Year limits the walk to one session year.
type ScanRequest struct {
	DryRun bool `json:"dry_run"`
	Year   int  `json:"year" validate:"omitempty,min=1900"`
}

// ScanReport summarises a manual media import.
type ScanReport struct {
	SessionsCreated    int      `json:"sessions_created"`
	DepartmentsCreated int      `json:"departments_created"`
	FoldersCreated     int      `json:"folders_created"`
	FilesCreated       int      `json:"files_created"`
	Skipped            []string `json:"skipped,omitempty"`
}
