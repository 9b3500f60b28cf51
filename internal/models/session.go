package models

import (
	"strconv"
	"time"
)

// AcademicSession is a yearly scoping unit. At most one session is active at a time.
type AcademicSession struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Year        int        `db:"year" json:"year"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	StartDate   *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	Description string     `db:"description" json:"description"`
	CreatedBy   *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// DirName is the storage directory prefix used for the session, e.g. "2025_Spring".
func (s *AcademicSession) DirName() string {
	return strconv.Itoa(s.Year) + "_" + s.Name
}

// Department is an organisational unit scoping content. It may pin its own active session.
type Department struct {
	ID                    string    `db:"id" json:"id"`
	Name                  string    `db:"name" json:"name"`
	Code                  string    `db:"code" json:"code"`
	Description           string    `db:"description" json:"description"`
	HeadOfDept            *string   `db:"head_of_dept" json:"head_of_dept,omitempty"`
	IsActive              bool      `db:"is_active" json:"is_active"`
	ActiveSessionOverride *string   `db:"active_session_override" json:"active_session_override,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// ActiveSessionID returns the override if set, else the globally active session id.
func (d *Department) ActiveSessionID(globalActiveID *string) *string {
	if d != nil && d.ActiveSessionOverride != nil {
		return d.ActiveSessionOverride
	}
	return globalActiveID
}

// FileCategory groups files and folders for display.
type FileCategory struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Color       string    `db:"color" json:"color"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
