package models

import "time"

// UserProfile links an account to a department and carries the faculty flag.
type UserProfile struct {
	UserID       string    `db:"user_id" json:"user_id"`
	DepartmentID *string   `db:"department_id" json:"department,omitempty"`
	IsFaculty    bool      `db:"is_faculty" json:"is_faculty"`
	EmployeeID   string    `db:"employee_id" json:"employee_id"`
	Phone        string    `db:"phone" json:"phone"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ActiveSessionID resolves the session a profile works in: the department's
// session when a department is attached, otherwise the global active session.
func (p *UserProfile) ActiveSessionID(dept *Department, globalActiveID *string) *string {
	if p != nil && p.DepartmentID != nil && dept != nil && dept.ID == *p.DepartmentID {
		return dept.ActiveSessionID(globalActiveID)
	}
	return globalActiveID
}

// ProfileView is the profile as returned to its owner, joined with account fields.
type ProfileView struct {
	UserID       string    `db:"user_id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	DepartmentID *string   `db:"department_id" json:"department,omitempty"`
	EmployeeID   string    `db:"employee_id" json:"employee_id"`
	Phone        string    `db:"phone" json:"phone"`
	IsFaculty    bool      `db:"is_faculty" json:"is_faculty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
