package dto

// UpdateProfileRequest edits the caller's profile.
type UpdateProfileRequest struct {
	DepartmentID *string `json:"department"`
	EmployeeID   *string `json:"employee_id" validate:"omitempty,max=20"`
	Phone        *string `json:"phone" validate:"omitempty,max=15"`
	IsFaculty    *bool   `json:"is_faculty"`
}

// UpdateAccountRequest edits the caller's account fields.
type UpdateAccountRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=150"`
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
}
