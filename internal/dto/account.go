package dto

// RegisterAccountRequest is the body of POST /users. Email, uid and picture come from the token.
type RegisterAccountRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"-" validate:"required,email"`
	Phone string `json:"phone" validate:"required,max=32"`
	Role  string `json:"role" validate:"omitempty"`
}

// UpdateProfileRequest patches the caller's own account.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Phone *string `json:"phone" validate:"omitempty,min=1,max=32"`
	Image *string `json:"image" validate:"omitempty,url"`
}

// ChangeRoleRequest is the body of PATCH /users/:id/role.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// RoleResponse answers GET /users/:email/role.
type RoleResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}
