package dto

import "github.com/spec-kit/hms-gateway/internal/domain"

// LoginRequest payload. Role is the role the user claims to hold.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,staffrole"`
}

// SignupRequest payload.
type SignupRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	FullName        string `json:"full_name" validate:"required,max=120"`
	Role            string `json:"role" validate:"required,staffrole"`
	Department      string `json:"department" validate:"max=120"`
	Phone           string `json:"phone" validate:"max=40"`
	Specialization  string `json:"specialization" validate:"max=120"`
	LicenseNumber   string `json:"license_number" validate:"max=60"`
}

// RoleOption describes a selectable role on the login and signup forms.
type RoleOption struct {
	Value       domain.Role `json:"value"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
}

// RoleOptions lists every role in display order.
func RoleOptions() []RoleOption {
	roles := domain.Roles()
	out := make([]RoleOption, 0, len(roles))
	for _, role := range roles {
		out = append(out, RoleOption{Value: role, Label: role.Label(), Description: role.Description()})
	}
	return out
}
