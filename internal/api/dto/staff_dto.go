package dto

import (
	"time"

	"github.com/spec-kit/hms-gateway/internal/domain"
)

// StaffUpdateRequest payload. Omitted fields are left unchanged.
type StaffUpdateRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	Role       *string `json:"role" validate:"omitempty,staffrole"`
	Department *string `json:"department" validate:"omitempty,max=120"`
	IsActive   *bool   `json:"is_active"`
}

// StaffResponse is the administrative view of a profile.
type StaffResponse struct {
	ID               string      `json:"id"`
	Email            string      `json:"email"`
	FullName         string      `json:"full_name"`
	Role             domain.Role `json:"role"`
	Department       string      `json:"department"`
	Phone            string      `json:"phone,omitempty"`
	Specialization   string      `json:"specialization,omitempty"`
	LicenseNumber    string      `json:"license_number,omitempty"`
	IsActive         bool        `json:"is_active"`
	ProfileCompleted bool        `json:"profile_completed"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewStaffResponse converts a profile.
func NewStaffResponse(p domain.StaffProfile) StaffResponse {
	return StaffResponse{
		ID:               p.ID,
		Email:            p.Email,
		FullName:         p.DisplayName(),
		Role:             p.Role,
		Department:       p.Department,
		Phone:            p.Phone,
		Specialization:   p.Specialization,
		LicenseNumber:    p.LicenseNumber,
		IsActive:         p.IsActive,
		ProfileCompleted: p.ProfileCompleted,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
