package domain

import (
	"strings"
	"time"
)

const (
	// DefaultDepartment is assigned to profiles materialized without signup data.
	DefaultDepartment = "Administration"
	// SignupDepartment is used when a signup leaves the department blank.
	SignupDepartment = "General"

	fallbackDisplayName = "Admin User"
)

// StaffProfile extends an Identity with hospital role and status.
type StaffProfile struct {
	ID               string
	Email            string
	FullName         string
	Role             Role
	Department       string
	Phone            string
	Specialization   string
	LicenseNumber    string
	IsActive         bool
	ProfileCompleted bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewDefaultProfile synthesizes the profile for an identity that has none yet.
func NewDefaultProfile(identity Identity) *StaffProfile {
	return &StaffProfile{
		ID:         identity.ID,
		Email:      identity.Email,
		FullName:   DisplayNameFromEmail(identity.Email),
		Role:       RoleAdmin,
		Department: DefaultDepartment,
		IsActive:   true,
	}
}

// DisplayNameFromEmail returns the local part of an email address.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return fallbackDisplayName
	}
	return local
}

// DisplayName prefers the stored full name and falls back to the email.
func (p *StaffProfile) DisplayName() string {
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name
	}
	return DisplayNameFromEmail(p.Email)
}
