package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hms-gateway/internal/api/dto"
	"github.com/spec-kit/hms-gateway/internal/auth"
	"github.com/spec-kit/hms-gateway/internal/domain"
	"github.com/spec-kit/hms-gateway/internal/service"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

// StaffHandler exposes staff administration endpoints.
type StaffHandler struct {
	staff *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staff *service.StaffService) *StaffHandler {
	return &StaffHandler{staff: staff}
}

// List handles GET /dashboard/staff.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	var filters service.StaffListFilters
	if raw := c.Query("role"); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			return apperrors.NewValidationError("invalid role", map[string]any{"role": raw})
		}
		filters.Role = &role
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid active flag", map[string]any{"active": raw})
		}
		filters.Active = &active
	}
	filters.Limit = c.QueryInt("limit", 20)
	filters.Offset = c.QueryInt("offset", 0)

	items, err := h.staff.ListStaff(c.UserContext(), filters)
	if err != nil {
		return err
	}
	out := make([]dto.StaffResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.NewStaffResponse(item))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Update handles PATCH /dashboard/staff/:id.
func (h *StaffHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}

	var req dto.StaffUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	upd := service.StaffUpdate{
		FullName:   req.FullName,
		Department: req.Department,
		IsActive:   req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		upd.Role = &role
	}

	staff, err := h.staff.UpdateStaff(c.UserContext(), principal.Profile.ID, c.Params("id"), upd)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(*staff)})
}
