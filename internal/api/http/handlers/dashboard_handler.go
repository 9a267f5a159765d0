package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hms-gateway/internal/auth"
	"github.com/spec-kit/hms-gateway/internal/dashboard"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

// DashboardHandler serves the role-routed dashboard.
type DashboardHandler struct {
	router *dashboard.Router
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(router *dashboard.Router) *DashboardHandler {
	return &DashboardHandler{router: router}
}

// Home handles GET /dashboard.
func (h *DashboardHandler) Home(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": principal.Profile,
			"view": h.router.Select(string(principal.Profile.Role)),
		},
	})
}

// Module handles GET /dashboard/modules/:module.
func (h *DashboardHandler) Module(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	module, err := h.router.Authorize(string(principal.Profile.Role), c.Params("module"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": module})
}
