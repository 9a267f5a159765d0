package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hms-gateway/internal/dashboard"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

// RequireModule ensures the principal's role may render the module.
func RequireModule(router *dashboard.Router, moduleID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("session required")
		}
		if _, err := router.Authorize(string(principal.Profile.Role), moduleID); err != nil {
			return err
		}
		return c.Next()
	}
}
