// Package auth turns the guard's session into an authorized staff principal.
package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hms-gateway/internal/guard"
	"github.com/spec-kit/hms-gateway/internal/service"
	"github.com/spec-kit/hms-gateway/internal/session"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated staff member.
type Principal struct {
	Session *session.Context
	Profile *service.ResolvedProfile
}

// ProfileMiddleware resolves the staff profile of the session owner.
type ProfileMiddleware struct {
	resolver *service.ProfileResolver
}

// NewProfileMiddleware constructs middleware.
func NewProfileMiddleware(resolver *service.ProfileResolver) *ProfileMiddleware {
	return &ProfileMiddleware{resolver: resolver}
}

// Handle requires a session and loads the principal.
func (m *ProfileMiddleware) Handle(c *fiber.Ctx) error {
	sc, ok := session.FromFiber(c)
	if !ok {
		if guard.Degraded(c) {
			return apperrors.NewUpstreamUnavailable("identity platform", nil)
		}
		return apperrors.NewUnauthorized("session required")
	}

	profile, err := m.resolver.Resolve(c.UserContext(), sc.Identity, "")
	if err != nil {
		return err
	}

	c.Locals(principalKey, &Principal{Session: sc, Profile: profile})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated staff member.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}
