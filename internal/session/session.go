// Package session carries the caller's identity explicitly through a request.
package session

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hms-gateway/internal/domain"
)

const localsKey = "hms_session"

type ctxKey struct{}

// Context is the session attached to one request by the route guard.
type Context struct {
	Identity     domain.Identity
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Attach stores the session on the fiber context and on the request context.
func Attach(c *fiber.Ctx, sc *Context) {
	c.Locals(localsKey, sc)
	c.SetUserContext(WithContext(c.UserContext(), sc))
}

// WithContext returns a copy of ctx carrying sc.
func WithContext(ctx context.Context, sc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// FromFiber returns the session attached to the request, if any.
func FromFiber(c *fiber.Ctx) (*Context, bool) {
	sc, ok := c.Locals(localsKey).(*Context)
	return sc, ok && sc != nil
}

// FromContext returns the session carried by ctx, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	sc, ok := ctx.Value(ctxKey{}).(*Context)
	return sc, ok && sc != nil
}
