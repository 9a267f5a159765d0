// Package guard gates every request on a live identity-platform session.
package guard

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/config"
	"github.com/spec-kit/hms-gateway/internal/domain"
	"github.com/spec-kit/hms-gateway/internal/identity"
	"github.com/spec-kit/hms-gateway/internal/observability"
	"github.com/spec-kit/hms-gateway/internal/session"
)

// Guard decisions, as recorded in metrics.
const (
	DecisionAllow     = "allow"
	DecisionPublic    = "public"
	DecisionRedirect  = "redirect"
	DecisionFailOpen  = "fail_open"
	DecisionRefreshed = "refreshed"
)

const degradedKey = "hms_guard_degraded"

var errNoSession = errors.New("no session")

// Guard validates the session cookies of each request.
type Guard struct {
	client        identity.Client
	cookies       *session.Cookies
	loginPath     string
	refreshWindow time.Duration
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// New builds the guard.
func New(cfg config.SessionConfig, client identity.Client, logger *zap.Logger, metrics *observability.Metrics) *Guard {
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/auth/login"
	}
	return &Guard{
		client:        client,
		cookies:       session.NewCookies(cfg),
		loginPath:     loginPath,
		refreshWindow: cfg.RefreshWindow(),
		logger:        logger,
		metrics:       metrics,
	}
}

// Handle is the fiber middleware.
func (g *Guard) Handle(c *fiber.Ctx) error {
	path := c.Path()
	if IsSkipped(path) {
		return c.Next()
	}
	public := IsPublic(path)

	sc, err := g.establish(c)
	switch {
	case err == nil:
		session.Attach(c, sc)
		if public {
			g.metrics.RecordGuardDecision(DecisionPublic)
		} else {
			g.metrics.RecordGuardDecision(DecisionAllow)
		}
		return c.Next()

	case errors.Is(err, errNoSession):
		if public {
			g.metrics.RecordGuardDecision(DecisionPublic)
			return c.Next()
		}
		g.metrics.RecordGuardDecision(DecisionRedirect)
		return c.Redirect(g.loginPath, fiber.StatusFound)

	default:
		// The platform could not be asked; let the request through without a
		// session and let downstream handlers decide.
		g.logger.Warn("session check failed, passing request through",
			zap.String("path", path),
			zap.Error(err),
		)
		g.metrics.RecordGuardDecision(DecisionFailOpen)
		c.Locals(degradedKey, true)
		return c.Next()
	}
}

// Degraded reports whether the guard let the request through because the
// identity platform was unreachable.
func Degraded(c *fiber.Ctx) bool {
	degraded, _ := c.Locals(degradedKey).(bool)
	return degraded
}

func (g *Guard) establish(c *fiber.Ctx) (*session.Context, error) {
	access, refresh := g.cookies.Read(c)
	if access == "" && refresh == "" {
		return nil, errNoSession
	}
	ctx := c.UserContext()

	var rotated *domain.Session
	// refreshErr holds a refresh failure that says nothing about the
	// refresh token itself; the cookies must then survive a rejected access token.
	var refreshErr error
	if refresh != "" && g.needsRefresh(access) {
		s, err := g.client.Refresh(ctx, refresh)
		switch {
		case err == nil:
			rotated = s
			access, refresh = s.AccessToken, s.RefreshToken
			g.cookies.Write(c, s)
			g.metrics.RecordGuardDecision(DecisionRefreshed)
		case errors.Is(err, identity.ErrInvalidSession):
			if access == "" {
				g.cookies.Clear(c)
				return nil, errNoSession
			}
			g.logger.Debug("refresh token rejected, using current token", zap.Error(err))
		case access == "":
			return nil, err
		default:
			refreshErr = err
			g.logger.Debug("session refresh failed, using current token", zap.Error(err))
		}
	}
	if access == "" {
		g.cookies.Clear(c)
		return nil, errNoSession
	}

	ident, err := g.client.GetUser(ctx, access)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidSession) {
			if refreshErr != nil {
				return nil, refreshErr
			}
			g.cookies.Clear(c)
			return nil, errNoSession
		}
		return nil, err
	}

	sc := &session.Context{Identity: *ident, AccessToken: access, RefreshToken: refresh}
	if rotated != nil {
		sc.ExpiresAt = rotated.ExpiresAt
	} else if exp, err := identity.TokenExpiry(access); err == nil {
		sc.ExpiresAt = exp
	}
	return sc, nil
}

// needsRefresh is true for a missing token or one close to expiry. Opaque
// tokens are never refreshed early; the platform validates them as is.
func (g *Guard) needsRefresh(access string) bool {
	if access == "" {
		return true
	}
	exp, err := identity.TokenExpiry(access)
	if err != nil {
		return false
	}
	return time.Until(exp) <= g.refreshWindow
}
