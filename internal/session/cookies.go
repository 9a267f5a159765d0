package session

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hms-gateway/internal/config"
	"github.com/spec-kit/hms-gateway/internal/domain"
)

// Cookies reads and writes the session cookie pair.
type Cookies struct {
	cfg config.SessionConfig
}

// NewCookies builds the cookie helper.
func NewCookies(cfg config.SessionConfig) *Cookies {
	return &Cookies{cfg: cfg}
}

// Read returns the access and refresh tokens presented by the client.
func (k *Cookies) Read(c *fiber.Ctx) (access, refresh string) {
	return c.Cookies(k.cfg.AccessCookie), c.Cookies(k.cfg.RefreshCookie)
}

// Write sets both cookies from a platform session.
func (k *Cookies) Write(c *fiber.Ctx, s *domain.Session) {
	c.Cookie(k.cookie(k.cfg.AccessCookie, s.AccessToken, s.ExpiresAt))
	if s.RefreshToken != "" {
		c.Cookie(k.cookie(k.cfg.RefreshCookie, s.RefreshToken, time.Now().Add(k.cfg.RefreshTTL())))
	}
}

// Clear expires both cookies on the client.
func (k *Cookies) Clear(c *fiber.Ctx) {
	expired := time.Unix(0, 0)
	c.Cookie(k.cookie(k.cfg.AccessCookie, "", expired))
	c.Cookie(k.cookie(k.cfg.RefreshCookie, "", expired))
}

func (k *Cookies) cookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   k.cfg.CookieDomain,
		Expires:  expires,
		Secure:   k.cfg.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
