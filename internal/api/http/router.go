package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/hms-gateway/internal/api/http/handlers"
	"github.com/spec-kit/hms-gateway/internal/auth"
	"github.com/spec-kit/hms-gateway/internal/dashboard"
	"github.com/spec-kit/hms-gateway/internal/guard"
	"github.com/spec-kit/hms-gateway/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Dashboard *handlers.DashboardHandler
	Staff     *handlers.StaffHandler
	Changes   *handlers.ChangesHandler

	Guard    *guard.Guard
	Profiles *auth.ProfileMiddleware
	Roles    *dashboard.Router
	Metrics  *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	app.Use(cfg.Guard.Handle)

	app.Get("/", cfg.Auth.Landing)

	authGroup := app.Group("/auth")
	authGroup.Get("/login", cfg.Auth.LoginEntry)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Get("/signup-success", cfg.Auth.SignupSuccess)
	authGroup.Post("/logout", cfg.Auth.Logout)

	dash := app.Group("/dashboard", cfg.Profiles.Handle)
	dash.Get("", cfg.Dashboard.Home)
	dash.Get("/modules/:module", cfg.Dashboard.Module)
	dash.Get("/changes/:topic", cfg.Changes.Stream)

	staff := dash.Group("/staff", auth.RequireModule(cfg.Roles, dashboard.ModuleUsers))
	staff.Get("", cfg.Staff.List)
	staff.Patch("/:id", cfg.Staff.Update)
}
