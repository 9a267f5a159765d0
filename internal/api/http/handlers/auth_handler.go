package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hms-gateway/internal/api/dto"
	"github.com/spec-kit/hms-gateway/internal/dashboard"
	"github.com/spec-kit/hms-gateway/internal/service"
	"github.com/spec-kit/hms-gateway/internal/session"
)

const signupSuccessMessage = "Thank you for signing up! Please check your email to confirm your account before signing in."

// AuthHandler exposes the public entry points: landing, login, signup, logout.
type AuthHandler struct {
	serviceName string
	auth        *service.AuthService
	router      *dashboard.Router
	cookies     *session.Cookies
}

// NewAuthHandler constructs handler.
func NewAuthHandler(serviceName string, auth *service.AuthService, router *dashboard.Router, cookies *session.Cookies) *AuthHandler {
	return &AuthHandler{serviceName: serviceName, auth: auth, router: router, cookies: cookies}
}

// Landing handles GET /.
func (h *AuthHandler) Landing(c *fiber.Ctx) error {
	_, authenticated := session.FromFiber(c)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"service":       h.serviceName,
			"authenticated": authenticated,
			"links": fiber.Map{
				"login":     "/auth/login",
				"signup":    "/auth/signup",
				"dashboard": "/dashboard",
			},
		},
	})
}

// LoginEntry handles GET /auth/login.
func (h *AuthHandler) LoginEntry(c *fiber.Ctx) error {
	_, authenticated := session.FromFiber(c)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"authenticated": authenticated,
			"roles":         dto.RoleOptions(),
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	h.cookies.Write(c, result.Session)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":       result.Profile,
			"view":       h.router.Select(string(result.Profile.Role)),
			"expires_at": result.Session.ExpiresAt,
			"redirect":   "/dashboard",
		},
	})
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	result, err := h.auth.Signup(c.UserContext(), service.SignupInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FullName:        req.FullName,
		Role:            req.Role,
		Department:      req.Department,
		Phone:           req.Phone,
		Specialization:  req.Specialization,
		LicenseNumber:   req.LicenseNumber,
	})
	if err != nil {
		return err
	}

	redirect := "/auth/signup-success"
	if result.Session != nil {
		h.cookies.Write(c, result.Session)
		redirect = "/dashboard"
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user":                 result.Profile,
			"confirmation_pending": result.ConfirmationPending,
			"redirect":             redirect,
		},
	})
}

// SignupSuccess handles GET /auth/signup-success.
func (h *AuthHandler) SignupSuccess(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"message": signupSuccessMessage,
			"login":   "/auth/login",
		},
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	accessToken, _ := h.cookies.Read(c)
	if sc, ok := session.FromFiber(c); ok {
		accessToken = sc.AccessToken
	}
	h.auth.Logout(c.UserContext(), accessToken)
	h.cookies.Clear(c)
	return c.JSON(fiber.Map{"data": fiber.Map{"redirect": "/auth/login"}})
}
