package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/result-service/internal/api/dto"
	"github.com/spec-kit/result-service/internal/service"
	apperrors "github.com/spec-kit/result-service/pkg/util/errorutil"
)

// AuthHandler exposes registration, login and the caller profile.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	identity, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Role:             req.Role,
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
		EnrollmentNumber: req.EnrollmentNumber,
		Program:          req.Program,
		Level:            req.Level,
		StaffNumber:      req.StaffNumber,
		Department:       req.Department,
		Faculty:          req.Faculty,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.NewIdentityResponse(identity),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"identity": dto.NewIdentityResponse(result.Identity),
			"auth":     dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}
	identity, err := h.auth.Me(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIdentityResponse(identity)})
}

func invalidPayload() error {
	return apperrors.NewValidationError("invalid payload", nil)
}
