package dto

import (
	"time"

	"github.com/spec-kit/result-service/internal/domain"
)

// RegisterRequest payload for new identities. Profile fields depend on role.
type RegisterRequest struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`

	EnrollmentNumber string `json:"enrollment_number"`
	Program          string `json:"program"`
	Level            int    `json:"level"`

	StaffNumber string `json:"staff_number"`
	Department  string `json:"department"`
	Faculty     string `json:"faculty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IdentityResponse is the non-secret identity summary.
type IdentityResponse struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewIdentityResponse maps an identity without its password hash.
func NewIdentityResponse(identity *domain.Identity) IdentityResponse {
	return IdentityResponse{
		ID:        identity.ID,
		Name:      identity.Name,
		Email:     identity.Email,
		Role:      identity.Role,
		CreatedAt: identity.CreatedAt,
	}
}
