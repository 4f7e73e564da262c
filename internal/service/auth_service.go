package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/result-service/internal/auth"
	"github.com/spec-kit/result-service/internal/config"
	"github.com/spec-kit/result-service/internal/domain"
	"github.com/spec-kit/result-service/internal/observability"
	"github.com/spec-kit/result-service/internal/repository"
	apperrors "github.com/spec-kit/result-service/pkg/util/errorutil"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const invalidCredentials = "invalid credentials"

// RegisterInput carries identity fields plus the role specific profile fields.
type RegisterInput struct {
	Role     string
	Name     string
	Email    string
	Password string

	EnrollmentNumber string
	Program          string
	Level            int

	StaffNumber string
	Department  string
	Faculty     string
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Identity  *domain.Identity
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	identities repository.IdentityRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	dummyHash  string
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	IdentityRepo repository.IdentityRepository
	Logger       *zap.Logger
	Metrics      *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// compared against on unknown emails so both login failures cost one bcrypt run
	dummyHash, err := auth.HashPassword("result-service-unknown-identity", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		identities: deps.IdentityRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL()),
		bcryptCost: cfg.BcryptCost,
		dummyHash:  dummyHash,
		logger:     logger,
		metrics:    deps.Metrics,
	}, nil
}

// TokenManager exposes the token manager for the access guard.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates an identity and its profile in one unit.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Identity, error) {
	identity, profile, err := buildRegistration(input)
	if err != nil {
		return nil, err
	}

	if _, err := s.identities.GetByEmail(ctx, identity.Email); err == nil {
		return nil, emailConflict()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeFailure(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	identity.PasswordHash = hash

	if err := s.identities.CreateWithProfile(ctx, identity, profile); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, emailConflict()
		case errors.Is(err, repository.ErrProfileNumberTaken):
			field := "staff_number"
			if profile.Student != nil {
				field = "enrollment_number"
			}
			return nil, apperrors.NewConflict("profile number already registered", map[string]any{"field": field})
		default:
			return nil, storeFailure(err)
		}
	}

	s.logger.Info("identity registered", zap.Int64("identity_id", identity.ID), zap.String("role", string(identity.Role)))
	return identity, nil
}

// Login verifies credentials and issues an access token. Every rejection carries
// the same message.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	fields := map[string]string{}
	if strings.TrimSpace(email) == "" {
		fields["email"] = "required"
	}
	if password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("email and password required", map[string]any{"fields": fields})
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		_ = auth.ComparePassword(s.dummyHash, password)
		s.metrics.RecordLogin(false)
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, storeFailure(err)
	}

	if err := auth.ComparePassword(identity.PasswordHash, password); err != nil || identity.Disabled {
		s.metrics.RecordLogin(false)
		return nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	token, exp, err := s.tokenMgr.GenerateToken(identity.ID, identity.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.metrics.RecordLogin(true)
	return &LoginResult{Identity: identity, Token: token, ExpiresAt: exp}, nil
}

// Me returns the identity behind a verified token.
func (s *AuthService) Me(ctx context.Context, caller domain.Principal) (*domain.Identity, error) {
	identity, err := s.identities.GetByID(ctx, caller.IdentityID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("identity", map[string]any{"id": caller.IdentityID})
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	return identity, nil
}

func emailConflict() error {
	return apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
}

func buildRegistration(input RegisterInput) (*domain.Identity, domain.Profile, error) {
	fields := map[string]string{}

	role, ok := domain.ParseRole(input.Role)
	if !ok {
		fields["role"] = "must be one of admin, dean, hod, exam_officer, lecturer, student"
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields["name"] = "required"
	}
	email := repository.NormalizeEmail(input.Email)
	if email == "" {
		fields["email"] = "required"
	} else if !emailPattern.MatchString(email) {
		fields["email"] = "invalid email address"
	}
	switch {
	case len(input.Password) < auth.MinPasswordLength:
		fields["password"] = "must be at least 6 characters"
	case len(input.Password) > auth.MaxPasswordBytes:
		fields["password"] = "must be at most 72 bytes"
	}

	var profile domain.Profile
	if ok {
		profile = buildProfile(role, input, fields)
	}

	if len(fields) > 0 {
		return nil, domain.Profile{}, apperrors.NewValidationError("invalid registration", map[string]any{"fields": fields})
	}
	return &domain.Identity{Name: name, Email: email, Role: role}, profile, nil
}

func buildProfile(role domain.Role, input RegisterInput, fields map[string]string) domain.Profile {
	required := func(field, value string) string {
		value = strings.TrimSpace(value)
		if value == "" {
			fields[field] = "required"
		}
		return value
	}

	if role == domain.RoleStudent {
		student := &domain.StudentProfile{
			EnrollmentNumber: required("enrollment_number", input.EnrollmentNumber),
			Program:          required("program", input.Program),
			Level:            input.Level,
		}
		if input.Level <= 0 {
			fields["level"] = "must be a positive integer"
		}
		return domain.Profile{Student: student}
	}

	staff := &domain.StaffProfile{
		StaffNumber: required("staff_number", input.StaffNumber),
		Department:  strings.TrimSpace(input.Department),
		Faculty:     strings.TrimSpace(input.Faculty),
	}
	switch role {
	case domain.RoleLecturer, domain.RoleHOD:
		required("department", input.Department)
	case domain.RoleDean:
		required("faculty", input.Faculty)
	}
	return domain.Profile{Staff: staff}
}
