package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/domain"
	"github.com/spec-kit/hms-gateway/internal/events"
	"github.com/spec-kit/hms-gateway/internal/identity"
	"github.com/spec-kit/hms-gateway/internal/repository"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

// AuthService coordinates signup, login and logout against the identity platform.
type AuthService struct {
	client     identity.Client
	staff      repository.StaffRepository
	resolver   *ProfileResolver
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Client     identity.Client
	StaffRepo  repository.StaffRepository
	Resolver   *ProfileResolver
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies, logger *zap.Logger) *AuthService {
	return &AuthService{
		client:     deps.Client,
		staff:      deps.StaffRepo,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// LoginInput carries credentials and the role the user claims to have.
type LoginInput struct {
	Email    string
	Password string
	Role     string
}

// LoginResult is a session bound to a resolved profile.
type LoginResult struct {
	Session *domain.Session
	Profile *ResolvedProfile
}

// Login authenticates and resolves the profile. No session is returned
// unless the profile checks pass.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	sess, err := s.client.SignIn(ctx, strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		return nil, identityError(err)
	}

	profile, err := s.resolver.Resolve(ctx, sess.Identity, in.Role)
	if err != nil {
		if signOutErr := s.client.SignOut(ctx, sess.AccessToken); signOutErr != nil {
			s.logger.Warn("revoking rejected session failed",
				zap.String("staff_id", sess.Identity.ID),
				zap.Error(signOutErr),
			)
		}
		return nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventStaffSignedIn, profile.ID, profile.ID, events.StaffSignedInPayload{Role: profile.Role}))
	return &LoginResult{Session: sess, Profile: profile}, nil
}

// SignupInput is a staff self-registration.
type SignupInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
	Role            string
	Department      string
	Phone           string
	Specialization  string
	LicenseNumber   string
}

// SignupResult describes a new account. Session is nil while the platform
// waits for email confirmation.
type SignupResult struct {
	Profile             *ResolvedProfile
	Session             *domain.Session
	ConfirmationPending bool
}

// Signup registers the identity and stores its staff profile.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	if in.Password != in.ConfirmPassword {
		return nil, apperrors.NewValidationError("Passwords do not match", nil)
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, apperrors.NewValidationError("Please select a role", map[string]any{"role": in.Role})
	}

	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		fullName = domain.DisplayNameFromEmail(email)
	}
	department := strings.TrimSpace(in.Department)
	if department == "" {
		department = domain.SignupDepartment
	}

	res, err := s.client.SignUp(ctx, identity.SignUpParams{
		Email:    email,
		Password: in.Password,
		Metadata: map[string]any{
			"full_name":  fullName,
			"role":       string(role),
			"department": department,
		},
	})
	if err != nil {
		return nil, identityError(err)
	}

	profile := &domain.StaffProfile{
		ID:             res.Identity.ID,
		Email:          res.Identity.Email,
		FullName:       fullName,
		Role:           role,
		Department:     department,
		Phone:          strings.TrimSpace(in.Phone),
		Specialization: strings.TrimSpace(in.Specialization),
		LicenseNumber:  strings.TrimSpace(in.LicenseNumber),
		IsActive:       true,
	}
	if profile.Email == "" {
		profile.Email = email
	}

	switch err := s.staff.Create(ctx, profile); {
	case err == nil:
		s.publish(ctx, events.NewEvent(events.EventStaffProfileCreated, profile.ID, profile.ID, events.StaffProfilePayload{
			Role:       profile.Role,
			Department: profile.Department,
			IsActive:   profile.IsActive,
			Source:     "signup",
		}))
	case errors.Is(err, repository.ErrStaffExists):
		s.logger.Debug("staff profile already present at signup", zap.String("staff_id", profile.ID))
	default:
		s.logger.Error("storing staff profile at signup failed", zap.String("staff_id", profile.ID), zap.Error(err))
		return nil, apperrors.NewProfileError("Account created but the staff profile could not be saved", err)
	}

	pending := res.ConfirmationPending()
	s.publish(ctx, events.NewEvent(events.EventStaffSignedUp, profile.ID, profile.ID, events.StaffSignedUpPayload{
		Role:                role,
		ConfirmationPending: pending,
	}))

	return &SignupResult{
		Profile:             toResolved(profile),
		Session:             res.Session,
		ConfirmationPending: pending,
	}, nil
}

// Logout revokes the session on the platform. Failures are logged only:
// the caller clears cookies either way.
func (s *AuthService) Logout(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	if err := s.client.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("sign out failed", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// identityError maps platform failures. Definitive rejections carry the
// platform's message; anything else is a transient outage.
func identityError(err error) error {
	var authErr *identity.AuthError
	if errors.As(err, &authErr) {
		return apperrors.NewAuthenticationFailed(authErr.Message)
	}
	return apperrors.NewUpstreamUnavailable("identity platform", err)
}
