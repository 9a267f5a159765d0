package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/config"
	"github.com/spec-kit/hms-gateway/internal/domain"
	"github.com/spec-kit/hms-gateway/internal/events"
	"github.com/spec-kit/hms-gateway/internal/identity"
	"github.com/spec-kit/hms-gateway/internal/identity/identitytest"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

type authFixture struct {
	service    *AuthService
	client     *identity.LocalClient
	repo       *stubStaffRepo
	dispatcher *recordingDispatcher
}

func newAuthFixture(requireConfirmation bool) *authFixture {
	client := identity.NewLocalClient(config.IdentityConfig{
		LocalJWTSecret:           "test-secret",
		LocalTokenTTLMinutes:     5,
		LocalRequireConfirmation: requireConfirmation,
		LocalBcryptCost:          4,
	})
	return newAuthFixtureWith(client, newStubStaffRepo())
}

func newAuthFixtureWith(client identity.Client, repo *stubStaffRepo) *authFixture {
	dispatcher := newRecordingDispatcher()
	resolver := NewProfileResolver(repo, dispatcher, zap.NewNop(), nil)
	svc := NewAuthService(AuthDependencies{
		Client:     client,
		StaffRepo:  repo,
		Resolver:   resolver,
		Dispatcher: dispatcher,
	}, zap.NewNop())
	local, _ := client.(*identity.LocalClient)
	return &authFixture{service: svc, client: local, repo: repo, dispatcher: dispatcher}
}

func signupInput(email, role string) SignupInput {
	return SignupInput{
		Email:           email,
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
		FullName:        "Dr. Test",
		Role:            role,
		Department:      "Cardiology",
		LicenseNumber:   "LIC-42",
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Should log in with the stored role with or without an expected role", func(t *testing.T) {
		f := newAuthFixture(false)
		_, err := f.service.Signup(ctx, signupInput("doc@hms.local", "doctor"))
		require.NoError(t, err)

		for _, expected := range []string{"", "doctor"} {
			result, err := f.service.Login(ctx, LoginInput{Email: "doc@hms.local", Password: "s3cret-pass", Role: expected})
			require.NoError(t, err)
			assert.Equal(t, domain.RoleDoctor, result.Profile.Role)
			assert.NotEmpty(t, result.Session.AccessToken)
		}
		assert.Contains(t, f.dispatcher.types(), events.EventStaffSignedIn)
	})

	t.Run("Should reject a role mismatch and revoke the session", func(t *testing.T) {
		repo := newStubStaffRepo()
		seedProfile(t, repo, "doc-1", domain.RoleDoctor, true)
		client := &identitytest.Fake{
			SignInFunc: func(context.Context, string, string) (*domain.Session, error) {
				return &domain.Session{AccessToken: "at", Identity: domain.Identity{ID: "doc-1"}}, nil
			},
		}
		f := newAuthFixtureWith(client, repo)

		result, err := f.service.Login(ctx, LoginInput{Email: "doc-1@hms.local", Password: "x", Role: "nurse"})
		assert.Nil(t, result)
		require.True(t, apperrors.HasCode(err, apperrors.CodeRoleMismatch))
		assert.Contains(t, err.Error(), "doctor")
		assert.Equal(t, int32(1), client.SignOutCalls.Load())
		assert.NotContains(t, f.dispatcher.types(), events.EventStaffSignedIn)
	})

	t.Run("Should refuse deactivated accounts", func(t *testing.T) {
		f := newAuthFixture(false)
		signup, err := f.service.Signup(ctx, signupInput("old@hms.local", "nurse"))
		require.NoError(t, err)

		stored, err := f.repo.GetByID(ctx, signup.Profile.ID)
		require.NoError(t, err)
		stored.IsActive = false
		require.NoError(t, f.repo.Update(ctx, stored))

		result, err := f.service.Login(ctx, LoginInput{Email: "old@hms.local", Password: "s3cret-pass"})
		assert.Nil(t, result)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeAccountDeactivated))
	})

	t.Run("Should report unconfirmed signups as an authentication failure", func(t *testing.T) {
		f := newAuthFixture(true)
		signup, err := f.service.Signup(ctx, signupInput("nurse@hms.local", "nurse"))
		require.NoError(t, err)
		assert.True(t, signup.ConfirmationPending)
		assert.Nil(t, signup.Session)

		result, err := f.service.Login(ctx, LoginInput{Email: "nurse@hms.local", Password: "s3cret-pass", Role: "nurse"})
		assert.Nil(t, result)
		require.True(t, apperrors.HasCode(err, apperrors.CodeAuthenticationFailed))
		assert.False(t, apperrors.HasCode(err, apperrors.CodeProfileError))
		assert.Equal(t, "Email not confirmed", apperrors.ToDomainError(err).Message)

		require.True(t, f.client.Confirm("nurse@hms.local"))
		result, err = f.service.Login(ctx, LoginInput{Email: "nurse@hms.local", Password: "s3cret-pass", Role: "nurse"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleNurse, result.Profile.Role)
	})

	t.Run("Should pass the platform message through for bad credentials", func(t *testing.T) {
		f := newAuthFixture(false)
		_, err := f.service.Login(ctx, LoginInput{Email: "ghost@hms.local", Password: "nope"})
		require.True(t, apperrors.HasCode(err, apperrors.CodeAuthenticationFailed))
		assert.Equal(t, "Invalid login credentials", apperrors.ToDomainError(err).Message)
	})

	t.Run("Should map platform outages to a recoverable error", func(t *testing.T) {
		client := &identitytest.Fake{
			SignInFunc: func(context.Context, string, string) (*domain.Session, error) {
				return nil, errors.Join(identity.ErrUnavailable, errors.New("timeout"))
			},
		}
		f := newAuthFixtureWith(client, newStubStaffRepo())

		_, err := f.service.Login(ctx, LoginInput{Email: "a@hms.local", Password: "x"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamUnavailable))
	})
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("Should store the submitted profile", func(t *testing.T) {
		f := newAuthFixture(false)
		result, err := f.service.Signup(ctx, signupInput("doc@hms.local", "doctor"))
		require.NoError(t, err)
		assert.False(t, result.ConfirmationPending)
		require.NotNil(t, result.Session)

		stored, err := f.repo.GetByID(ctx, result.Profile.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleDoctor, stored.Role)
		assert.Equal(t, "Cardiology", stored.Department)
		assert.Equal(t, "LIC-42", stored.LicenseNumber)
		assert.False(t, stored.ProfileCompleted)
		assert.Equal(t, []events.EventType{events.EventStaffProfileCreated, events.EventStaffSignedUp}, f.dispatcher.types())
	})

	t.Run("Should default a blank department", func(t *testing.T) {
		f := newAuthFixture(false)
		in := signupInput("rx@hms.local", "pharmacist")
		in.Department = ""
		result, err := f.service.Signup(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, domain.SignupDepartment, result.Profile.Department)
	})

	t.Run("Should tolerate an existing profile row", func(t *testing.T) {
		repo := newStubStaffRepo()
		client := &identitytest.Fake{
			SignUpFunc: func(context.Context, identity.SignUpParams) (*identity.SignUpResult, error) {
				return &identity.SignUpResult{Identity: domain.Identity{ID: "dup-1", Email: "dup@hms.local"}}, nil
			},
		}
		seedProfile(t, repo, "dup-1", domain.RoleAccountant, true)
		f := newAuthFixtureWith(client, repo)

		result, err := f.service.Signup(ctx, signupInput("dup@hms.local", "accountant"))
		require.NoError(t, err)
		assert.True(t, result.ConfirmationPending)
		assert.NotContains(t, f.dispatcher.types(), events.EventStaffProfileCreated)
	})

	t.Run("Should surface other insert failures", func(t *testing.T) {
		f := newAuthFixture(false)
		f.repo.createFunc = func(context.Context, *domain.StaffProfile) error {
			return errors.New("violates check constraint staff_role_check")
		}
		_, err := f.service.Signup(ctx, signupInput("x@hms.local", "radiologist"))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeProfileError))
	})

	t.Run("Should validate passwords and role before calling the platform", func(t *testing.T) {
		client := &identitytest.Fake{}
		f := newAuthFixtureWith(client, newStubStaffRepo())

		in := signupInput("a@hms.local", "doctor")
		in.ConfirmPassword = "different"
		_, err := f.service.Signup(ctx, in)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

		_, err = f.service.Signup(ctx, signupInput("a@hms.local", "surgeon"))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	})

	t.Run("Should report duplicate registrations from the platform", func(t *testing.T) {
		f := newAuthFixture(false)
		_, err := f.service.Signup(ctx, signupInput("doc@hms.local", "doctor"))
		require.NoError(t, err)

		_, err = f.service.Signup(ctx, signupInput("doc@hms.local", "doctor"))
		require.True(t, apperrors.HasCode(err, apperrors.CodeAuthenticationFailed))
		assert.Equal(t, "User already registered", apperrors.ToDomainError(err).Message)
	})
}

func TestAuthService_Logout(t *testing.T) {
	t.Run("Should revoke the session and ignore platform failures", func(t *testing.T) {
		client := &identitytest.Fake{
			SignOutFunc: func(context.Context, string) error { return identity.ErrUnavailable },
		}
		f := newAuthFixtureWith(client, newStubStaffRepo())

		f.service.Logout(context.Background(), "")
		assert.Equal(t, int32(0), client.SignOutCalls.Load())

		f.service.Logout(context.Background(), "token")
		assert.Equal(t, int32(1), client.SignOutCalls.Load())
	})
}
