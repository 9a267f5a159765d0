// Package identity talks to the identity platform that owns credentials and
// sessions. The gateway never stores passwords itself.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/hms-gateway/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrEmailNotConfirmed  = errors.New("identity: email not confirmed")
	ErrInvalidSession     = errors.New("identity: invalid session")
	ErrUserExists         = errors.New("identity: user already registered")
	ErrRejected           = errors.New("identity: request rejected")
	ErrUnavailable        = errors.New("identity: platform unavailable")
)

// Client is the contract consumed from the identity platform.
type Client interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error)
	GetUser(ctx context.Context, accessToken string) (*domain.Identity, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Ping(ctx context.Context) error
}

// SignUpParams carries credentials plus metadata stored with the identity.
type SignUpParams struct {
	Email    string
	Password string
	Metadata map[string]any
}

// SignUpResult holds the new identity. Session is nil while email
// confirmation is pending.
type SignUpResult struct {
	Identity domain.Identity
	Session  *domain.Session
}

// ConfirmationPending reports whether the platform withheld a session.
func (r *SignUpResult) ConfirmationPending() bool {
	return r.Session == nil
}

// AuthError is a definitive rejection from the platform. Message is the
// platform's text and is safe to show to the user.
type AuthError struct {
	Kind    error
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Kind
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
