// Package identitytest provides a programmable identity.Client for tests.
package identitytest

import (
	"context"
	"sync/atomic"

	"github.com/spec-kit/hms-gateway/internal/domain"
	"github.com/spec-kit/hms-gateway/internal/identity"
)

// Fake is an identity.Client whose behavior is set per test. Unset funcs
// fail with identity.ErrUnavailable.
type Fake struct {
	SignInFunc  func(ctx context.Context, email, password string) (*domain.Session, error)
	SignUpFunc  func(ctx context.Context, params identity.SignUpParams) (*identity.SignUpResult, error)
	GetUserFunc func(ctx context.Context, accessToken string) (*domain.Identity, error)
	RefreshFunc func(ctx context.Context, refreshToken string) (*domain.Session, error)
	SignOutFunc func(ctx context.Context, accessToken string) error
	PingFunc    func(ctx context.Context) error

	GetUserCalls atomic.Int32
	RefreshCalls atomic.Int32
	SignOutCalls atomic.Int32
}

var _ identity.Client = (*Fake)(nil)

func (f *Fake) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if f.SignInFunc == nil {
		return nil, identity.ErrUnavailable
	}
	return f.SignInFunc(ctx, email, password)
}

func (f *Fake) SignUp(ctx context.Context, params identity.SignUpParams) (*identity.SignUpResult, error) {
	if f.SignUpFunc == nil {
		return nil, identity.ErrUnavailable
	}
	return f.SignUpFunc(ctx, params)
}

func (f *Fake) GetUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	f.GetUserCalls.Add(1)
	if f.GetUserFunc == nil {
		return nil, identity.ErrUnavailable
	}
	return f.GetUserFunc(ctx, accessToken)
}

func (f *Fake) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	f.RefreshCalls.Add(1)
	if f.RefreshFunc == nil {
		return nil, identity.ErrUnavailable
	}
	return f.RefreshFunc(ctx, refreshToken)
}

func (f *Fake) SignOut(ctx context.Context, accessToken string) error {
	f.SignOutCalls.Add(1)
	if f.SignOutFunc == nil {
		return nil
	}
	return f.SignOutFunc(ctx, accessToken)
}

func (f *Fake) Ping(ctx context.Context) error {
	if f.PingFunc == nil {
		return nil
	}
	return f.PingFunc(ctx)
}
