package identity

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/hms-gateway/internal/config"
	"github.com/spec-kit/hms-gateway/internal/domain"
)

// LocalClient is an in-process identity provider for development and tests.
// It mimics the platform's behavior, including pending email confirmation.
type LocalClient struct {
	mu                  sync.Mutex
	tokens              *TokenManager
	bcryptCost          int
	requireConfirmation bool
	usersByEmail        map[string]*localUser
	refreshTokens       map[string]string // refresh token -> user id
}

type localUser struct {
	identity     domain.Identity
	passwordHash string
	metadata     map[string]any
}

// NewLocalClient builds a LocalClient from the identity settings.
func NewLocalClient(cfg config.IdentityConfig) *LocalClient {
	return &LocalClient{
		tokens:              NewTokenManager(cfg.LocalJWTSecret, cfg.LocalTokenTTLMinutes),
		bcryptCost:          cfg.LocalBcryptCost,
		requireConfirmation: cfg.LocalRequireConfirmation,
		usersByEmail:        make(map[string]*localUser),
		refreshTokens:       make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a user. With confirmation required no session is issued.
func (l *LocalClient) SignUp(_ context.Context, params SignUpParams) (*SignUpResult, error) {
	email := normalizeEmail(params.Email)
	if email == "" || params.Password == "" {
		return nil, &AuthError{Kind: ErrRejected, Status: http.StatusBadRequest, Message: "Email and password are required"}
	}

	hash, err := hashPassword(params.Password, l.bcryptCost)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.usersByEmail[email]; exists {
		return nil, &AuthError{
			Kind:    ErrUserExists,
			Status:  http.StatusUnprocessableEntity,
			Code:    "user_already_exists",
			Message: "User already registered",
		}
	}

	user := &localUser{
		identity: domain.Identity{
			ID:             uuid.NewString(),
			Email:          email,
			EmailConfirmed: !l.requireConfirmation,
		},
		passwordHash: hash,
		metadata:     params.Metadata,
	}
	l.usersByEmail[email] = user

	result := &SignUpResult{Identity: user.identity}
	if user.identity.EmailConfirmed {
		session, err := l.issueLocked(user)
		if err != nil {
			return nil, err
		}
		result.Session = session
	}
	return result, nil
}

// Confirm marks the email as confirmed, standing in for the emailed link.
func (l *LocalClient) Confirm(email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	user, ok := l.usersByEmail[normalizeEmail(email)]
	if !ok {
		return false
	}
	user.identity.EmailConfirmed = true
	return true
}

// SignIn checks the password and confirmation state.
func (l *LocalClient) SignIn(_ context.Context, email, password string) (*domain.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.usersByEmail[normalizeEmail(email)]
	if !ok || !passwordMatches(user.passwordHash, password) {
		return nil, &AuthError{
			Kind:    ErrInvalidCredentials,
			Status:  http.StatusBadRequest,
			Code:    "invalid_credentials",
			Message: "Invalid login credentials",
		}
	}
	if !user.identity.EmailConfirmed {
		return nil, &AuthError{
			Kind:    ErrEmailNotConfirmed,
			Status:  http.StatusBadRequest,
			Code:    "email_not_confirmed",
			Message: "Email not confirmed",
		}
	}
	return l.issueLocked(user)
}

// GetUser validates the token signature and that the user still exists.
func (l *LocalClient) GetUser(_ context.Context, accessToken string) (*domain.Identity, error) {
	claims, err := l.tokens.ParseToken(accessToken)
	if err != nil {
		return nil, invalidSession("invalid JWT")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	user, ok := l.usersByEmail[normalizeEmail(claims.Email)]
	if !ok || user.identity.ID != claims.Subject {
		return nil, invalidSession("User not found")
	}
	identity := user.identity
	return &identity, nil
}

// Refresh rotates a refresh token into a new session.
func (l *LocalClient) Refresh(_ context.Context, refreshToken string) (*domain.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	userID, ok := l.refreshTokens[refreshToken]
	if !ok {
		return nil, invalidSession("Invalid Refresh Token: Refresh Token Not Found")
	}
	delete(l.refreshTokens, refreshToken)

	for _, user := range l.usersByEmail {
		if user.identity.ID == userID {
			return l.issueLocked(user)
		}
	}
	return nil, invalidSession("User not found")
}

// SignOut revokes every refresh token of the token's user.
func (l *LocalClient) SignOut(_ context.Context, accessToken string) error {
	claims, err := l.tokens.ParseToken(accessToken)
	if err != nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for token, userID := range l.refreshTokens {
		if userID == claims.Subject {
			delete(l.refreshTokens, token)
		}
	}
	return nil
}

// Ping always succeeds.
func (l *LocalClient) Ping(context.Context) error {
	return nil
}

func (l *LocalClient) issueLocked(user *localUser) (*domain.Session, error) {
	access, expiresAt, err := l.tokens.GenerateToken(user.identity)
	if err != nil {
		return nil, err
	}
	refresh := uuid.NewString()
	l.refreshTokens[refresh] = user.identity.ID
	return &domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt.Truncate(time.Second),
		Identity:     user.identity,
	}, nil
}

func invalidSession(message string) error {
	return &AuthError{Kind: ErrInvalidSession, Status: http.StatusUnauthorized, Message: message}
}
