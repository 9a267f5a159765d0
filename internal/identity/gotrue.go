package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/config"
	"github.com/spec-kit/hms-gateway/internal/domain"
)

const authPathPrefix = "/auth/v1"

// GoTrueClient talks to a GoTrue-compatible auth API (Supabase and friends).
type GoTrueClient struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewGoTrueClient builds a client for cfg.URL using the anon key.
func NewGoTrueClient(cfg config.IdentityConfig, logger *zap.Logger) *GoTrueClient {
	client := resty.New().
		SetBaseURL(cfg.URL+authPathPrefix).
		SetTimeout(cfg.Timeout()).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	client.AddRetryCondition(retryCondition)

	return &GoTrueClient{http: client, logger: logger}
}

// retryCondition retries transport failures, rate limiting and platform 5xx.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
}

// Error codes that reject the token itself rather than the request.
var (
	accessTokenRejections = map[string]bool{
		"bad_jwt":           true,
		"no_authorization":  true,
		"session_not_found": true,
		"session_expired":   true,
		"user_not_found":    true,
	}
	refreshTokenRejections = map[string]bool{
		"invalid_grant":              true,
		"refresh_token_not_found":    true,
		"refresh_token_already_used": true,
		"session_not_found":          true,
		"session_expired":            true,
	}
)

type gotrueUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	ConfirmedAt      *time.Time     `json:"confirmed_at,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

type tokenResponse struct {
	AccessToken  string     `json:"access_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	RefreshToken string     `json:"refresh_token"`
	User         gotrueUser `json:"user"`
}

// signUpResponse is either a token response (auto-confirm) or a bare user.
type signUpResponse struct {
	tokenResponse
	gotrueUser
}

type apiError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *apiError) code() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	return e.Error
}

func (e *apiError) text() string {
	for _, candidate := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// SignIn exchanges email and password for a session.
func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	var out tokenResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/token")
	if err := c.transportError("sign in", resp, err); err != nil {
		return nil, err
	}
	if resp.IsError() {
		kind := ErrInvalidCredentials
		if apiErr.code() == "email_not_confirmed" || strings.Contains(strings.ToLower(apiErr.text()), "not confirmed") {
			kind = ErrEmailNotConfirmed
		}
		return nil, rejection(kind, resp, &apiErr)
	}
	return out.session(), nil
}

// SignUp registers a new identity. Metadata is stored as user_metadata.
func (c *GoTrueClient) SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error) {
	var out signUpResponse
	var apiErr apiError
	body := map[string]any{"email": params.Email, "password": params.Password}
	if len(params.Metadata) > 0 {
		body["data"] = params.Metadata
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/signup")
	if err := c.transportError("sign up", resp, err); err != nil {
		return nil, err
	}
	if resp.IsError() {
		kind := ErrRejected
		switch apiErr.code() {
		case "user_already_exists", "email_exists":
			kind = ErrUserExists
		}
		if resp.StatusCode() == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(apiErr.text()), "already registered") {
			kind = ErrUserExists
		}
		return nil, rejection(kind, resp, &apiErr)
	}

	if out.AccessToken != "" {
		session := out.session()
		return &SignUpResult{Identity: session.Identity, Session: session}, nil
	}
	return &SignUpResult{Identity: out.gotrueUser.identity()}, nil
}

// GetUser validates an access token with the platform.
func (c *GoTrueClient) GetUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	var out gotrueUser
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&out).
		SetError(&apiErr).
		Get("/user")
	if err := c.transportError("get user", resp, err); err != nil {
		return nil, err
	}
	if resp.IsError() {
		if accessTokenRejected(resp.StatusCode(), &apiErr) {
			return nil, rejection(ErrInvalidSession, resp, &apiErr)
		}
		return nil, c.unexpected("get user", resp, &apiErr)
	}
	identity := out.identity()
	return &identity, nil
}

// Refresh rotates the session using a refresh token.
func (c *GoTrueClient) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var out tokenResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/token")
	if err := c.transportError("refresh", resp, err); err != nil {
		return nil, err
	}
	if resp.IsError() {
		if refreshTokenRejected(resp.StatusCode(), &apiErr) {
			return nil, rejection(ErrInvalidSession, resp, &apiErr)
		}
		return nil, c.unexpected("refresh", resp, &apiErr)
	}
	return out.session(), nil
}

// SignOut revokes the session. An already invalid token counts as success.
func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Post("/logout")
	if err := c.transportError("sign out", resp, err); err != nil {
		return err
	}
	if resp.IsError() {
		c.logger.Debug("sign out rejected", zap.Int("status", resp.StatusCode()))
	}
	return nil
}

// Ping checks platform health.
func (c *GoTrueClient) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err := c.transportError("health", resp, err); err != nil {
		return err
	}
	if resp.IsError() {
		return unavailable(fmt.Errorf("health status %d", resp.StatusCode()))
	}
	return nil
}

func (c *GoTrueClient) transportError(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("identity platform call failed", zap.String("op", op), zap.Error(err))
		return unavailable(err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		c.logger.Warn("identity platform error", zap.String("op", op), zap.Int("status", resp.StatusCode()))
		return unavailable(fmt.Errorf("%s: status %d", op, resp.StatusCode()))
	}
	return nil
}

// accessTokenRejected is true for a plain 401, or a 403/404 naming the token
// or its session. A 403 for a bad apikey is a deployment fault, not a logout.
func accessTokenRejected(status int, apiErr *apiError) bool {
	switch status {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden, http.StatusNotFound:
		return accessTokenRejections[apiErr.code()]
	}
	return false
}

func refreshTokenRejected(status int, apiErr *apiError) bool {
	if status != http.StatusBadRequest && status != http.StatusUnauthorized {
		return false
	}
	if refreshTokenRejections[apiErr.code()] {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.text()), "invalid refresh token")
}

func (c *GoTrueClient) unexpected(op string, resp *resty.Response, apiErr *apiError) error {
	c.logger.Warn("identity platform refused request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.String("error_code", apiErr.code()),
	)
	return unavailable(fmt.Errorf("%s: status %d %s", op, resp.StatusCode(), apiErr.code()))
}

func rejection(kind error, resp *resty.Response, apiErr *apiError) error {
	message := apiErr.text()
	if message == "" {
		message = http.StatusText(resp.StatusCode())
	}
	return &AuthError{
		Kind:    kind,
		Status:  resp.StatusCode(),
		Code:    apiErr.code(),
		Message: message,
	}
}

func (t tokenResponse) session() *domain.Session {
	expiresAt := time.Time{}
	switch {
	case t.ExpiresAt > 0:
		expiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		expiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	default:
		if exp, err := TokenExpiry(t.AccessToken); err == nil {
			expiresAt = exp
		}
	}
	return &domain.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    expiresAt,
		Identity:     t.User.identity(),
	}
}

func (u gotrueUser) identity() domain.Identity {
	return domain.Identity{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmedAt != nil || u.ConfirmedAt != nil,
	}
}
