package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes surfaced to the dashboard.
const (
	CodeValidation           = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeInternal             = "INTERNAL_ERROR"
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeProfileError         = "PROFILE_ERROR"
	CodeRoleMismatch         = "ROLE_MISMATCH"
	CodeAccountDeactivated   = "ACCOUNT_DEACTIVATED"
	CodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewAuthenticationFailed carries the identity platform's message verbatim.
func NewAuthenticationFailed(message string) error {
	return NewDomainError(CodeAuthenticationFailed, message, http.StatusUnauthorized, nil)
}

// NewProfileError reports that the staff profile could not be loaded or trusted.
func NewProfileError(message string, err error) error {
	return &DomainError{
		Code:       CodeProfileError,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewRoleMismatch names the role actually stored for the account.
func NewRoleMismatch(actual string) error {
	return NewDomainError(
		CodeRoleMismatch,
		fmt.Sprintf("Invalid role. Your account is registered as %s.", actual),
		http.StatusForbidden,
		map[string]any{"actual_role": actual},
	)
}

func NewAccountDeactivated() error {
	return NewDomainError(
		CodeAccountDeactivated,
		"Account is deactivated. Please contact administrator.",
		http.StatusForbidden,
		nil,
	)
}

// NewUpstreamUnavailable marks a recoverable failure of a remote dependency.
func NewUpstreamUnavailable(service string, err error) error {
	return &DomainError{
		Code:       CodeUpstreamUnavailable,
		Message:    fmt.Sprintf("%s temporarily unavailable, please retry", service),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"service": service},
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err resolves to a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
