// Package apperror defines the stable error-code vocabulary the core returns
// at its boundary and the envelope the HTTP handlers render it into.
package apperror

import (
	"errors"
	"net/http"
)

// Code is one of the stable, never-renamed identifiers from the external
// interface table. Downstream consumers may match on these strings.
type Code string

const (
	CodeInvalidCredentials Code = "AUTH_001" // bad password, locked, or inactive — one code by design
	CodeExpiredToken       Code = "AUTH_002"
	CodeInvalidToken       Code = "AUTH_003"
	CodeLocked             Code = "AUTH_004" // audit-only, never returned to a caller
	CodeInactive           Code = "AUTH_005" // audit-only, never returned to a caller
	CodeInvalidRefresh     Code = "AUTH_006"
	CodeMissingAuth        Code = "AUTH_007"
	CodeTokenRevoked       Code = "AUTH_008"
	CodeInsufficientPerms  Code = "AUTHZ_001"
	CodeDuplicateEmail     Code = "USER_001"
	CodeUserNotFound       Code = "USER_002"
	CodeWeakPassword       Code = "USER_003"
	CodePasswordMismatch   Code = "USER_004"
	CodeRateLimited        Code = "RATE_LIMIT_001"
	CodeCSRFMissing        Code = "CSRF_001"
	CodeCSRFMismatch       Code = "CSRF_002"
	CodeSystemOverload     Code = "SYSTEM_OVERLOAD"
	CodeQueueFull          Code = "QUEUE_FULL"
	CodeQueueTimeout       Code = "QUEUE_TIMEOUT"
	CodeInternal           Code = "INTERNAL_001"
)

// GenericAuthMessage is the single message returned across "no such user",
// "wrong password", "account locked", and "account inactive" — the four
// branches of the login coordinator must be indistinguishable to the caller.
const GenericAuthMessage = "invalid email or password"

// AuthError is the sum type coordinators return. Internal causes are kept
// out of Message/Details — those fields are safe to serialize verbatim.
type AuthError struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
	cause   error
}

func (e *AuthError) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *AuthError) Unwrap() error { return e.cause }

// Wrap attaches an internal cause that is logged but never rendered.
func (e *AuthError) Wrap(cause error) *AuthError {
	n := *e
	n.cause = cause
	return &n
}

func New(code Code, status int, message string) *AuthError {
	return &AuthError{Code: code, Status: status, Message: message}
}

var (
	ErrInvalidCredentials = New(CodeInvalidCredentials, http.StatusUnauthorized, GenericAuthMessage)
	ErrExpiredToken       = New(CodeExpiredToken, http.StatusUnauthorized, "token expired")
	ErrInvalidToken       = New(CodeInvalidToken, http.StatusUnauthorized, "invalid token")
	ErrInvalidRefresh     = New(CodeInvalidRefresh, http.StatusUnauthorized, "invalid refresh token")
	ErrMissingAuth        = New(CodeMissingAuth, http.StatusUnauthorized, "missing authorization header")
	ErrTokenRevoked       = New(CodeTokenRevoked, http.StatusUnauthorized, "token revoked")
	ErrInsufficientPerms  = New(CodeInsufficientPerms, http.StatusForbidden, "insufficient permissions")
	ErrDuplicateEmail     = New(CodeDuplicateEmail, http.StatusConflict, "email already registered")
	ErrUserNotFound       = New(CodeUserNotFound, http.StatusNotFound, "user not found")
	ErrWeakPassword       = New(CodeWeakPassword, http.StatusBadRequest, "password does not meet strength policy")
	ErrPasswordMismatch   = New(CodePasswordMismatch, http.StatusBadRequest, "current password does not match")
	ErrRateLimited        = New(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded")
	ErrCSRFMissing        = New(CodeCSRFMissing, http.StatusForbidden, "missing csrf token")
	ErrCSRFMismatch       = New(CodeCSRFMismatch, http.StatusForbidden, "csrf token mismatch")
	ErrSystemOverload     = New(CodeSystemOverload, http.StatusServiceUnavailable, "system overloaded")
	ErrQueueFull          = New(CodeQueueFull, http.StatusServiceUnavailable, "queue full")
	ErrQueueTimeout       = New(CodeQueueTimeout, http.StatusServiceUnavailable, "queue wait timed out")
	ErrInternal           = New(CodeInternal, http.StatusInternalServerError, "internal error")
)

// As unwraps err into an *AuthError, defaulting to ErrInternal so a coordinator
// can never leak a bare Go error across the boundary.
func As(err error) *AuthError {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return ErrInternal.Wrap(err)
}

// Envelope is the canonical JSON error body: {success, data, error:{code,message,details}}.
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Error   *EnvelopeError `json:"error"`
}

type EnvelopeError struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AuthError) Envelope() Envelope {
	return Envelope{
		Success: false,
		Data:    nil,
		Error: &EnvelopeError{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		},
	}
}

// RateLimitEnvelope is the short form used only for rate-limit rejections.
type RateLimitEnvelope struct {
	ErrorCode Code   `json:"error_code"`
	Message   string `json:"message"`
}
