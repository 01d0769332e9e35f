package auth

import (
	"errors"
	"fmt"
)

// Code is the stable machine-readable identifier carried by every auth error.
// Callers pattern-match on this closed set; collaborator failures are mapped
// to the closest code at the operation boundary and never leak through raw.
type Code string

const (
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeUserAlreadyExists  Code = "USER_ALREADY_EXISTS"
	CodeEmailNotVerified   Code = "EMAIL_NOT_VERIFIED"
	CodeAccountDisabled    Code = "ACCOUNT_DISABLED"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeTokenInvalid       Code = "TOKEN_INVALID"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeWeakPassword       Code = "WEAK_PASSWORD"
	CodeInvalidEmail       Code = "INVALID_EMAIL"
	CodeMFARequired        Code = "MFA_REQUIRED"
	CodeMFAInvalid         Code = "MFA_INVALID"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInviteInvalid      Code = "INVITE_INVALID"
	CodeInviteExpired      Code = "INVITE_EXPIRED"
)

// Error is a typed auth failure. Two Errors match under errors.Is when their
// codes are equal, so sentinel values below double as match targets for
// errors carrying more specific messages.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth: %s (%s)", e.Message, e.Code)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Sentinels for the full error taxonomy. Messages on the credential path are
// deliberately generic so responses cannot be used for account enumeration.
var (
	ErrInvalidCredentials = newError(CodeInvalidCredentials, "invalid email or password")
	ErrUserNotFound       = newError(CodeUserNotFound, "user profile not found")
	ErrUserAlreadyExists  = newError(CodeUserAlreadyExists, "user already exists")
	ErrEmailNotVerified   = newError(CodeEmailNotVerified, "email is not verified")
	ErrAccountDisabled    = newError(CodeAccountDisabled, "account is disabled")
	ErrTokenExpired       = newError(CodeTokenExpired, "token expired")
	ErrTokenInvalid       = newError(CodeTokenInvalid, "invalid token")
	ErrPermissionDenied   = newError(CodePermissionDenied, "insufficient permissions")
	ErrWeakPassword       = newError(CodeWeakPassword, "password does not meet policy")
	ErrInvalidEmail       = newError(CodeInvalidEmail, "invalid email address")
	ErrMFARequired        = newError(CodeMFARequired, "multi-factor verification required")
	ErrMFAInvalid         = newError(CodeMFAInvalid, "multi-factor verification failed")
	ErrRateLimited        = newError(CodeRateLimited, "too many attempts, try again later")
	ErrInviteInvalid      = newError(CodeInviteInvalid, "invalid or expired invite")
	ErrInviteExpired      = newError(CodeInviteExpired, "invite has expired")
)

// CodeOf extracts the stable code from an error, or empty when the error is
// not part of the auth taxonomy.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
