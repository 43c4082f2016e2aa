package service

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the services. The HTTP layer maps each one
// onto an OAuth2 error code.
var (
	ErrNotFound                = errors.New("not_found")
	ErrInvalidRedirect         = errors.New("invalid_redirect_uri")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidToken            = errors.New("invalid_token")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrLoginRequired           = errors.New("login_required")

	// Consent-time two-factor errors.
	ErrOTPRequired = errors.New("otp_required")
	ErrInvalidOTP  = errors.New("invalid_otp")

	ErrUsernameTaken = errors.New("username_taken")
)

// InvalidScopeError lists the requested scopes outside the allowed set.
// It matches ErrInvalidScope under errors.Is.
type InvalidScopeError struct {
	Scopes []string
}

func (e *InvalidScopeError) Error() string {
	return "invalid_scope: " + strings.Join(e.Scopes, " ")
}

func (e *InvalidScopeError) Is(target error) bool {
	return target == ErrInvalidScope
}
