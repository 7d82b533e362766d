package authclient

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeLoginFailed      = "auth_login_failed"
	TextCodeNetworkFailure   = "auth_network_failure"
	TextCodeTokenInvalid     = "auth_token_invalid"
	TextCodeNotAuthenticated = "auth_not_authenticated"
	TextCodeInvalidPayload   = "auth_invalid_payload"
)

// ErrLoginFailed is returned when the backend declines the credentials.
var ErrLoginFailed = errors.New("login failed", errors.CategoryAuth).
	WithTextCode(TextCodeLoginFailed).
	WithCode(errors.CodeUnauthorized)

// ErrNetworkFailure is returned for transport-level failures during login or
// verification. The message is deliberately generic and retry-suggesting.
var ErrNetworkFailure = errors.New("network error, please check your connection and try again", errors.CategoryInternal).
	WithTextCode(TextCodeNetworkFailure).
	WithCode(errors.CodeInternal)

// ErrTokenInvalid is returned when verification rejects a present token.
var ErrTokenInvalid = errors.New("authentication token is no longer valid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrNotAuthenticated is returned by operations that need an active session.
var ErrNotAuthenticated = errors.New("no authentication token available, please login first", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(errors.CodeUnauthorized)
