package core

import "errors"

// Sentinel errors for identity resolution.
var (
	// ErrUnauthenticated is matched by every *ResolutionError. Adapters use it
	// to decide that the user has to sign in again.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNoSession is returned when there is no active session context.
	ErrNoSession = errors.New("no session context")

	// ErrNotLoggedIn is returned when the session has no user bound to it.
	ErrNotLoggedIn = errors.New("user not logged in")

	// ErrNoStoredCredentials is returned in delegated mode when the session
	// user lacks a stored token or header snapshot.
	ErrNoStoredCredentials = errors.New("no stored credentials")

	// ErrTokenExpired is returned when the delegated token is past its exp.
	// Undecodable tokens match it too.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenUndecodable is returned when the token's claims cannot be read.
	ErrTokenUndecodable = errors.New("token undecodable")

	// ErrTokenNotInHeaders is returned when the header snapshot carries no
	// access token.
	ErrTokenNotInHeaders = errors.New("token missing from headers")

	// ErrIncompleteHeaders is returned by header authentication when the
	// token or principal header is missing.
	ErrIncompleteHeaders = errors.New("incomplete authentication headers")

	// ErrInvalidCredentials is returned by password authentication.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrMultipleIdentityHeaders is returned when an identity header is sent
	// more than once.
	ErrMultipleIdentityHeaders = errors.New("multiple values for an identity header are not allowed")

	// ErrIdentityNotFound is returned when no identity is stored in a context.
	ErrIdentityNotFound = errors.New("identity not found in context")
)

// ResolutionError wraps an authentication failure with a machine-readable
// code. It provides structured error information that can be used for
// logging, metrics, and returning appropriate error responses.
type ResolutionError struct {
	// Code is a machine-readable error code (e.g., "token_expired").
	Code string

	// Message is a human-readable error message.
	Message string

	// Details contains the underlying error, if any.
	Details error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ResolutionError) Unwrap() error {
	return e.Details
}

// Is matches ErrUnauthenticated and the sentinel belonging to Code.
func (e *ResolutionError) Is(target error) bool {
	if target == ErrUnauthenticated {
		return true
	}
	if e.Code == ErrorCodeTokenUndecodable && target == ErrTokenExpired {
		return true
	}
	return sentinels[e.Code] == target
}

// Error codes
const (
	ErrorCodeNoSession          = "no_session"
	ErrorCodeNotLoggedIn        = "not_logged_in"
	ErrorCodeMissingCredentials = "missing_credentials"
	ErrorCodeTokenExpired       = "token_expired"
	ErrorCodeTokenUndecodable   = "token_undecodable"
	ErrorCodeTokenNotInHeaders  = "token_not_in_headers"
	ErrorCodeIncompleteHeaders  = "incomplete_headers"
	ErrorCodeInvalidCredentials = "invalid_credentials"
)

var sentinels = map[string]error{
	ErrorCodeNoSession:          ErrNoSession,
	ErrorCodeNotLoggedIn:        ErrNotLoggedIn,
	ErrorCodeMissingCredentials: ErrNoStoredCredentials,
	ErrorCodeTokenExpired:       ErrTokenExpired,
	ErrorCodeTokenUndecodable:   ErrTokenUndecodable,
	ErrorCodeTokenNotInHeaders:  ErrTokenNotInHeaders,
	ErrorCodeIncompleteHeaders:  ErrIncompleteHeaders,
	ErrorCodeInvalidCredentials: ErrInvalidCredentials,
}

// NewResolutionError creates a new ResolutionError with the given code and message.
func NewResolutionError(code, message string, details error) *ResolutionError {
	return &ResolutionError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ErrorCode returns the code of the *ResolutionError in err's chain, or ""
// if there is none.
func ErrorCode(err error) string {
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		return resErr.Code
	}
	return ""
}
