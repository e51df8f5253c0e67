package oboidentity

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/chatgate/obo-identity/core"
)

// ErrInvalidRequest is returned when a login request body cannot be read.
var ErrInvalidRequest = errors.New("invalid request")

// ErrorHandler is called when the Middleware cannot serve an identity. The
// err can be checked with errors.Is against core.ErrUnauthenticated, the
// specific core sentinels, ErrUntrustedProxy or ErrInvalidRequest. The
// default handler answers 401 for every authentication failure, 403 for
// ErrUntrustedProxy, 400 for ErrInvalidRequest (malformed bodies and
// repeated identity headers) and 500 for everything else. A custom handler
// MUST treat authentication failures as terminal for the request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
}

// DefaultErrorHandler is the default error handler implementation for the
// Middleware. Authentication failures ask the client to log in again:
//
//	HTTP/1.1 401 Unauthorized
//	WWW-Authenticate: Bearer realm="chat"
//
//	{"error":"reauthentication_required","error_code":"token_expired"}
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="chat"`)
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:     "reauthentication_required",
			ErrorCode: core.ErrorCode(err),
		})
	case errors.Is(err, ErrUntrustedProxy):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "untrusted_proxy"})
	case errors.Is(err, ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server_error"})
	}
}

// requestError wraps a body decoding failure with ErrInvalidRequest.
type requestError struct {
	details error
}

// Is allows the error to support equality to ErrInvalidRequest.
func (e *requestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Error returns a string representation of the error.
func (e *requestError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, e.details)
}

// Unwrap allows the error to support equality to the underlying error.
func (e *requestError) Unwrap() error {
	return e.details
}
