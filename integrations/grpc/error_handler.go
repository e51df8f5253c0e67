package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chatgate/obo-identity/core"
)

// ErrorHandler converts resolution errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps resolution errors to gRPC status codes. The status
// message is the error code, so clients can tell an expired token from
// missing metadata without parsing prose.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrMultipleIdentityHeaders) {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	if code := core.ErrorCode(err); code != "" {
		return status.Error(codes.Unauthenticated, code)
	}

	if errors.Is(err, core.ErrUnauthenticated) {
		return status.Error(codes.Unauthenticated, "reauthentication required")
	}

	return status.Error(codes.Internal, "unable to resolve identity")
}
