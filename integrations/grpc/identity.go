package grpc

import (
	"context"

	"github.com/chatgate/obo-identity/core"
)

// IdentityFromContext returns the identity resolved by the interceptor.
//
// Example:
//
//	identity, err := identitygrpc.IdentityFromContext(ctx)
//	if err != nil {
//	    return nil, status.Error(codes.Internal, "no identity")
//	}
func IdentityFromContext(ctx context.Context) (*core.Identity, error) {
	return core.GetIdentity(ctx)
}

// MustIdentityFromContext returns the identity or panics.
// Use only in handlers that are not excluded from the interceptor.
func MustIdentityFromContext(ctx context.Context) *core.Identity {
	identity, err := core.GetIdentity(ctx)
	if err != nil {
		panic(err)
	}
	return identity
}

// HasIdentity checks if an identity exists in the context.
func HasIdentity(ctx context.Context) bool {
	return core.HasIdentity(ctx)
}
