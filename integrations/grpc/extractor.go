package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/chatgate/obo-identity/core"
)

// HeaderExtractor builds the header mapping for a call.
type HeaderExtractor func(ctx context.Context) (core.Headers, error)

// ErrMultipleIdentityHeaders indicates an identity metadata key was sent more
// than once.
var ErrMultipleIdentityHeaders = core.ErrMultipleIdentityHeaders

// MetadataHeaderExtractor returns the incoming metadata as headers, one value
// per key. gRPC lower-cases incoming keys, which matches the header names
// the authenticator looks up.
func MetadataHeaderExtractor(ctx context.Context) (core.Headers, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return core.Headers{}, nil
	}

	for _, key := range core.IdentityHeaders {
		if len(md.Get(key)) > 1 {
			return nil, ErrMultipleIdentityHeaders
		}
	}

	headers := make(core.Headers, md.Len())
	for key, values := range md {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}
	return headers, nil
}
