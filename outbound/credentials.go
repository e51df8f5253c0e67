package outbound

import (
	"context"

	"google.golang.org/grpc/credentials"

	"github.com/chatgate/obo-identity/core"
)

type perRPCCredentials struct {
	source     core.TokenSource
	requireTLS bool
}

// PerRPCCredentials returns gRPC call credentials sending the source's token
// as "authorization: Bearer <token>" metadata. Calls fail with
// ErrNoBearerToken when the source has no token.
//
// Example:
//
//	conn, err := grpc.NewClient(target,
//	    grpc.WithTransportCredentials(credentials.NewTLS(nil)),
//	)
//	reply, err := client.Ask(ctx, req, grpc.PerRPCCredentials(outbound.PerRPCCredentials(identity, true)))
func PerRPCCredentials(source core.TokenSource, requireTLS bool) credentials.PerRPCCredentials {
	return &perRPCCredentials{source: source, requireTLS: requireTLS}
}

func (c *perRPCCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	if c.source == nil {
		return nil, ErrNoBearerToken
	}
	token, ok := c.source.BearerToken()
	if !ok {
		return nil, ErrNoBearerToken
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

func (c *perRPCCredentials) RequireTransportSecurity() bool {
	return c.requireTLS
}
