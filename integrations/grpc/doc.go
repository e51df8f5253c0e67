// Package grpc provides gRPC server interceptors that resolve the calling
// user's identity from proxy-forwarded metadata.
//
// gRPC calls carry no session cookie, so every call is authenticated on its
// own: the incoming metadata plays the role of the forwarded HTTP headers
// (x-forwarded-access-token plus x-forwarded-email or x-forwarded-user), the
// header authenticator turns it into a user, and the resolver serves the
// identity for a session that lives only as long as the call. Only
// deployments behind an authenticating proxy are supported; static-secret
// deployments have no gRPC surface.
//
// # Basic Usage
//
//	import (
//	    identitygrpc "github.com/chatgate/obo-identity/integrations/grpc"
//	    "github.com/chatgate/obo-identity/core"
//	    "google.golang.org/grpc"
//	)
//
//	resolver, _ := core.NewResolver()
//	headerAuth, _ := core.NewHeaderAuthenticator()
//
//	interceptor, err := identitygrpc.New(
//	    identitygrpc.WithResolver(resolver),
//	    identitygrpc.WithHeaderAuthenticator(headerAuth),
//	    identitygrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// # Accessing the Identity
//
//	func (s *server) Ask(ctx context.Context, req *pb.AskRequest) (*pb.AskReply, error) {
//	    identity := identitygrpc.MustIdentityFromContext(ctx)
//	    token, _ := identity.BearerToken()
//	    // forward token downstream
//	}
//
// # Error Codes
//
// Every authentication failure maps to codes.Unauthenticated; ambiguous
// identity metadata maps to codes.InvalidArgument. Use WithErrorHandler to
// change the mapping.
package grpc
