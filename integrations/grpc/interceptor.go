package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"

	"github.com/chatgate/obo-identity/core"
	"github.com/chatgate/obo-identity/session"
)

// IdentityInterceptor resolves the caller's identity for gRPC servers.
type IdentityInterceptor struct {
	resolver        *core.Resolver
	headerAuth      *core.HeaderAuthenticator
	headerExtractor HeaderExtractor
	errorHandler    ErrorHandler
	excludedMethods map[string]bool
	logger          Logger
}

// New creates a new gRPC identity interceptor with the provided options.
// WithResolver and WithHeaderAuthenticator are required.
func New(opts ...Option) (*IdentityInterceptor, error) {
	interceptor := &IdentityInterceptor{
		headerExtractor: MetadataHeaderExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
		logger:          nopLogger{},
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	if interceptor.resolver == nil {
		return nil, errors.New("resolver is required, use WithResolver option")
	}
	if interceptor.headerAuth == nil {
		return nil, errors.New("header authenticator is required, use WithHeaderAuthenticator option")
	}
	if interceptor.resolver.StaticMode() {
		return nil, errors.New("static-secret resolvers are not supported over gRPC")
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that resolves
// the caller's identity and makes it available in the request context.
func (i *IdentityInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debug("skipping identity resolution for excluded method",
				"method", info.FullMethod)
			return handler(ctx, req)
		}

		resolvedCtx, err := i.resolve(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(resolvedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// resolves the caller's identity once per stream.
func (i *IdentityInterceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debug("skipping identity resolution for excluded method",
				"method", info.FullMethod)
			return handler(srv, ss)
		}

		resolvedCtx, err := i.resolve(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          resolvedCtx,
		})
	}
}

// resolve authenticates the call metadata, binds the user to a session that
// lives for the call, and resolves its identity.
func (i *IdentityInterceptor) resolve(ctx context.Context, method string) (context.Context, error) {
	headers, err := i.headerExtractor(ctx)
	if err != nil {
		i.logger.Error("failed to extract identity metadata",
			"error", err,
			"method", method)
		return ctx, i.errorHandler(err)
	}

	user, err := i.headerAuth.Authenticate(ctx, headers)
	if err != nil {
		i.logger.Warn("metadata authentication failed",
			"error", err,
			"method", method)
		return ctx, i.errorHandler(err)
	}

	sess := &core.Session{
		ID:        session.NewID(),
		User:      user,
		CreatedAt: time.Now().UTC(),
	}

	identity, err := i.resolver.EnsureIdentity(ctx, sess)
	if err != nil {
		i.logger.Warn("identity resolution failed",
			"error", err,
			"method", method)
		return ctx, i.errorHandler(err)
	}

	i.logger.Debug("identity resolved", "method", method, "identity", identity)
	ctx = core.SetSession(ctx, sess)
	return core.SetIdentity(ctx, identity), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context with the identity.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
