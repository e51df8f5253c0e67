package grpc

import (
	"errors"

	"github.com/chatgate/obo-identity/core"
)

// Option configures the identity interceptor.
type Option func(*IdentityInterceptor) error

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core for consistent logging across the stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// WithResolver sets the identity resolver (REQUIRED). It must not be in
// static-secret mode.
func WithResolver(r *core.Resolver) Option {
	return func(i *IdentityInterceptor) error {
		if r == nil {
			return errors.New("resolver cannot be nil")
		}
		i.resolver = r
		return nil
	}
}

// WithHeaderAuthenticator sets the authenticator for the call metadata
// (REQUIRED).
func WithHeaderAuthenticator(a *core.HeaderAuthenticator) Option {
	return func(i *IdentityInterceptor) error {
		if a == nil {
			return errors.New("header authenticator cannot be nil")
		}
		i.headerAuth = a
		return nil
	}
}

// WithLogger sets an optional logger for the interceptor.
//
// Example:
//
//	interceptor, _ := identitygrpc.New(
//	    identitygrpc.WithResolver(resolver),
//	    identitygrpc.WithHeaderAuthenticator(headerAuth),
//	    identitygrpc.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(i *IdentityInterceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithHeaderExtractor sets a custom header extractor function.
// Default is MetadataHeaderExtractor.
func WithHeaderExtractor(extractor HeaderExtractor) Option {
	return func(i *IdentityInterceptor) error {
		if extractor == nil {
			return errors.New("header extractor cannot be nil")
		}
		i.headerExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler which maps errors to gRPC status codes.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *IdentityInterceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods excludes specific gRPC methods from identity resolution.
// Methods should be provided in the format: "/package.Service/Method"
// Example: "/grpc.health.v1.Health/Check"
func WithExcludedMethods(methods ...string) Option {
	return func(i *IdentityInterceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
