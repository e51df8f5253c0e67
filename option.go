package oboidentity

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/chatgate/obo-identity/core"
	"github.com/chatgate/obo-identity/session"
)

// Option configures the Middleware.
// Returns error for validation failures.
type Option func(*Middleware) error

// WithResolver sets the identity resolver (REQUIRED).
func WithResolver(r *core.Resolver) Option {
	return func(m *Middleware) error {
		if r == nil {
			return ErrResolverNil
		}
		m.resolver = r
		return nil
	}
}

// WithHeaderAuthenticator enables the header login route. Configure it only
// for deployments behind a trusted proxy that forwards the user's access
// token, and never together with WithPasswordAuthenticator.
func WithHeaderAuthenticator(a *core.HeaderAuthenticator) Option {
	return func(m *Middleware) error {
		if a == nil {
			return ErrAuthenticatorNil
		}
		m.headerAuth = a
		return nil
	}
}

// WithPasswordAuthenticator enables the password login route.
func WithPasswordAuthenticator(a *core.PasswordAuthenticator) Option {
	return func(m *Middleware) error {
		if a == nil {
			return ErrAuthenticatorNil
		}
		m.passwordAuth = a
		return nil
	}
}

// WithSessionStore sets where sessions are kept.
//
// Default: an in-memory store expiring sessions after the cookie max age.
func WithSessionStore(s session.Store) Option {
	return func(m *Middleware) error {
		if s == nil {
			return ErrStoreNil
		}
		m.store = s
		return nil
	}
}

// WithErrorHandler sets the handler called when a request cannot be served
// an identity. See the ErrorHandler type for more information.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithSessionExtractor sets the function reading the session ID from a
// request.
//
// Default: CookieSessionExtractor for the configured cookie name.
func WithSessionExtractor(e SessionExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrSessionExtractorNil
		}
		m.sessionExtractor = e
		return nil
	}
}

// WithCookie sets the session cookie attributes.
//
// Default: DefaultCookieConfig()
func WithCookie(c CookieConfig) Option {
	return func(m *Middleware) error {
		if c.Name == "" {
			return ErrCookieNameEmpty
		}
		if c.Path == "" {
			c.Path = "/"
		}
		m.cookie = c
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests need an identity.
//
// Default: true
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithExclusionUrls configures URLs that skip identity resolution.
// URLs can be full URLs or just paths.
func WithExclusionUrls(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		m.exclusionHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets an optional logger for the middleware. Pass the same
// logger to the core constructors to get the whole flow in one stream.
//
// Example:
//
//	mw, err := oboidentity.New(
//	    oboidentity.WithResolver(resolver),
//	    oboidentity.WithLogger(oboidentity.NewLogrusLogger(logrus.StandardLogger())),
//	)
func WithLogger(logger Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithTracerProvider sets the provider the middleware spans are created with.
//
// Default: the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Middleware) error {
		if tp == nil {
			return ErrTracerProviderNil
		}
		m.tracer = tp.Tracer(instrumentationName)
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrResolverNil         = errors.New("resolver cannot be nil (use WithResolver)")
	ErrAuthenticatorNil    = errors.New("authenticator cannot be nil")
	ErrStoreNil            = errors.New("session store cannot be nil")
	ErrErrorHandlerNil     = errors.New("errorHandler cannot be nil")
	ErrSessionExtractorNil = errors.New("sessionExtractor cannot be nil")
	ErrCookieNameEmpty     = errors.New("cookie name cannot be empty")
	ErrExclusionUrlsEmpty  = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil           = errors.New("logger cannot be nil")
	ErrTracerProviderNil   = errors.New("tracer provider cannot be nil")

	// ErrHeaderAuthStaticMode is returned when a header authenticator is
	// combined with a static-secret resolver or a password authenticator.
	ErrHeaderAuthStaticMode = errors.New("header authentication requires a delegated resolver and no password authenticator")
)
