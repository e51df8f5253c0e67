// Package identityecho adapts the identity middleware to Echo.
package identityecho

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	oboidentity "github.com/chatgate/obo-identity"
	"github.com/chatgate/obo-identity/core"
)

// DefaultIdentityKey is the echo.Context key the identity is stored under.
var DefaultIdentityKey = "identity"

type echoContextKey struct{}

// echoMiddlewareConfig holds all configuration for the middleware
type echoMiddlewareConfig struct {
	errorHandler func(echo.Context, error) error
	contextKey   string
}

// Middleware is the Echo form of oboidentity.Middleware.
type Middleware struct {
	identity *oboidentity.Middleware
	config   *echoMiddlewareConfig
}

// Router is satisfied by *echo.Echo and *echo.Group.
type Router interface {
	Any(path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) []*echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// New builds the underlying oboidentity.Middleware from identityOpts and
// wraps it for Echo.
func New(identityOpts []oboidentity.Option, opts ...Option) (*Middleware, error) {
	config := &echoMiddlewareConfig{
		contextKey: DefaultIdentityKey,
	}
	for _, opt := range opts {
		opt(config)
	}

	if config.errorHandler != nil {
		identityOpts = append(identityOpts, oboidentity.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			c, ok := r.Context().Value(echoContextKey{}).(echo.Context)
			if !ok || c == nil {
				oboidentity.DefaultErrorHandler(w, r, err)
				return
			}
			if handlerErr := config.errorHandler(c, err); handlerErr != nil {
				c.Error(handlerErr)
			}
		}))
	}

	identity, err := oboidentity.New(identityOpts...)
	if err != nil {
		return nil, err
	}

	return &Middleware{identity: identity, config: config}, nil
}

// RequireIdentity returns Echo middleware resolving the request's identity.
// The chain stops when resolution fails; the error handler has answered.
func (m *Middleware) RequireIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			var handler http.HandlerFunc = func(_ http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)

				if identity, err := core.GetIdentity(r.Context()); err == nil {
					c.Set(m.config.contextKey, identity)
				}

				nextErr = next(c)
			}

			req := c.Request().WithContext(context.WithValue(c.Request().Context(), echoContextKey{}, c))
			m.identity.RequireIdentity(handler).ServeHTTP(c.Response(), req)

			return nextErr
		}
	}
}

// Register mounts the login and logout routes enabled on the middleware.
func (m *Middleware) Register(r Router) {
	wrap := func(h http.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request().WithContext(context.WithValue(c.Request().Context(), echoContextKey{}, c))
			h(c.Response(), req)
			return nil
		}
	}

	if m.identity.HeaderLoginEnabled() {
		r.Any(oboidentity.HeaderLoginPath, wrap(m.identity.HeaderLogin))
	}
	if m.identity.PasswordLoginEnabled() {
		r.POST(oboidentity.PasswordLoginPath, wrap(m.identity.PasswordLogin))
	}
	r.Any(oboidentity.LogoutPath, wrap(m.identity.Logout))
}

// GetIdentity extracts the identity stored by RequireIdentity.
func GetIdentity(c echo.Context, contextKey string) (*core.Identity, bool) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	identity, ok := c.Get(contextKey).(*core.Identity)
	return identity, ok && identity != nil
}
