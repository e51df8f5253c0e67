// Package identitygin adapts the identity middleware to Gin.
package identitygin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	oboidentity "github.com/chatgate/obo-identity"
	"github.com/chatgate/obo-identity/core"
)

// DefaultIdentityKey is the gin.Context key the identity is stored under.
const DefaultIdentityKey = "identity"

var (
	ErrMissingIdentity = errors.New("no identity found in context")
	ErrInvalidIdentity = errors.New("invalid identity type")
)

type ginContextKey struct{}

type ginMiddlewareConfig struct {
	errorHandler func(*gin.Context, error)
	contextKey   string
}

// Middleware is the Gin form of oboidentity.Middleware.
type Middleware struct {
	identity *oboidentity.Middleware
	config   *ginMiddlewareConfig
}

// New builds the underlying oboidentity.Middleware from identityOpts and
// wraps it for Gin.
func New(identityOpts []oboidentity.Option, opts ...Option) (*Middleware, error) {
	config := &ginMiddlewareConfig{
		contextKey: DefaultIdentityKey,
	}
	for _, opt := range opts {
		opt(config)
	}

	if config.errorHandler != nil {
		identityOpts = append(identityOpts, oboidentity.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			c, ok := r.Context().Value(ginContextKey{}).(*gin.Context)
			if !ok || c == nil {
				oboidentity.DefaultErrorHandler(w, r, err)
				return
			}
			config.errorHandler(c, err)
		}))
	}

	identity, err := oboidentity.New(identityOpts...)
	if err != nil {
		return nil, err
	}

	return &Middleware{identity: identity, config: config}, nil
}

// RequireIdentity returns a handler that resolves the request's identity,
// stores it on the gin.Context and aborts the chain when resolution fails.
func (m *Middleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		encounteredError := true
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			encounteredError = false
			c.Request = r

			if identity, err := core.GetIdentity(r.Context()); err == nil {
				c.Set(m.config.contextKey, identity)
			}

			c.Next()
		}

		req := c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))
		m.identity.RequireIdentity(handler).ServeHTTP(c.Writer, req)

		if encounteredError {
			c.Abort()
		}
	}
}

// Register mounts the login and logout routes enabled on the middleware.
func (m *Middleware) Register(r gin.IRoutes) {
	wrap := func(h http.HandlerFunc) gin.HandlerFunc {
		return func(c *gin.Context) {
			req := c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))
			h(c.Writer, req)
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

// GetIdentity returns the identity stored by RequireIdentity. An empty
// contextKey means DefaultIdentityKey.
func GetIdentity(c *gin.Context, contextKey string) (*core.Identity, error) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingIdentity
	}

	identity, ok := value.(*core.Identity)
	if !ok {
		return nil, ErrInvalidIdentity
	}

	return identity, nil
}
