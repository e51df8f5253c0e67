package oboidentity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatgate/obo-identity/core"
	"github.com/chatgate/obo-identity/session"
)

// Route paths mounted by Register.
const (
	HeaderLoginPath   = "/auth/header"
	PasswordLoginPath = "/auth/password"
	LogoutPath        = "/auth/logout"
)

// Middleware binds HTTP requests to sessions and resolves the identity of the
// user behind each one.
type Middleware struct {
	resolver          *core.Resolver
	headerAuth        *core.HeaderAuthenticator
	passwordAuth      *core.PasswordAuthenticator
	store             session.Store
	errorHandler      ErrorHandler
	sessionExtractor  SessionExtractor
	exclusionHandler  ExclusionURLHandler
	trustedProxies    []netip.Prefix
	validateOnOptions bool
	cookie            CookieConfig
	logger            Logger
	tracer            trace.Tracer
	now               func() time.Time
}

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core for consistent logging across the stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ExclusionURLHandler returns true if the request should skip identity
// resolution.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a Middleware with the supplied options. WithResolver is
// required.
//
// Example:
//
//	resolver, _ := core.NewResolver(core.WithLogger(logger))
//	headerAuth, _ := core.NewHeaderAuthenticator(core.WithLogger(logger))
//
//	mw, err := oboidentity.New(
//	    oboidentity.WithResolver(resolver),
//	    oboidentity.WithHeaderAuthenticator(headerAuth),
//	    oboidentity.WithSessionStore(store),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		validateOnOptions: true,
		cookie:            DefaultCookieConfig(),
		logger:            nopLogger{},
		tracer:            defaultTracer(),
		now:               time.Now,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.resolver == nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", ErrResolverNil)
	}
	if m.headerAuth != nil && (m.resolver.StaticMode() || m.passwordAuth != nil) {
		return nil, fmt.Errorf("invalid middleware configuration: %w", ErrHeaderAuthStaticMode)
	}

	if m.store == nil {
		m.store = session.NewMemoryStore(m.cookie.MaxAge)
	}
	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.sessionExtractor == nil {
		m.sessionExtractor = CookieSessionExtractor(m.cookie.Name)
	}

	return m, nil
}

// Resolver returns the resolver the middleware was built with.
func (m *Middleware) Resolver() *core.Resolver {
	return m.resolver
}

// HeaderLoginEnabled reports whether a header authenticator was configured.
func (m *Middleware) HeaderLoginEnabled() bool {
	return m.headerAuth != nil
}

// PasswordLoginEnabled reports whether a password authenticator was
// configured.
func (m *Middleware) PasswordLoginEnabled() bool {
	return m.passwordAuth != nil
}

// Register mounts the login and logout handlers on mux. The header login is
// mounted only when a header authenticator was configured, the password login
// only when a password authenticator was configured.
func (m *Middleware) Register(mux *http.ServeMux) {
	if m.headerAuth != nil {
		mux.HandleFunc(HeaderLoginPath, m.HeaderLogin)
		m.logger.Info("header auth enabled", "path", HeaderLoginPath)
	}
	if m.passwordAuth != nil {
		mux.HandleFunc(PasswordLoginPath, m.PasswordLogin)
		m.logger.Info("password auth enabled", "path", PasswordLoginPath)
	}
	mux.HandleFunc(LogoutPath, m.Logout)
}

// GetIdentity retrieves the identity resolved by RequireIdentity.
//
// Example:
//
//	identity, err := oboidentity.GetIdentity(r.Context())
//	if err != nil {
//	    http.Error(w, "no identity", http.StatusUnauthorized)
//	    return
//	}
//	token, _ := identity.BearerToken()
func GetIdentity(ctx context.Context) (*core.Identity, error) {
	return core.GetIdentity(ctx)
}

// MustGetIdentity retrieves the identity from the context or panics.
// Use only behind RequireIdentity.
func MustGetIdentity(ctx context.Context) *core.Identity {
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

// RequireIdentity resolves the identity of the request's session and passes
// the request on with the identity in its context. Requests whose identity
// cannot be resolved are answered by the error handler.
func (m *Middleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionHandler != nil && m.exclusionHandler(r) {
			m.logger.Debug("skipping identity resolution for excluded URL",
				"method", r.Method,
				"path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			m.logger.Debug("skipping identity resolution for OPTIONS request")
			next.ServeHTTP(w, r)
			return
		}

		ctx, span := m.tracer.Start(r.Context(), "identity.http.require",
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			))
		defer span.End()

		sess, err := m.loadSession(ctx, r)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "session lookup failed")
			m.logger.Error("failed to load session",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
			m.errorHandler(w, r, err)
			return
		}

		identity, err := m.resolver.EnsureIdentity(ctx, sess)
		if err != nil {
			span.SetStatus(codes.Error, core.ErrorCode(err))
			m.logger.Warn("identity resolution failed",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
			m.errorHandler(w, r, err)
			return
		}

		ctx = core.SetSession(ctx, sess)
		ctx = core.SetIdentity(ctx, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loadSession returns nil when the request carries no session ID, and a
// session without user when the ID is unknown or expired.
func (m *Middleware) loadSession(ctx context.Context, r *http.Request) (*core.Session, error) {
	id, err := m.sessionExtractor(r)
	if err != nil {
		return nil, fmt.Errorf("error extracting session: %w", err)
	}
	if id == "" {
		return nil, nil
	}

	sess, err := m.store.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		return &core.Session{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// HeaderLogin authenticates the proxy-forwarded headers of the request and
// starts a session for the resulting user. Failed header authentication is
// final; there is no fallback to other login methods.
func (m *Middleware) HeaderLogin(w http.ResponseWriter, r *http.Request) {
	if m.headerAuth == nil {
		http.NotFound(w, r)
		return
	}
	if !m.fromTrustedProxy(r) {
		m.logger.Warn("header auth failed, request did not come through a trusted proxy",
			"remote_addr", r.RemoteAddr)
		m.errorHandler(w, r, ErrUntrustedProxy)
		return
	}

	headers, err := HeaderSnapshot(r)
	if err != nil {
		m.logger.Warn("header auth failed, duplicate identity headers", "remote_addr", r.RemoteAddr)
		m.errorHandler(w, r, &requestError{details: err})
		return
	}

	user, err := m.headerAuth.Authenticate(r.Context(), headers)
	if err != nil {
		m.errorHandler(w, r, err)
		return
	}

	m.startSession(w, r, user)
}

type passwordLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PasswordLogin checks a JSON {"username","password"} body and starts a
// session for the matching user.
func (m *Middleware) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	if m.passwordAuth == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req passwordLoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		m.errorHandler(w, r, &requestError{details: err})
		return
	}

	user, err := m.passwordAuth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		m.errorHandler(w, r, err)
		return
	}

	m.startSession(w, r, user)
}

// Logout deletes the request's session and clears the cookie.
func (m *Middleware) Logout(w http.ResponseWriter, r *http.Request) {
	id, err := m.sessionExtractor(r)
	if err != nil {
		m.errorHandler(w, r, fmt.Errorf("error extracting session: %w", err))
		return
	}

	if id != "" {
		if err := m.store.Delete(r.Context(), id); err != nil {
			m.logger.Error("failed to delete session", "error", err)
			m.errorHandler(w, r, err)
			return
		}
		m.logger.Info("session ended")
	}

	http.SetCookie(w, m.cookie.expired())
	w.WriteHeader(http.StatusNoContent)
}

type loginResponse struct {
	Email       string        `json:"email,omitempty"`
	DisplayName string        `json:"display_name,omitempty"`
	AuthType    core.AuthType `json:"auth_type"`
}

func (m *Middleware) startSession(w http.ResponseWriter, r *http.Request, user *core.User) {
	sess := &core.Session{
		ID:        session.NewID(),
		User:      user,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Save(r.Context(), sess); err != nil {
		m.logger.Error("failed to save session", "error", err)
		m.errorHandler(w, r, err)
		return
	}

	http.SetCookie(w, m.cookie.issue(sess.ID))
	writeJSON(w, http.StatusOK, loginResponse{
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AuthType:    user.Metadata.AuthType,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
