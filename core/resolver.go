package core

import (
	"context"
	"maps"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/chatgate/obo-identity/expiry"
)

const outcomeSuccess = "success"

// Resolver turns a session into an Identity. In static-secret mode every
// logged-in user gets the configured secret; otherwise the token stashed on
// the user at header-authentication time must still be fresh.
type Resolver struct {
	*settings
}

// NewResolver creates a Resolver. Without WithStaticSecret it runs in
// delegated (on-behalf-of) mode.
//
// Example:
//
//	resolver, err := core.NewResolver(
//	    core.WithStaticSecret(cfg.PAT),
//	    core.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewResolver(opts ...Option) (*Resolver, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return &Resolver{settings: s}, nil
}

// StaticMode reports whether the resolver serves a static secret.
func (r *Resolver) StaticMode() bool {
	return r.staticMode
}

// EnsureIdentity resolves the identity of the user bound to sess.
//
// It returns a nil identity and a *ResolutionError on every rejection:
//   - sess is nil (ErrNoSession)
//   - no user is bound (ErrNotLoggedIn)
//   - delegated mode without stored token or headers (ErrNoStoredCredentials)
//   - stored or extracted token expired or undecodable (ErrTokenExpired)
//   - header snapshot without access token (ErrTokenNotInHeaders)
//
// Live request headers are never consulted; only the state stashed on the
// session user is trusted.
func (r *Resolver) EnsureIdentity(ctx context.Context, sess *Session) (*Identity, error) {
	_, span := r.tracer.Start(ctx, "identity.ensure")
	defer span.End()

	start := time.Now()
	identity, err := r.ensureIdentity(sess)
	duration := time.Since(start)

	outcome := outcomeSuccess
	if err != nil {
		outcome = ErrorCode(err)
		span.SetStatus(otelcodes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("auth.type", string(identity.AuthType())))
	}
	span.SetAttributes(attribute.String("auth.outcome", outcome))

	tags := map[string]string{"outcome": outcome}
	r.metrics.IncCounter(MetricResolutions, tags)
	r.metrics.ObserveHistogram(MetricResolutionDuration, duration.Seconds(), tags)

	return identity, err
}

func (r *Resolver) ensureIdentity(sess *Session) (*Identity, error) {
	if sess == nil {
		r.logger.Error("no session context available")
		return nil, NewResolutionError(ErrorCodeNoSession, "no session context available", nil)
	}

	user := sess.User
	if user == nil {
		r.logger.Warn("user not found for this session, please login again", "session", sess.ID)
		return nil, NewResolutionError(ErrorCodeNotLoggedIn, "user not logged in", nil)
	}

	if r.staticMode {
		r.logger.Info("using static secret authentication", "user", user.Identifier)
		return newIdentity(user, AuthTypePAT, NewStaticTokenSource(r.staticSecret)), nil
	}

	md := user.Metadata
	if md.OBOToken == "" || len(md.Headers) == 0 {
		r.logger.Error("no stored OBO token/headers available, user needs to re-authenticate",
			"user", user.Identifier)
		return nil, NewResolutionError(ErrorCodeMissingCredentials, "no stored OBO token or headers", nil)
	}

	if err := r.checkFresh(md.OBOToken, "stored OBO token is expired, session is over", user); err != nil {
		return nil, err
	}

	snapshot := maps.Clone(md.Headers)
	source := NewHeaderTokenSource(func() Headers { return snapshot })
	r.logger.Debug("using stored OBO token and headers", "user", user.Identifier)

	token, ok := source.BearerToken()
	if !ok {
		r.logger.Error("no OBO token found in stored headers", "user", user.Identifier)
		return nil, NewResolutionError(ErrorCodeTokenNotInHeaders, "no OBO token found in headers", nil)
	}

	if err := r.checkFresh(token, "OBO token is expired, session is over, please re-authenticate", user); err != nil {
		return nil, err
	}

	r.logger.Info("valid authentication headers ready", "user", user.Identifier)
	return newIdentity(user, AuthTypeOBO, source), nil
}

// checkFresh rejects expired and undecodable tokens. Both are terminal; no
// refresh is attempted.
func (r *Resolver) checkFresh(token, expiredMsg string, user *User) error {
	result := r.checker.Check(token)
	switch result.Status {
	case expiry.StatusValid:
		return nil
	case expiry.StatusExpired:
		r.logger.Error(expiredMsg, "user", user.Identifier, "expired_at", result.Expiry)
		return NewResolutionError(ErrorCodeTokenExpired, "OBO token expired", nil)
	default:
		r.logger.Error("OBO token could not be decoded, treating as expired",
			"user", user.Identifier, "error", result.Err)
		return NewResolutionError(ErrorCodeTokenUndecodable, "OBO token undecodable", result.Err)
	}
}
