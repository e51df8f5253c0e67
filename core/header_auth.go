package core

import (
	"context"
	"maps"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
)

// HeaderAuthenticator authenticates requests from the x-forwarded-* headers
// set by the reverse proxy. It is only wired in delegated deployments; there
// is no fallback authentication when it rejects a request.
type HeaderAuthenticator struct {
	*settings
}

// NewHeaderAuthenticator creates a HeaderAuthenticator.
func NewHeaderAuthenticator(opts ...Option) (*HeaderAuthenticator, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return &HeaderAuthenticator{settings: s}, nil
}

// Authenticate builds the session user from the proxy headers.
//
// Both HeaderAccessToken and a principal (HeaderEmail, else HeaderUser) must
// be present, otherwise ErrIncompleteHeaders is returned. The token's exp is
// decoded without verifying the signature and is not compared to the current
// time here; an expired token still authenticates and is rejected later by
// the Resolver. A token whose claims cannot be decoded is rejected.
//
// The returned user's Metadata holds the raw token, its expiry and a copy of
// headers.
func (a *HeaderAuthenticator) Authenticate(ctx context.Context, headers Headers) (*User, error) {
	_, span := a.tracer.Start(ctx, "identity.header_auth")
	defer span.End()

	user, err := a.authenticate(headers)

	outcome := outcomeSuccess
	if err != nil {
		outcome = ErrorCode(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	a.metrics.IncCounter(MetricHeaderLogins, map[string]string{"outcome": outcome})

	return user, err
}

func (a *HeaderAuthenticator) authenticate(headers Headers) (*User, error) {
	token, _ := headers.Get(HeaderAccessToken)
	principal := principalFrom(headers)

	if token == "" || principal == "" {
		a.logger.Warn("header auth failed, rejecting request (no fallback)",
			"has_token", token != "",
			"has_principal", principal != "")
		return nil, NewResolutionError(ErrorCodeIncompleteHeaders, "missing access token or principal header", nil)
	}

	result := a.checker.Check(token)
	if result.Err != nil {
		a.logger.Error("header auth failed, token could not be decoded", "principal", principal, "error", result.Err)
		return nil, NewResolutionError(ErrorCodeTokenUndecodable, "access token undecodable", result.Err)
	}

	a.logger.Info("header auth success",
		"principal", principal,
		"expires_at", result.Expiry,
		"seconds_left", result.Remaining.Seconds())

	displayName, _, _ := strings.Cut(principal, "@")

	return &User{
		Identifier:  principal,
		DisplayName: displayName,
		Email:       principal,
		Provider:    string(AuthTypeOBO),
		Metadata: Metadata{
			AuthType:       AuthTypeOBO,
			OBOToken:       token,
			OBOTokenExpiry: result.Expiry.Format(time.RFC3339),
			Headers:        maps.Clone(headers),
		},
	}, nil
}

// principalFrom returns the first non-empty of HeaderEmail and HeaderUser.
func principalFrom(headers Headers) string {
	for _, key := range []string{HeaderEmail, HeaderUser} {
		if v, ok := headers.Get(key); ok && v != "" {
			return v
		}
	}
	return ""
}
