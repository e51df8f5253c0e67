package core

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// Credential is a configured password login.
type Credential struct {
	Username string `yaml:"username" json:"username"`
	// PasswordHash is a bcrypt hash.
	PasswordHash string `yaml:"password_hash" json:"password_hash"`
	Email        string `yaml:"email" json:"email"`
}

// PasswordAuthenticator checks username/password logins in static-secret
// deployments. The resulting users carry AuthTypePassword metadata; their
// downstream token is the static secret served by the Resolver.
type PasswordAuthenticator struct {
	*settings
	users map[string]Credential
	// dummyHash keeps unknown usernames as slow as wrong passwords.
	dummyHash []byte
}

// NewPasswordAuthenticator validates the configured credentials and returns
// an authenticator for them.
func NewPasswordAuthenticator(credentials []Credential, opts ...Option) (*PasswordAuthenticator, error) {
	if len(credentials) == 0 {
		return nil, errors.New("at least one credential is required")
	}

	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}

	users := make(map[string]Credential, len(credentials))
	for _, c := range credentials {
		if c.Username == "" {
			return nil, errors.New("credential username cannot be empty")
		}
		if _, err := bcrypt.Cost([]byte(c.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid password hash for user %q: %w", c.Username, err)
		}
		users[c.Username] = c
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password check: %w", err)
	}

	return &PasswordAuthenticator{settings: s, users: users, dummyHash: dummy}, nil
}

// Authenticate returns the user for a valid username/password pair, or
// ErrInvalidCredentials.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, password string) (*User, error) {
	_, span := a.tracer.Start(ctx, "identity.password_auth")
	defer span.End()

	cred, known := a.users[username]
	hash := a.dummyHash
	if known {
		hash = []byte(cred.PasswordHash)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !known {
		a.logger.Warn("password auth failed", "user", username)
		span.SetAttributes(attribute.String("auth.outcome", ErrorCodeInvalidCredentials))
		a.metrics.IncCounter(MetricPasswordLogins, map[string]string{"outcome": ErrorCodeInvalidCredentials})
		return nil, NewResolutionError(ErrorCodeInvalidCredentials, "invalid username or password", nil)
	}

	a.logger.Info("password auth success", "user", username)
	span.SetAttributes(attribute.String("auth.outcome", outcomeSuccess))
	a.metrics.IncCounter(MetricPasswordLogins, map[string]string{"outcome": outcomeSuccess})

	return &User{
		Identifier:  username,
		DisplayName: username,
		Email:       cred.Email,
		Provider:    "credentials",
		Metadata:    Metadata{AuthType: AuthTypePassword},
	}, nil
}
