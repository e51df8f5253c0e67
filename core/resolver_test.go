package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func oboUser(token string, headers Headers) *User {
	return &User{
		Identifier:  "a@b.com",
		DisplayName: "a",
		Email:       "a@b.com",
		Provider:    "obo",
		Metadata: Metadata{
			AuthType: AuthTypeOBO,
			OBOToken: token,
			Headers:  headers,
		},
	}
}

func TestNewResolver(t *testing.T) {
	t.Run("successful creation with defaults", func(t *testing.T) {
		resolver, err := NewResolver()
		require.NoError(t, err)
		assert.False(t, resolver.StaticMode())
		assert.NotNil(t, resolver.checker)
	})

	t.Run("successful creation with all options", func(t *testing.T) {
		resolver, err := NewResolver(
			WithStaticSecret("dapi"),
			WithLogger(&mockLogger{}),
			WithMetrics(newMockMetrics()),
			WithTracer(noop.NewTracerProvider().Tracer("test")),
			WithExpiryChecker(fixedChecker()),
		)
		require.NoError(t, err)
		assert.True(t, resolver.StaticMode())
	})

	t.Run("error when logger is nil", func(t *testing.T) {
		resolver, err := NewResolver(WithLogger(nil))
		assert.Nil(t, resolver)
		assert.EqualError(t, err, "logger cannot be nil")
	})

	t.Run("error when metrics are nil", func(t *testing.T) {
		_, err := NewResolver(WithMetrics(nil))
		assert.EqualError(t, err, "metrics cannot be nil")
	})

	t.Run("error when tracer is nil", func(t *testing.T) {
		_, err := NewResolver(WithTracer(nil))
		assert.EqualError(t, err, "tracer cannot be nil")
	})

	t.Run("error when checker is nil", func(t *testing.T) {
		_, err := NewResolver(WithExpiryChecker(nil))
		assert.EqualError(t, err, "expiry checker cannot be nil")
	})
}

func TestResolver_EnsureIdentity_Delegated(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name             string
		session          func(t *testing.T) *Session
		expectedErr      error
		expectedCode     string
		expectedToken    string
		expectedLogEntry string
	}{
		{
			name:             "it rejects a missing session",
			session:          func(*testing.T) *Session { return nil },
			expectedErr:      ErrNoSession,
			expectedCode:     ErrorCodeNoSession,
			expectedLogEntry: "no session context available",
		},
		{
			name:             "it rejects a session without user",
			session:          func(*testing.T) *Session { return &Session{ID: "s1"} },
			expectedErr:      ErrNotLoggedIn,
			expectedCode:     ErrorCodeNotLoggedIn,
			expectedLogEntry: "user not found for this session, please login again",
		},
		{
			name: "it rejects a user without stored token",
			session: func(*testing.T) *Session {
				return &Session{ID: "s1", User: oboUser("", Headers{HeaderAccessToken: "x"})}
			},
			expectedErr:      ErrNoStoredCredentials,
			expectedCode:     ErrorCodeMissingCredentials,
			expectedLogEntry: "no stored OBO token/headers available, user needs to re-authenticate",
		},
		{
			name: "it rejects a user without stored headers",
			session: func(t *testing.T) *Session {
				return &Session{ID: "s1", User: oboUser(mintToken(t, fixedNow.Add(time.Hour)), nil)}
			},
			expectedErr:      ErrNoStoredCredentials,
			expectedCode:     ErrorCodeMissingCredentials,
			expectedLogEntry: "no stored OBO token/headers available, user needs to re-authenticate",
		},
		{
			name: "it rejects an expired stored token regardless of headers",
			session: func(t *testing.T) *Session {
				fresh := mintToken(t, fixedNow.Add(time.Hour))
				return &Session{ID: "s1", User: oboUser(
					mintToken(t, fixedNow.Add(-10*time.Second)),
					Headers{HeaderAccessToken: fresh},
				)}
			},
			expectedErr:      ErrTokenExpired,
			expectedCode:     ErrorCodeTokenExpired,
			expectedLogEntry: "stored OBO token is expired, session is over",
		},
		{
			name: "it rejects an undecodable stored token as expired",
			session: func(*testing.T) *Session {
				return &Session{ID: "s1", User: oboUser("garbage", Headers{HeaderAccessToken: "garbage"})}
			},
			expectedErr:      ErrTokenExpired,
			expectedCode:     ErrorCodeTokenUndecodable,
			expectedLogEntry: "OBO token could not be decoded, treating as expired",
		},
		{
			name: "it rejects a stored bare JSON claims object as expired",
			session: func(*testing.T) *Session {
				raw := `{"exp":9999999999}`
				return &Session{ID: "s1", User: oboUser(raw, Headers{HeaderAccessToken: raw})}
			},
			expectedErr:      ErrTokenExpired,
			expectedCode:     ErrorCodeTokenUndecodable,
			expectedLogEntry: "OBO token could not be decoded, treating as expired",
		},
		{
			name: "it rejects headers without access token",
			session: func(t *testing.T) *Session {
				return &Session{ID: "s1", User: oboUser(
					mintToken(t, fixedNow.Add(time.Hour)),
					Headers{HeaderEmail: "a@b.com"},
				)}
			},
			expectedErr:      ErrTokenNotInHeaders,
			expectedCode:     ErrorCodeTokenNotInHeaders,
			expectedLogEntry: "no OBO token found in stored headers",
		},
		{
			name: "it rejects an expired header token",
			session: func(t *testing.T) *Session {
				return &Session{ID: "s1", User: oboUser(
					mintToken(t, fixedNow.Add(time.Hour)),
					Headers{HeaderAccessToken: mintToken(t, fixedNow.Add(-time.Minute))},
				)}
			},
			expectedErr:      ErrTokenExpired,
			expectedCode:     ErrorCodeTokenExpired,
			expectedLogEntry: "OBO token is expired, session is over, please re-authenticate",
		},
		{
			name: "it resolves an obo identity from stored headers",
			session: func(t *testing.T) *Session {
				return &Session{ID: "s1", User: oboUser(mintToken(t, fixedNow.Add(time.Hour)), Headers{
					HeaderAccessToken: mintToken(t, fixedNow.Add(2*time.Hour)),
					HeaderEmail:       "a@b.com",
				})}
			},
			expectedLogEntry: "valid authentication headers ready",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			logger := &mockLogger{}
			metrics := newMockMetrics()
			resolver, err := NewResolver(
				WithLogger(logger),
				WithMetrics(metrics),
				WithExpiryChecker(fixedChecker()),
			)
			require.NoError(t, err)

			sess := testCase.session(t)
			identity, err := resolver.EnsureIdentity(ctx, sess)

			assert.Contains(t, logger.messages(), testCase.expectedLogEntry)

			if testCase.expectedErr != nil {
				assert.Nil(t, identity)
				assert.ErrorIs(t, err, testCase.expectedErr)
				assert.ErrorIs(t, err, ErrUnauthenticated)
				assert.Equal(t, testCase.expectedCode, ErrorCode(err))
				assert.Equal(t, 1, metrics.counters[MetricResolutions+"{outcome="+testCase.expectedCode+"}"])
				return
			}

			require.NoError(t, err)
			require.NotNil(t, identity)
			assert.Equal(t, AuthTypeOBO, identity.AuthType())
			assert.Equal(t, "a@b.com", identity.Email())
			assert.Equal(t, "a", identity.DisplayName())

			token, ok := identity.BearerToken()
			assert.True(t, ok)
			assert.Equal(t, sess.User.Metadata.Headers[HeaderAccessToken], token)
			assert.Equal(t, 1, metrics.counters[MetricResolutions+"{outcome=success}"])
			assert.Equal(t, 1, metrics.histograms[MetricResolutionDuration+"{outcome=success}"])
		})
	}
}

func TestResolver_EnsureIdentity_HeaderTokenMustBeFresh(t *testing.T) {
	// The header snapshot holds a different, undecodable token than the
	// stored one: the extracted token is checked on its own.
	resolver, err := NewResolver(WithExpiryChecker(fixedChecker()))
	require.NoError(t, err)

	sess := &Session{User: oboUser(mintToken(t, fixedNow.Add(time.Hour)), Headers{HeaderAccessToken: "garbage"})}
	identity, err := resolver.EnsureIdentity(context.Background(), sess)

	assert.Nil(t, identity)
	assert.ErrorIs(t, err, ErrTokenUndecodable)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestResolver_EnsureIdentity_SnapshotIsolation(t *testing.T) {
	resolver, err := NewResolver(WithExpiryChecker(fixedChecker()))
	require.NoError(t, err)

	token := mintToken(t, fixedNow.Add(time.Hour))
	headers := Headers{HeaderAccessToken: token}
	sess := &Session{User: oboUser(token, headers)}

	identity, err := resolver.EnsureIdentity(context.Background(), sess)
	require.NoError(t, err)

	headers[HeaderAccessToken] = "mutated"

	got, ok := identity.BearerToken()
	assert.True(t, ok)
	assert.Equal(t, token, got)
}

func TestResolver_EnsureIdentity_Static(t *testing.T) {
	ctx := context.Background()

	t.Run("it never checks expiry and ignores stored obo metadata", func(t *testing.T) {
		logger := &mockLogger{}
		resolver, err := NewResolver(
			WithStaticSecret("dapi-secret"),
			WithLogger(logger),
			WithExpiryChecker(fixedChecker()),
		)
		require.NoError(t, err)

		users := []*User{
			{Identifier: "admin", DisplayName: "admin", Email: "admin@example.com"},
			oboUser(mintToken(t, fixedNow.Add(-time.Hour)), Headers{HeaderAccessToken: "expired"}),
			oboUser("garbage", nil),
		}

		for _, user := range users {
			identity, err := resolver.EnsureIdentity(ctx, &Session{User: user})
			require.NoError(t, err)
			assert.Equal(t, AuthTypePAT, identity.AuthType())
			assert.Equal(t, user.Email, identity.Email())
			assert.Equal(t, user.DisplayName, identity.DisplayName())

			token, ok := identity.BearerToken()
			assert.True(t, ok)
			assert.Equal(t, "dapi-secret", token)
		}
		assert.Contains(t, logger.messages(), "using static secret authentication")
	})

	t.Run("it copies absent email without synthesizing one", func(t *testing.T) {
		resolver, err := NewResolver(WithStaticSecret("dapi-secret"))
		require.NoError(t, err)

		identity, err := resolver.EnsureIdentity(ctx, &Session{User: &User{Identifier: "tester"}})
		require.NoError(t, err)
		assert.Empty(t, identity.Email())
		assert.Empty(t, identity.DisplayName())
	})

	t.Run("it serves an unconfigured secret as absent", func(t *testing.T) {
		resolver, err := NewResolver(WithStaticSecret(""))
		require.NoError(t, err)

		identity, err := resolver.EnsureIdentity(ctx, &Session{User: &User{Identifier: "tester"}})
		require.NoError(t, err)

		_, ok := identity.BearerToken()
		assert.False(t, ok)
	})

	t.Run("it still rejects sessions without user", func(t *testing.T) {
		resolver, err := NewResolver(WithStaticSecret("dapi-secret"))
		require.NoError(t, err)

		_, err = resolver.EnsureIdentity(ctx, &Session{})
		assert.True(t, errors.Is(err, ErrNotLoggedIn))

		_, err = resolver.EnsureIdentity(ctx, nil)
		assert.True(t, errors.Is(err, ErrNoSession))
	})
}
