package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderLoginThenResolve(t *testing.T) {
	ctx := context.Background()

	headerAuth, err := NewHeaderAuthenticator(WithExpiryChecker(fixedChecker()))
	require.NoError(t, err)
	resolver, err := NewResolver(WithExpiryChecker(fixedChecker()))
	require.NoError(t, err)

	t.Run("a fresh token yields an obo identity", func(t *testing.T) {
		token := mintToken(t, fixedNow.Add(3600*time.Second))
		headers := Headers{HeaderAccessToken: token, HeaderEmail: "a@b.com"}

		user, err := headerAuth.Authenticate(ctx, headers)
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", user.Email)
		assert.Equal(t, "a", user.DisplayName)
		assert.Equal(t, headers, user.Metadata.Headers)

		identity, err := resolver.EnsureIdentity(ctx, &Session{ID: "s1", User: user})
		require.NoError(t, err)
		assert.Equal(t, AuthTypeOBO, identity.AuthType())

		got, ok := identity.BearerToken()
		assert.True(t, ok)
		assert.Equal(t, token, got)
	})

	t.Run("an expired token logs in but does not resolve", func(t *testing.T) {
		token := mintToken(t, fixedNow.Add(-10*time.Second))

		user, err := headerAuth.Authenticate(ctx, Headers{HeaderAccessToken: token, HeaderEmail: "a@b.com"})
		require.NoError(t, err)
		require.NotNil(t, user)

		identity, err := resolver.EnsureIdentity(ctx, &Session{ID: "s1", User: user})
		assert.Nil(t, identity)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}
