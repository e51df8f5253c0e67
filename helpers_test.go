package oboidentity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chatgate/obo-identity/core"
	"github.com/chatgate/obo-identity/expiry"
)

var fixedNow = time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by the checker of a test.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestClock() *testClock { return &testClock{now: fixedNow} }

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()

	tok, err := jwt.NewBuilder().
		Subject("a@b.com").
		Expiration(exp).
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("proxy-signing-key")))
	require.NoError(t, err)

	return string(signed)
}

// delegatedMiddleware builds a Middleware for a deployment behind the proxy.
func delegatedMiddleware(t *testing.T, clock *testClock, opts ...Option) *Middleware {
	t.Helper()

	checker := expiry.New(expiry.WithClock(clock.Now))

	resolver, err := core.NewResolver(core.WithExpiryChecker(checker))
	require.NoError(t, err)

	headerAuth, err := core.NewHeaderAuthenticator(core.WithExpiryChecker(checker))
	require.NoError(t, err)

	opts = append([]Option{
		WithResolver(resolver),
		WithHeaderAuthenticator(headerAuth),
	}, opts...)

	m, err := New(opts...)
	require.NoError(t, err)
	return m
}

// staticMiddleware builds a Middleware for a static-secret deployment with
// one password user, alice / wonderland.
func staticMiddleware(t *testing.T, opts ...Option) *Middleware {
	t.Helper()

	resolver, err := core.NewResolver(core.WithStaticSecret("pat-secret"))
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("wonderland"), bcrypt.MinCost)
	require.NoError(t, err)

	passwordAuth, err := core.NewPasswordAuthenticator([]core.Credential{
		{Username: "alice", PasswordHash: string(hash), Email: "alice@example.com"},
	})
	require.NoError(t, err)

	opts = append([]Option{
		WithResolver(resolver),
		WithPasswordAuthenticator(passwordAuth),
	}, opts...)

	m, err := New(opts...)
	require.NoError(t, err)
	return m
}

// identityEcho answers with the resolved identity and its bearer token.
var identityEcho = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	identity := MustGetIdentity(r.Context())
	token, _ := identity.BearerToken()
	writeJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"token":    token,
	})
})

func newTestServer(t *testing.T, m *Middleware) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	m.Register(mux)
	mux.Handle("/api/me", m.RequireIdentity(identityEcho))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range resp.Cookies() {
		if c.Name == DefaultCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", DefaultCookieName)
	return nil
}
