package identityecho

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oboidentity "github.com/chatgate/obo-identity"
	"github.com/chatgate/obo-identity/core"
)

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()

	tok, err := jwt.NewBuilder().Expiration(exp).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("proxy-signing-key")))
	require.NoError(t, err)
	return string(signed)
}

func newEcho(t *testing.T, opts ...Option) *echo.Echo {
	t.Helper()

	resolver, err := core.NewResolver()
	require.NoError(t, err)
	headerAuth, err := core.NewHeaderAuthenticator()
	require.NoError(t, err)

	mw, err := New([]oboidentity.Option{
		oboidentity.WithResolver(resolver),
		oboidentity.WithHeaderAuthenticator(headerAuth),
	}, opts...)
	require.NoError(t, err)

	e := echo.New()
	mw.Register(e)
	api := e.Group("/api", mw.RequireIdentity())
	api.GET("/me", func(c echo.Context) error {
		identity, ok := GetIdentity(c, "")
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, "identity missing")
		}
		return c.JSON(http.StatusOK, identity)
	})
	api.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadGateway, "downstream failed")
	})
	return e
}

func Test_EchoMiddleware(t *testing.T) {
	e := newEcho(t)

	login := httptest.NewRequest(http.MethodPost, oboidentity.HeaderLoginPath, nil)
	login.Header.Set("X-Forwarded-Access-Token", mintToken(t, time.Now().Add(time.Hour)))
	login.Header.Set("X-Forwarded-User", "svc@b.com")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, login)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	t.Run("it stores the identity on the echo context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"email":"svc@b.com","display_name":"svc","auth_type":"obo"}`, rec.Body.String())
	})

	t.Run("it returns the handler error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/fail", nil)
		req.AddCookie(cookies[0])
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("it stops the chain without a session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, `{"error":"reauthentication_required","error_code":"no_session"}`, strings.TrimSpace(rec.Body.String()))
	})
}

func Test_EchoMiddleware_CustomErrorHandler(t *testing.T) {
	e := newEcho(t, WithErrorHandler(func(c echo.Context, err error) error {
		return c.JSON(http.StatusTeapot, map[string]string{"code": core.ErrorCode(err)})
	}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"code":"no_session"}`, rec.Body.String())
}

func Test_GetIdentity_Missing(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	identity, ok := GetIdentity(c, "")
	assert.False(t, ok)
	assert.Nil(t, identity)
}
