package oboidentity

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/chatgate/obo-identity/core"
)

// HeaderSnapshot returns the request headers as a core.Headers map with
// lower-cased names. Repeated headers keep their first value, except the
// identity headers, which fail with core.ErrMultipleIdentityHeaders.
func HeaderSnapshot(r *http.Request) (core.Headers, error) {
	headers := make(core.Headers, len(r.Header))
	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		key := strings.ToLower(name)
		if slices.Contains(core.IdentityHeaders, key) {
			if _, seen := headers[key]; seen || len(values) > 1 {
				return nil, core.ErrMultipleIdentityHeaders
			}
		}
		headers[key] = values[0]
	}
	return headers, nil
}

// SessionExtractor returns the session ID carried by a request. An error
// should only be returned if a session ID was present but malformed; a
// missing ID is reported as an empty string.
type SessionExtractor func(r *http.Request) (string, error)

// CookieSessionExtractor reads the session ID from the named cookie.
func CookieSessionExtractor(cookieName string) SessionExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return cookie.Value, nil
	}
}

// HeaderSessionExtractor reads the session ID from a request header, for API
// clients that do not keep cookies.
func HeaderSessionExtractor(header string) SessionExtractor {
	return func(r *http.Request) (string, error) {
		value := strings.TrimSpace(r.Header.Get(header))
		if strings.ContainsAny(value, " \t,") {
			return "", errors.New("session header must hold a single session ID")
		}
		return value, nil
	}
}

// MultiSessionExtractor runs the extractors in order and returns the first
// non-empty session ID. If an extractor returns an error that error is
// immediately returned.
func MultiSessionExtractor(extractors ...SessionExtractor) SessionExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			id, err := ex(r)
			if err != nil {
				return "", err
			}
			if id != "" {
				return id, nil
			}
		}
		return "", nil
	}
}

// DefaultCookieName names the session cookie.
const DefaultCookieName = "obo_session"

// CookieConfig holds the session cookie attributes.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	// MaxAge bounds the cookie lifetime. Zero issues a browser-session cookie.
	MaxAge time.Duration
}

// DefaultCookieConfig returns a secure, HTTP-only, lax cookie valid for the
// browser session.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     DefaultCookieName,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c CookieConfig) issue(id string) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
		MaxAge:   int(c.MaxAge / time.Second),
	}
}

func (c CookieConfig) expired() *http.Cookie {
	cookie := c.issue("")
	cookie.MaxAge = -1
	return cookie
}
