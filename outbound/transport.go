// Package outbound attaches a resolved identity's bearer token to calls made
// on the user's behalf.
package outbound

import (
	"errors"
	"net/http"

	"github.com/chatgate/obo-identity/core"
)

// ErrNoBearerToken is returned when the token source has no token to send.
// The request is not sent.
var ErrNoBearerToken = errors.New("missing bearer token")

// Transport is an http.RoundTripper that sets the Authorization header from
// Source. *core.Identity satisfies core.TokenSource. Every request it sees
// is signed, redirect hops included; clients using it should not follow
// redirects to other hosts.
type Transport struct {
	Source core.TokenSource
	// Base is the underlying transport. Nil means http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper. The caller's request is not
// modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, ok := "", false
	if t.Source != nil {
		token, ok = t.Source.BearerToken()
	}
	if !ok {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, ErrNoBearerToken
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return t.base().RoundTrip(out)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
