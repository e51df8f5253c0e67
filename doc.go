/*
Package oboidentity resolves, per request, who the chat user is and which
bearer token outbound calls must carry on their behalf.

Two deployment modes are supported. Behind a trusted authenticating proxy
the proxy forwards the user's access token and email as
x-forwarded-access-token and x-forwarded-email (or x-forwarded-user); the
header login turns those into a session, and every later request is served
the token captured at login, re-checked for expiry each time. Without such a
proxy a single static secret is served to every logged-in user.

This package is the net/http adapter. The framework-agnostic logic lives in
the core package; framework/gin, framework/echo and integrations/grpc adapt it
to other transports.

# Quick Start

	checker := expiry.New()
	resolver, err := core.NewResolver(core.WithExpiryChecker(checker))
	if err != nil {
	    log.Fatal(err)
	}
	headerAuth, err := core.NewHeaderAuthenticator(core.WithExpiryChecker(checker))
	if err != nil {
	    log.Fatal(err)
	}

	mw, err := oboidentity.New(
	    oboidentity.WithResolver(resolver),
	    oboidentity.WithHeaderAuthenticator(headerAuth),
	)
	if err != nil {
	    log.Fatal(err)
	}

	mux := http.NewServeMux()
	mw.Register(mux)
	mux.Handle("/api/", mw.RequireIdentity(apiHandler))

# Accessing the Identity

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    identity := oboidentity.MustGetIdentity(r.Context())
	    token, ok := identity.BearerToken()
	    if !ok {
	        http.Error(w, "no token", http.StatusUnauthorized)
	        return
	    }
	    // call the downstream with token
	}

The outbound package wraps this in an http.RoundTripper and in gRPC
per-RPC credentials.

# Error Responses

Every authentication failure is terminal for the request; the client is
asked to log in again:

	HTTP/1.1 401 Unauthorized
	WWW-Authenticate: Bearer realm="chat"

	{"error":"reauthentication_required","error_code":"token_expired"}

Session store failures answer 500. Use WithErrorHandler to change this.

# Sessions

Sessions are kept in a session.Store (memory, Redis or PostgreSQL) and
referenced by a cookie. Only the state stored at login is trusted; headers on
later requests are ignored by the resolver.
*/
package oboidentity
