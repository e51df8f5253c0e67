/*
Package core provides framework-agnostic identity resolution for chat sessions
that act on behalf of a user.

It answers two questions for the transport adapters (net/http, gin, echo,
gRPC): is the caller behind this session authenticated, and which bearer token
should be presented to downstream services on their behalf.

# Architecture

The core package implements the "Core" in the Core-Adapter pattern:

	┌─────────────────────────────────────────────┐
	│         Transport Adapters                  │
	│  (HTTP, gRPC, Gin, Echo - Framework Specific)│
	└────────────────┬────────────────────────────┘
	                 │
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Core Engine (THIS PACKAGE)         │
	│  • Header authentication (login)            │
	│  • Identity resolution (every interaction)  │
	│  • Token sources                            │
	└────────────────┬────────────────────────────┘
	                 │
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Expiry Checker                     │
	│  (unverified exp decode)                    │
	└─────────────────────────────────────────────┘

# Authentication Modes

Static secret ("pat"): every logged-in user is served with the configured
secret. Enabled with WithStaticSecret. No expiry is checked in this mode.

On-behalf-of ("obo"): the reverse proxy injects the user's access token and
principal as x-forwarded-* headers. HeaderAuthenticator turns those headers
into a User whose Metadata stashes the token and a snapshot of the headers.
Resolver.EnsureIdentity later trusts only that stashed state: it never falls
back to live request headers, and an expired token ends the session.

# Basic Usage

	resolver, err := core.NewResolver(core.WithLogger(slog.Default()))
	if err != nil {
	    log.Fatal(err)
	}

	headerAuth, err := core.NewHeaderAuthenticator()
	if err != nil {
	    log.Fatal(err)
	}

	// At login.
	user, err := headerAuth.Authenticate(ctx, headers)
	if err != nil {
	    // reject the request, there is no fallback
	}
	sess := &core.Session{ID: id, User: user}

	// On every interaction.
	identity, err := resolver.EnsureIdentity(ctx, sess)
	if err != nil {
	    // prompt the user to sign in again
	}
	token, ok := identity.BearerToken()

# Errors

Every rejection is a *ResolutionError carrying a machine-readable code. All of
them match ErrUnauthenticated, and each matches its own sentinel:

	if errors.Is(err, core.ErrTokenExpired) {
	    // session is over
	}

Undecodable tokens are treated as expired: they match both
ErrTokenUndecodable and ErrTokenExpired.

# Thread Safety

Resolver, HeaderAuthenticator and PasswordAuthenticator are immutable after
construction and safe for concurrent use. Identity values are immutable.
*/
package core
