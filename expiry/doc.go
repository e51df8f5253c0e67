/*
Package expiry reports whether a delegated access token is still usable.

The Checker decodes the token's payload with lestrrat-go/jwx without verifying
its signature. Tokens reaching this package were issued by the identity
provider and forwarded by the reverse proxy, which has already validated them;
all that is needed here is the exp claim.

	checker := expiry.New(expiry.WithLogger(slog.Default()))

	if checker.IsExpired(token) {
	    // ask the user to sign in again
	}

A token whose claims cannot be decoded, or which carries no exp claim, is
reported as expired.
*/
package expiry
