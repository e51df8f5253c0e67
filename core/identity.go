package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Identity is the normalized caller identity produced by Resolver. It is
// immutable; the token source is never printed or serialized.
type Identity struct {
	email       string
	displayName string
	authType    AuthType
	tokenSource TokenSource
}

func newIdentity(user *User, authType AuthType, source TokenSource) *Identity {
	return &Identity{
		email:       user.Email,
		displayName: user.DisplayName,
		authType:    authType,
		tokenSource: source,
	}
}

// Email returns the user's email, or "" when the session user has none.
func (i Identity) Email() string { return i.email }

// DisplayName returns the user's display name, or "".
func (i Identity) DisplayName() string { return i.displayName }

// AuthType returns AuthTypeOBO or AuthTypePAT.
func (i Identity) AuthType() AuthType { return i.authType }

// TokenSource returns the capability that yields the bearer token.
func (i Identity) TokenSource() TokenSource { return i.tokenSource }

// BearerToken is shorthand for i.TokenSource().BearerToken().
func (i Identity) BearerToken() (string, bool) {
	if i.tokenSource == nil {
		return "", false
	}
	return i.tokenSource.BearerToken()
}

func (i Identity) String() string {
	return fmt.Sprintf("Identity(email=%q, display_name=%q, auth_type=%s)", i.email, i.displayName, i.authType)
}

// GoString keeps %#v from dumping the token source.
func (i Identity) GoString() string {
	return i.String()
}

// LogValue implements slog.LogValuer.
func (i Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", i.email),
		slog.String("display_name", i.displayName),
		slog.String("auth_type", string(i.authType)),
	)
}

type identityJSON struct {
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	AuthType    AuthType `json:"auth_type"`
}

// MarshalJSON implements json.Marshaler. The token source is omitted.
func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(identityJSON{
		Email:       i.email,
		DisplayName: i.displayName,
		AuthType:    i.authType,
	})
}
