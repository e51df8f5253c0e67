package core

import (
	"strings"
	"time"
)

// Headers injected by the reverse proxy in delegated deployments.
const (
	HeaderAccessToken = "x-forwarded-access-token"
	HeaderEmail       = "x-forwarded-email"
	HeaderUser        = "x-forwarded-user"
)

// AuthType names how an identity was established.
type AuthType string

const (
	AuthTypeOBO      AuthType = "obo"
	AuthTypePAT      AuthType = "pat"
	AuthTypePassword AuthType = "password"
)

// IdentityHeaders lists the headers that must appear at most once.
var IdentityHeaders = []string{HeaderAccessToken, HeaderEmail, HeaderUser}

// Headers is a snapshot of request headers. Snapshots built from an
// http.Header use lower-cased keys.
type Headers map[string]string

// Get returns the value stored under key. An exact match wins; otherwise the
// keys are compared case-insensitively, and two or more case variants of key
// yield ("", false). A nil Headers yields ("", false).
func (h Headers) Get(key string) (string, bool) {
	if h == nil {
		return "", false
	}
	if v, ok := h[key]; ok {
		return v, true
	}

	var (
		value string
		found bool
	)
	for k, v := range h {
		if !strings.EqualFold(k, key) {
			continue
		}
		if found {
			return "", false
		}
		value, found = v, true
	}
	return value, found
}

// Metadata is the state stashed on a User at authentication time. It is
// written once and read-only afterwards.
type Metadata struct {
	AuthType AuthType `json:"auth_type,omitempty"`
	// OBOToken is the raw delegated token.
	OBOToken string `json:"obo_token,omitempty"`
	// OBOTokenExpiry is the token's exp in RFC 3339. Informational only.
	OBOTokenExpiry string `json:"obo_token_expiry,omitempty"`
	// Headers is the proxy header snapshot taken at authentication time.
	Headers Headers `json:"headers,omitempty"`
}

// User is the authenticated principal bound to a session.
type User struct {
	Identifier  string   `json:"identifier"`
	DisplayName string   `json:"display_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// Session is the hosting application's session as seen by the resolver.
type Session struct {
	ID        string    `json:"id"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
