package core

// TokenSource supplies the bearer token presented to downstream services.
// The second return value is false when no token is available.
type TokenSource interface {
	BearerToken() (string, bool)
}

// HeaderFunc returns the header mapping a header-derived TokenSource reads
// from. It may return nil.
type HeaderFunc func() Headers

// NewStaticTokenSource returns a TokenSource that always answers with secret.
// An empty secret is reported as absent.
func NewStaticTokenSource(secret string) TokenSource {
	return staticTokenSource{secret: secret}
}

// NewHeaderTokenSource returns a TokenSource that calls fn on every
// BearerToken call and reads HeaderAccessToken from the result.
func NewHeaderTokenSource(fn HeaderFunc) TokenSource {
	return headerTokenSource{headers: fn}
}

type staticTokenSource struct {
	secret string
}

func (s staticTokenSource) BearerToken() (string, bool) {
	return s.secret, s.secret != ""
}

func (s staticTokenSource) String() string {
	return "StaticTokenSource([REDACTED])"
}

type headerTokenSource struct {
	headers HeaderFunc
}

func (s headerTokenSource) BearerToken() (string, bool) {
	if s.headers == nil {
		return "", false
	}
	token, ok := s.headers().Get(HeaderAccessToken)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

func (s headerTokenSource) String() string {
	return "HeaderTokenSource"
}
