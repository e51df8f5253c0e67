package expiry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrNoExpiry is returned by Decode when the token has no exp claim.
	ErrNoExpiry = errors.New("token has no exp claim")

	// ErrNotCompact is returned by Decode for anything but a compact JWS.
	ErrNotCompact = errors.New("token is not a compact JWS")
)

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Status classifies a token by its exp claim.
type Status int

const (
	// StatusUndecodable means the claims could not be read or exp is missing.
	StatusUndecodable Status = iota
	// StatusExpired means exp is at or before now.
	StatusExpired
	// StatusValid means exp is after now.
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "undecodable"
	}
}

// Result is the outcome of a single Check. It is derived on every call and
// never cached.
type Result struct {
	Status Status
	// Expiry is the exp claim in UTC. Zero when Status is StatusUndecodable.
	Expiry time.Time
	// Remaining is Expiry minus now. Negative or zero once expired.
	Remaining time.Duration
	// Err holds the decode error when Status is StatusUndecodable.
	Err error
}

// Expired reports whether the token must be treated as expired.
func (r Result) Expired() bool {
	return r.Status != StatusValid
}

// Checker decodes tokens and computes their remaining validity.
// It is immutable after creation and safe for concurrent use.
type Checker struct {
	now    func() time.Time
	logger Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithClock overrides the time source. Mostly useful in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a logger that receives the remaining/elapsed seconds of
// each checked token.
func WithLogger(logger Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// New returns a Checker using the wall clock unless WithClock is given.
func New(opts ...Option) *Checker {
	c := &Checker{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode returns the exp claim of token without verifying its signature.
func (c *Checker) Decode(token string) (time.Time, error) {
	if !isCompactJWS(token) {
		return time.Time{}, ErrNotCompact
	}

	parsed, err := jwt.ParseString(token, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not decode the token: %w", err)
	}

	exp := parsed.Expiration()
	if exp.IsZero() {
		return time.Time{}, ErrNoExpiry
	}

	return exp.UTC(), nil
}

// Check decodes token and classifies it against the current time.
func (c *Checker) Check(token string) Result {
	exp, err := c.Decode(token)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("error checking token expiration", "error", err)
		}
		return Result{Status: StatusUndecodable, Err: err}
	}

	remaining := exp.Sub(c.now().UTC())
	if remaining <= 0 {
		if c.logger != nil {
			c.logger.Warn("token expired", "seconds_ago", -remaining.Seconds())
		}
		return Result{Status: StatusExpired, Expiry: exp, Remaining: remaining}
	}

	if c.logger != nil {
		c.logger.Info("token valid", "seconds_left", remaining.Seconds())
	}
	return Result{Status: StatusValid, Expiry: exp, Remaining: remaining}
}

// IsExpired reports whether token is expired or cannot be decoded.
func (c *Checker) IsExpired(token string) bool {
	return c.Check(token).Expired()
}

// isCompactJWS rejects JSON objects and other inputs jwt.Parse would accept
// as raw or JSON-serialized tokens.
func isCompactJWS(token string) bool {
	if strings.Count(token, ".") != 2 || strings.ContainsAny(token, " \t\r\n{}\"") {
		return false
	}
	return jwx.GuessFormat([]byte(token)) == jwx.JWS
}
