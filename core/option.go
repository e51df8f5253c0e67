package core

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/chatgate/obo-identity/expiry"
)

const instrumentationName = "github.com/chatgate/obo-identity/core"

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics receives resolution outcomes. The root package provides a
// Prometheus-backed implementation.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
	ObserveHistogram(name string, value float64, tags map[string]string)
}

// Metric names emitted by the core.
const (
	MetricResolutions        = "identity_resolutions_total"
	MetricResolutionDuration = "identity_resolution_duration_seconds"
	MetricHeaderLogins       = "identity_header_logins_total"
	MetricPasswordLogins     = "identity_password_logins_total"
)

// Option configures a Resolver, HeaderAuthenticator or PasswordAuthenticator.
// Options return errors to enable validation during construction.
type Option func(*settings) error

type settings struct {
	logger       Logger
	metrics      Metrics
	tracer       trace.Tracer
	checker      *expiry.Checker
	staticMode   bool
	staticSecret string
}

func newSettings(opts []Option) (*settings, error) {
	s := &settings{
		logger:  nopLogger{},
		metrics: nopMetrics{},
		tracer:  otel.Tracer(instrumentationName),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.checker == nil {
		s.checker = expiry.New(expiry.WithLogger(s.logger))
	}

	return s, nil
}

// WithLogger sets an optional logger.
//
// Example:
//
//	resolver, _ := core.NewResolver(
//	    core.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the sink for outcome counters and duration histograms.
func WithMetrics(metrics Metrics) Option {
	return func(s *settings) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		s.metrics = metrics
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer used for spans.
//
// Default: otel.Tracer from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		s.tracer = tracer
		return nil
	}
}

// WithExpiryChecker replaces the default expiry.Checker.
func WithExpiryChecker(checker *expiry.Checker) Option {
	return func(s *settings) error {
		if checker == nil {
			return errors.New("expiry checker cannot be nil")
		}
		s.checker = checker
		return nil
	}
}

// WithStaticSecret switches the Resolver to static-secret mode. Every
// logged-in user is served with secret and no expiry is checked. An empty
// secret is allowed; its token source then reports no token.
func WithStaticSecret(secret string) Option {
	return func(s *settings) error {
		s.staticMode = true
		s.staticSecret = secret
		return nil
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) IncCounter(string, map[string]string)                {}
func (nopMetrics) ObserveHistogram(string, float64, map[string]string) {}
