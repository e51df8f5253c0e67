package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chatgate/obo-identity/core"
)

// DefaultTimeout bounds a single invocation.
const DefaultTimeout = 180 * time.Second

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type invocationRequest struct {
	Input  []Message `json:"input"`
	Stream bool      `json:"stream"`
}

// HTTPError reports a non-2xx answer from the downstream. Redirects are
// reported as errors and not followed.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("downstream HTTP %d: %s", e.StatusCode, e.Body)
}

// Client calls an agent endpoint on behalf of a resolved identity.
type Client struct {
	baseURL  string
	endpoint string
	base     http.RoundTripper
	timeout  time.Duration
	logger   core.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithHTTPTransport sets the transport under the bearer-token transport.
func WithHTTPTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) error {
		if rt == nil {
			return errors.New("transport cannot be nil")
		}
		c.base = rt
		return nil
	}
}

// WithTimeout bounds each invocation.
//
// Default: DefaultTimeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// NewClient returns a client posting to <baseURL>/<endpoint>/invocations.
func NewClient(baseURL, endpoint string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid downstream URL %q", baseURL)
	}
	endpoint = strings.Trim(endpoint, "/")
	if endpoint == "" {
		return nil, errors.New("endpoint cannot be empty")
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: endpoint,
		base:     http.DefaultTransport,
		timeout:  DefaultTimeout,
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return c, nil
}

// URL returns the invocation URL.
func (c *Client) URL() string {
	return c.baseURL + "/" + c.endpoint + "/invocations"
}

// Invoke sends messages in a single non-streaming call and returns the
// downstream's JSON answer.
func (c *Client) Invoke(ctx context.Context, source core.TokenSource, messages []Message) (json.RawMessage, error) {
	payload, err := json.Marshal(invocationRequest{Input: messages, Stream: false})
	if err != nil {
		return nil, fmt.Errorf("failed to encode invocation: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build invocation: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpClient := &http.Client{
		Transport: &Transport{Source: source, Base: c.base},
		// Transport signs every hop, so redirects are never followed.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		if errors.Is(err, ErrNoBearerToken) {
			return nil, ErrNoBearerToken
		}
		return nil, fmt.Errorf("invocation failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read invocation response: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn("downstream invocation failed", "status", resp.StatusCode, "endpoint", c.endpoint)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("downstream returned invalid JSON")
	}

	c.logger.Debug("downstream invocation succeeded", "status", resp.StatusCode, "endpoint", c.endpoint)
	return json.RawMessage(body), nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
