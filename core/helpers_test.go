package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/chatgate/obo-identity/expiry"
)

var fixedNow = time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

func fixedChecker() *expiry.Checker {
	return expiry.New(expiry.WithClock(func() time.Time { return fixedNow }))
}

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()

	tok, err := jwt.NewBuilder().
		Subject("a@b.com").
		Expiration(exp).
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("proxy-signing-key")))
	require.NoError(t, err)

	return string(signed)
}

// mockLogger records calls for assertions.
type mockLogger struct {
	debugCalls []logCall
	infoCalls  []logCall
	warnCalls  []logCall
	errorCalls []logCall
}

type logCall struct {
	msg  string
	args []any
}

func (m *mockLogger) Debug(msg string, args ...any) {
	m.debugCalls = append(m.debugCalls, logCall{msg, args})
}

func (m *mockLogger) Info(msg string, args ...any) {
	m.infoCalls = append(m.infoCalls, logCall{msg, args})
}

func (m *mockLogger) Warn(msg string, args ...any) {
	m.warnCalls = append(m.warnCalls, logCall{msg, args})
}

func (m *mockLogger) Error(msg string, args ...any) {
	m.errorCalls = append(m.errorCalls, logCall{msg, args})
}

func (m *mockLogger) messages() []string {
	var out []string
	for _, calls := range [][]logCall{m.debugCalls, m.infoCalls, m.warnCalls, m.errorCalls} {
		for _, c := range calls {
			out = append(out, c.msg)
		}
	}
	return out
}

// mockMetrics records counter increments keyed by name and tags.
type mockMetrics struct {
	counters   map[string]int
	histograms map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{counters: map[string]int{}, histograms: map[string]int{}}
}

func (m *mockMetrics) IncCounter(name string, tags map[string]string) {
	m.counters[fmt.Sprintf("%s{outcome=%s}", name, tags["outcome"])]++
}

func (m *mockMetrics) ObserveHistogram(name string, _ float64, tags map[string]string) {
	m.histograms[fmt.Sprintf("%s{outcome=%s}", name, tags["outcome"])]++
}
