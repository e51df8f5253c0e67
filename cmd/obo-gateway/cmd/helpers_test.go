package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

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

type cmdResult struct {
	stdout string
	stderr string
	err    error
}

func runCmd(args ...string) cmdResult {
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return cmdResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}
