//nolint:noctx // Test file uses http.Get for convenience
package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, state string) *CallbackServer {
	t.Helper()
	s := NewCallbackServer(0, state)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestCallbackServer_Start_ResolvesPort(t *testing.T) {
	s := startServer(t, "state")

	assert.NotZero(t, s.Port())
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/callback", s.Port()), s.RedirectURI())
}

func TestCallbackServer_Start_PortInUse(t *testing.T) {
	first := startServer(t, "state")

	second := NewCallbackServer(first.Port(), "state")
	err := second.Start()

	assert.Error(t, err)
}

func TestCallbackServer_Success(t *testing.T) {
	s := startServer(t, "state-1")

	status, body := get(t, fmt.Sprintf("http://127.0.0.1:%d/callback?code=abc&state=state-1", s.Port()))

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "chronicle is authorized")

	code, err := s.WaitForCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}

func TestCallbackServer_Failures(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
		want   string
	}{
		{"state mismatch", "code=abc&state=other", http.StatusBadRequest, "state mismatch"},
		{"missing code", "state=state-1", http.StatusBadRequest, "no authorization code"},
		{"provider error", "error=access_denied&error_description=The+user+cancelled", http.StatusOK, "access_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startServer(t, "state-1")

			status, body := get(t, fmt.Sprintf("http://127.0.0.1:%d/callback?%s", s.Port(), tt.query))

			assert.Equal(t, tt.status, status)
			assert.Contains(t, body, "Authorization failed")

			_, err := s.WaitForCode(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCallbackServer_EscapesProviderText(t *testing.T) {
	s := startServer(t, "state-1")

	_, body := get(t, fmt.Sprintf("http://127.0.0.1:%d/callback?error=x&error_description=%%3Cscript%%3E", s.Port()))

	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestCallbackServer_WrongPath(t *testing.T) {
	s := startServer(t, "state-1")

	status, _ := get(t, fmt.Sprintf("http://127.0.0.1:%d/", s.Port()))

	assert.Equal(t, http.StatusNotFound, status)
}

func TestCallbackServer_WaitForCode_ContextDone(t *testing.T) {
	s := startServer(t, "state-1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.WaitForCode(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallbackServer_StopTwice(t *testing.T) {
	s := NewCallbackServer(0, "state")
	require.NoError(t, s.Start())

	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
}

func TestCallbackServer_StartThenStop(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := NewCallbackServer(0, "st")
		require.NoError(t, s.Start())
		require.NoError(t, s.Stop())
	}
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
