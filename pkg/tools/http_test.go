package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetchRunsGetRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tool := NewHTTPFetch(2 * time.Second)
	out, err := tool.Run(context.Background(), map[string]any{"url": srv.URL})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, http.StatusOK, result["status_code"])
	assert.Equal(t, `{"ok":true}`, result["body"])
}

func TestHTTPFetchRejectsMissingURL(t *testing.T) {
	tool := NewHTTPFetch(time.Second)
	_, err := tool.Run(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestHTTPFetchRejectsLoopbackViaValidator(t *testing.T) {
	tool := NewHTTPFetch(time.Second)
	_, err := tool.Run(context.Background(), map[string]any{"url": "http://127.0.0.1:9/secret"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestHTTPFetchRejectsFileScheme(t *testing.T) {
	tool := NewHTTPFetch(time.Second)
	_, err := tool.Run(context.Background(), map[string]any{"url": "file:///etc/passwd"})
	require.Error(t, err)
}
