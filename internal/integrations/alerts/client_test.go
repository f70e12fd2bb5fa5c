package alerts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	return c
}

func TestNewClient_EmptyURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
}

func TestSetup_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/setup", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req setupRequest
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "/var/sounds", req.ResourceDir)
		require.Equal(t, 10, req.CooldownSeconds)

		_, _ = w.Write([]byte(`{"triggers":["drum","airhorn","sad-trombone"]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	triggers, err := c.Setup(context.Background(), "/var/sounds", 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, []string{"drum", "airhorn", "sad-trombone"}, triggers)
}

func TestSetup_NoTriggers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"triggers":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Setup(context.Background(), "/var/sounds", time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no triggers")
}

func TestSetup_EmptyResourceDir(t *testing.T) {
	c, err := NewClient("http://localhost:9999")
	require.NoError(t, err)
	_, err = c.Setup(context.Background(), " ", time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "resource dir")
}

func TestSetup_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(`device busy`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Setup(context.Background(), "/var/sounds", time.Second)
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 500, statusErr.HTTPStatusCode())
}

func TestPlay_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/play", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"trigger":"drum"}`, string(body))
		w.WriteHeader(204)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.Play(context.Background(), "drum"))
}

func TestPlay_EmptyTrigger(t *testing.T) {
	c, err := NewClient("http://localhost:9999")
	require.NoError(t, err)
	err = c.Play(context.Background(), " ")
	require.Error(t, err)
}

func TestPlay_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(409)
		_, _ = w.Write([]byte(`already playing`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.Play(context.Background(), "drum")
	require.Error(t, err)
	require.Contains(t, err.Error(), "409")
}
