package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		contentType string
		wantMessage string
	}{
		{
			name:        "Nested error object message wins",
			status:      http.StatusConflict,
			body:        `{"error":{"code":"DUPLICATE","message":"already ingested"},"message":"outer"}`,
			contentType: "application/json",
			wantMessage: "already ingested",
		},
		{
			name:        "String error field",
			status:      http.StatusBadRequest,
			body:        `{"error":"bad field"}`,
			contentType: "application/json",
			wantMessage: "bad field",
		},
		{
			name:        "Top-level message fallback",
			status:      http.StatusBadRequest,
			body:        `{"message":"missing asset_id"}`,
			contentType: "application/json",
			wantMessage: "missing asset_id",
		},
		{
			name:        "Status text when body is not JSON",
			status:      http.StatusBadGateway,
			body:        "<html>upstream died</html>",
			contentType: "text/html",
			wantMessage: "Bad Gateway",
		},
		{
			name:        "Status text when body is empty",
			status:      http.StatusInternalServerError,
			body:        "",
			contentType: "application/json",
			wantMessage: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL)

			_, err := c.Fetch(context.Background(), http.MethodGet, "/thing", nil, nil)
			require.Error(t, err)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok, "expected an APIError")
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestFetchSuccessfulNonJSONBodyReturnsRawText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("  OK \n"))
	}))
	defer srv.Close()

	c := New(srv.URL)

	result, err := c.Fetch(context.Background(), http.MethodGet, "/health", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "OK", result)
}

func TestFetchTransportFailureHasNoStatus(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := New(srv.URL)

	_, err := c.Fetch(context.Background(), http.MethodGet, "/thing", nil, nil)
	require.Error(t, err)

	_, ok := AsAPIError(err)
	assert.False(t, ok, "transport failures must not carry an HTTP status")
}

func TestRequestOptionHeaders(t *testing.T) {
	var got http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL)

	opts := &RequestOptions{
		RequestID:       "req-1",
		SourceID:        "portal-test",
		IngestionSource: "api",
		APIKey:          "secret",
	}

	_, err := c.Fetch(context.Background(), http.MethodPost, "/ingest", map[string]any{"a": 1}, opts)
	require.NoError(t, err)

	assert.Equal(t, "req-1", got.Get("X-Request-ID"))
	assert.Equal(t, "portal-test", got.Get("X-Source-ID"))
	assert.Equal(t, "api", got.Get("X-Ingestion-Source"))
	assert.Equal(t, "secret", got.Get("X-API-KEY"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
}

func TestHealthRejectsUnexpectedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`"DEGRADED"`))
	}))
	defer srv.Close()

	c := New(srv.URL)

	err := c.Health(context.Background())
	assert.Error(t, err)
}
