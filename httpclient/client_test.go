package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Execute_RetryOn5xx(t *testing.T) {
	var attemptCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attemptCount.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`<error>internal server error</error>`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<ok/>`))
	}))
	defer server.Close()

	client := NewClient(nil, false, 30*time.Second)

	resp, err := client.Execute(context.Background(), RequestOptions{
		Method: http.MethodGet,
		URL:    server.URL + "/test",
		Retry:  3,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attemptCount.Load(), "Should have retried 2 times (3 total attempts)")
}

func TestClient_Execute_NoRetryByDefault(t *testing.T) {
	var attemptCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(nil, false, 30*time.Second)

	resp, err := client.Execute(context.Background(), RequestOptions{URL: server.URL})

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), attemptCount.Load())
}

func TestClient_Execute_RetryOnNetworkError(t *testing.T) {
	client := NewClient(nil, false, 1*time.Second)

	_, err := client.Execute(context.Background(), RequestOptions{
		Method: http.MethodGet,
		URL:    "https://192.0.2.0/invalid", // TEST-NET-1, never routable
		Retry:  2,
	})

	assert.Error(t, err)
}

func TestClient_Execute_NoRetryOn4xx(t *testing.T) {
	var attemptCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(nil, false, 30*time.Second)

	resp, err := client.Execute(context.Background(), RequestOptions{
		URL:   server.URL + "/test",
		Retry: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), attemptCount.Load(), "Should not retry on 4xx errors")
}

func TestClient_Execute_RetryExponentialBackoff(t *testing.T) {
	var attemptCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(nil, false, 30*time.Second)

	start := time.Now()
	resp, err := client.Execute(context.Background(), RequestOptions{
		URL:   server.URL + "/test",
		Retry: 2,
	})
	duration := time.Since(start)

	require.NoError(t, err, "5xx responses should not cause errors, just retries")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(3), attemptCount.Load())
	assert.GreaterOrEqual(t, duration, 100*time.Millisecond, "Should have taken some time for retries")
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "Timeout error", err: fmt.Errorf("context deadline exceeded"), expected: true},
		{name: "Connection refused", err: fmt.Errorf("connection refused"), expected: true},
		{name: "Network unreachable", err: fmt.Errorf("network is unreachable"), expected: true},
		{name: "DNS failure", err: fmt.Errorf("dial tcp: lookup nope.invalid: no such host"), expected: true},
		{name: "Non-retryable error", err: fmt.Errorf("invalid argument"), expected: false},
		{name: "Nil error", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryableError(tt.err))
		})
	}
}

func TestClient_Execute_ResponseSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	client := NewClient(nil, false, 30*time.Second)

	_, err := client.Execute(context.Background(), RequestOptions{
		URL:             server.URL,
		MaxResponseSize: 1024,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum size")
}

func TestClient_Execute_ResponseSizeWithinLimit(t *testing.T) {
	body := make([]byte, 1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer server.Close()

	client := NewClient(nil, false, 30*time.Second)

	resp, err := client.Execute(context.Background(), RequestOptions{
		URL:             server.URL,
		MaxResponseSize: 1024,
	})

	require.NoError(t, err)
	assert.Len(t, resp.Body, len(body))
}

func TestClient_Authentication(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
	}))
	defer server.Close()

	t.Run("applies authenticator", func(t *testing.T) {
		auth := &MockAuthenticator{Header: "Authorization", Value: "Basic dGVzdDp0ZXN0"}
		client := NewClient(auth, false, 5*time.Second)

		_, err := client.Execute(context.Background(), RequestOptions{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, "Basic dGVzdDp0ZXN0", gotAuth.Load())
		assert.Equal(t, 1, auth.Calls())
	})

	t.Run("skip auth", func(t *testing.T) {
		auth := &MockAuthenticator{Header: "Authorization", Value: "Basic x"}
		client := NewClient(auth, false, 5*time.Second)

		_, err := client.Execute(context.Background(), RequestOptions{URL: server.URL, SkipAuth: true})
		require.NoError(t, err)
		assert.Equal(t, "", gotAuth.Load())
		assert.Zero(t, auth.Calls())
	})

	t.Run("authenticator error", func(t *testing.T) {
		authErr := errors.New("no credentials")
		client := NewClient(&MockAuthenticator{Error: authErr}, false, 5*time.Second)

		_, err := client.Execute(context.Background(), RequestOptions{URL: server.URL})
		require.Error(t, err)
		assert.ErrorIs(t, err, authErr)
		assert.Contains(t, err.Error(), "failed to authenticate request")
	})

	t.Run("basic auth", func(t *testing.T) {
		client := NewClient(BasicAuth("alice", func() string { return "s3cret" }), false, 5*time.Second)

		_, err := client.Execute(context.Background(), RequestOptions{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, "Basic YWxpY2U6czNjcmV0", gotAuth.Load())
	})
}

func TestClient_ClearHeaders(t *testing.T) {
	var got atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Clone())
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(nil, false, 5*time.Second)

	_, err := client.Execute(context.Background(), RequestOptions{URL: server.URL})
	require.NoError(t, err)
	defaults := got.Load().(http.Header)
	assert.NotEmpty(t, defaults.Get("User-Agent"), "default User-Agent expected")
	assert.Equal(t, "gzip", defaults.Get("Accept-Encoding"), "default Accept-Encoding expected")

	resp, err := client.Execute(context.Background(), RequestOptions{
		URL:          server.URL,
		ClearHeaders: true,
		Headers:      map[string]string{"Cookie": "FedAuth=a; rtFa=b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, http.Header{"Cookie": {"FedAuth=a; rtFa=b"}}, got.Load().(http.Header))

	_, err = client.Execute(context.Background(), RequestOptions{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "gzip", got.Load().(http.Header).Get("Accept-Encoding"), "other requests keep compression")
}

func TestClient_Stream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "no such service", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("<edmx/>"))
	}))
	defer server.Close()

	client := NewClient(nil, false, 5*time.Second)

	t.Run("success", func(t *testing.T) {
		resp, err := client.Stream(context.Background(), RequestOptions{URL: server.URL + "/ok"})
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "<edmx/>", string(body))
	})

	t.Run("error status", func(t *testing.T) {
		_, err := client.Stream(context.Background(), RequestOptions{URL: server.URL + "/missing"})
		require.Error(t, err)
		assert.True(t, IsHTTPError(err, http.StatusNotFound))
		assert.Equal(t, http.StatusNotFound, StatusCode(err))
		assert.Contains(t, err.Error(), "no such service")
	})
}

func TestClient_NoRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(nil, false, 5*time.Second)

	resp, err := client.Execute(context.Background(), RequestOptions{URL: server.URL + "/start"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Execute(context.Background(), RequestOptions{URL: server.URL + "/start", NoRedirect: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestClient_CircuitBreaker(t *testing.T) {
	var attemptCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptCount.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClientWithOptions(nil, Options{
		Timeout:         5 * time.Second,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	})

	for i := 0; i < 2; i++ {
		resp, err := client.Execute(context.Background(), RequestOptions{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}

	_, err := client.Execute(context.Background(), RequestOptions{URL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, int32(2), attemptCount.Load())
}

func TestClient_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClientWithOptions(nil, Options{Timeout: 5 * time.Second, RateLimit: 2})

	start := time.Now()
	for i := 0; i < 4; i++ {
		_, err := client.Execute(context.Background(), RequestOptions{URL: server.URL})
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(nil, false, 5*time.Second)
	_, err := client.Execute(ctx, RequestOptions{URL: server.URL, Retry: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_PerRequestAuth(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
	}))
	defer server.Close()

	client := NewClient(&MockAuthenticator{Header: "Authorization", Value: "client"}, false, 5*time.Second)

	_, err := client.Execute(context.Background(), RequestOptions{
		URL:  server.URL,
		Auth: &MockAuthenticator{Header: "Authorization", Value: "request"},
	})
	require.NoError(t, err)
	assert.Equal(t, "request", gotAuth.Load())
}
