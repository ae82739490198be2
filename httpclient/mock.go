package httpclient

import (
	"context"
	"net/http"
	"sync"
)

// MockAuthenticator is a mock implementation of Authenticator for testing.
// It sets Header to Value on each request unless Error is configured.
type MockAuthenticator struct {
	Header string
	Value  string
	Error  error

	mu    sync.Mutex
	calls int
}

// Authenticate applies the configured header or returns the configured error.
func (m *MockAuthenticator) Authenticate(ctx context.Context, req *http.Request) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Error != nil {
		return m.Error
	}
	if m.Header != "" {
		req.Header.Set(m.Header, m.Value)
	}
	return nil
}

// Calls returns how many times Authenticate was invoked.
func (m *MockAuthenticator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
