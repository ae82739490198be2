// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package browser

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"default", true},
		{"system", true},
		{"none", true},
		{"invalid", false},
		{"", false},
		{"chrome", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValid(tt.target), tt.target)
	}
}

func TestResolveTarget(t *testing.T) {
	assert.Equal(t, TargetNone, ResolveTarget(TargetNone))
	assert.Equal(t, TargetSystem, ResolveTarget(TargetDefault))
	assert.Equal(t, TargetSystem, ResolveTarget(TargetSystem))
	assert.Equal(t, TargetSystem, ResolveTarget(""))
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://learn.microsoft.com/odata/client/getting-started", false},
		{"http://localhost:8080", false},
		{"HTTPS://example.com", false},
		{"file:///etc/passwd", true},
		{"javascript:alert(1)", true},
		{"https://", true},
		{"not a url", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateURL(tt.url)
		if tt.wantErr {
			assert.Error(t, err, tt.url)
		} else {
			assert.NoError(t, err, tt.url)
		}
	}
}

func TestLaunchSyncOpens(t *testing.T) {
	var got string
	err := LaunchSync(context.Background(), LaunchOptions{
		URL:  "https://example.com/docs",
		Open: func(u string) error { got = u; return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs", got)
}

func TestLaunchSyncTargetNone(t *testing.T) {
	called := false
	err := LaunchSync(context.Background(), LaunchOptions{
		URL:    "https://example.com",
		Target: TargetNone,
		Open:   func(string) error { called = true; return nil },
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestLaunchSyncOpenError(t *testing.T) {
	err := LaunchSync(context.Background(), LaunchOptions{
		URL:  "https://example.com",
		Open: func(string) error { return errors.New("no display") },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}

func TestLaunchSyncTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	err := LaunchSync(context.Background(), LaunchOptions{
		URL:     "https://example.com",
		Timeout: 50 * time.Millisecond,
		Open:    func(string) error { <-release; return nil },
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLaunchRejectsBadScheme(t *testing.T) {
	err := Launch(LaunchOptions{URL: "file:///etc/passwd", Open: func(string) error {
		t.Fatal("opener must not be called")
		return nil
	}})
	assert.Error(t, err)
}

func TestLaunchReportsFailureToStderr(t *testing.T) {
	var mu sync.Mutex
	var stderr bytes.Buffer
	done := make(chan struct{})

	err := Launch(LaunchOptions{
		URL:    "https://example.com",
		Stderr: &lockedWriter{mu: &mu, w: &stderr, done: done},
		Open:   func(string) error { return errors.New("boom") },
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("launch failure was not reported")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, stderr.String(), "Could not open browser automatically")
}

func TestDisplayNames(t *testing.T) {
	assert.Equal(t, "default browser", GetTargetDisplayName(TargetDefault))
	assert.Equal(t, "none", GetTargetDisplayName(TargetNone))
	assert.Equal(t, "default, system, none", FormatValidTargets())
}

type lockedWriter struct {
	mu   *sync.Mutex
	w    *bytes.Buffer
	done chan struct{}
	once sync.Once
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	n, err := l.w.Write(p)
	l.mu.Unlock()
	l.once.Do(func() { close(l.done) })
	return n, err
}
