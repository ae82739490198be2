// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package browser

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	pkgbrowser "github.com/pkg/browser"
)

// Target represents the browser target for launching URLs.
type Target string

const (
	// TargetDefault uses the system default browser
	TargetDefault Target = "default"
	// TargetSystem uses the system default browser (alias for TargetDefault)
	TargetSystem Target = "system"
	// TargetNone disables browser launching
	TargetNone Target = "none"
)

// DefaultTimeout bounds a synchronous launch.
const DefaultTimeout = 5 * time.Second

// ValidTargets returns all valid browser target values.
func ValidTargets() []Target {
	return []Target{TargetDefault, TargetSystem, TargetNone}
}

// IsValid checks if a target string is valid.
func IsValid(target string) bool {
	t := Target(target)
	for _, valid := range ValidTargets() {
		if t == valid {
			return true
		}
	}
	return false
}

// ResolveTarget converts "default" to "system" and respects "none".
func ResolveTarget(target Target) Target {
	if target == TargetNone {
		return TargetNone
	}
	return TargetSystem
}

// Opener opens a URL. It is replaced in tests.
type Opener func(url string) error

// LaunchOptions contains options for launching a browser.
type LaunchOptions struct {
	URL     string
	Target  Target
	Timeout time.Duration
	// Open defaults to github.com/pkg/browser.OpenURL.
	Open Opener
	// Stderr receives launch failures. Defaults to os.Stderr.
	Stderr io.Writer
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("invalid URL scheme: URL must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}
	return nil
}

// Launch opens the URL without blocking. Failures after validation are
// reported to Stderr only.
func Launch(opts LaunchOptions) error {
	if err := ValidateURL(opts.URL); err != nil {
		return err
	}
	if ResolveTarget(opts.Target) == TargetNone {
		return nil
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	go func() {
		if err := LaunchSync(context.Background(), opts); err != nil {
			_, _ = fmt.Fprintf(stderr, "⚠️  Could not open browser automatically: %v\n", err)
		}
	}()
	return nil
}

// LaunchSync opens the URL and waits for the opener to return or the
// timeout to elapse.
func LaunchSync(ctx context.Context, opts LaunchOptions) error {
	if err := ValidateURL(opts.URL); err != nil {
		return err
	}
	if ResolveTarget(opts.Target) == TargetNone {
		return nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	open := opts.Open
	if open == nil {
		open = openURL
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- open(opts.URL) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", opts.URL, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser launch: %w", ctx.Err())
	}
}

func init() {
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard
}

func openURL(u string) error {
	return pkgbrowser.OpenURL(u)
}

// GetTargetDisplayName returns a human-readable name for the browser target.
func GetTargetDisplayName(target Target) string {
	if ResolveTarget(target) == TargetNone {
		return "none"
	}
	return "default browser"
}

// FormatValidTargets returns a comma-separated list of valid targets.
func FormatValidTargets() string {
	targets := ValidTargets()
	strs := make([]string, len(targets))
	for i, t := range targets {
		strs[i] = string(t)
	}
	return strings.Join(strs, ", ")
}
