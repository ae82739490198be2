// Package notify sends desktop notifications when long-running work such as
// client generation finishes.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Notification represents a notification to be displayed.
type Notification struct {
	Title    string
	Message  string
	Severity string
}

// Notifier delivers notifications to the OS.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
	IsAvailable() bool
}

// Config contains notification system configuration.
type Config struct {
	// AppName prefixes every title.
	AppName string
	// Timeout for a single Send.
	Timeout time.Duration
	// Disabled turns every Send into a no-op.
	Disabled bool
}

// DefaultConfig returns default notification configuration.
func DefaultConfig() Config {
	return Config{
		AppName: "OData Connect",
		Timeout: 5 * time.Second,
	}
}

// New creates the desktop notifier.
func New(config Config) Notifier {
	return newBeeepNotifier(config)
}

var (
	ErrNotificationFailed = errors.New("failed to send notification")
	ErrTimeout            = errors.New("notification timeout")
)

// GenerationFinished describes the outcome of generating a client for service.
func GenerationFinished(service string, warnings int, err error) Notification {
	switch {
	case err != nil:
		return Notification{
			Title:    service,
			Message:  fmt.Sprintf("Client generation failed: %v", err),
			Severity: SeverityCritical,
		}
	case warnings > 0:
		return Notification{
			Title:    service,
			Message:  fmt.Sprintf("Client generated with %d warning(s)", warnings),
			Severity: SeverityWarning,
		}
	default:
		return Notification{
			Title:    service,
			Message:  "Client generated",
			Severity: SeverityInfo,
		}
	}
}
