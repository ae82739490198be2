package notify

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

// beeepNotifier implements Notifier using the cross-platform beeep library.
type beeepNotifier struct {
	config Config
	notify func(title, message string) error
	alert  func(title, message string) error
}

func newBeeepNotifier(config Config) *beeepNotifier {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &beeepNotifier{
		config: config,
		notify: func(title, message string) error { return beeep.Notify(title, message, "") },
		alert:  func(title, message string) error { return beeep.Alert(title, message, "") },
	}
}

// Send shows the notification. Critical notifications also play the alert sound.
func (n *beeepNotifier) Send(ctx context.Context, notification Notification) error {
	if n.config.Disabled {
		return nil
	}

	title := notification.Title
	if n.config.AppName != "" {
		if title == "" {
			title = n.config.AppName
		} else {
			title = n.config.AppName + ": " + title
		}
	}
	send := n.notify
	if notification.Severity == SeverityCritical {
		send = n.alert
	}

	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- send(title, notification.Message) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}

// IsAvailable returns false when notifications are disabled; beeep handles
// platform detection itself.
func (n *beeepNotifier) IsAvailable() bool {
	return !n.config.Disabled
}
