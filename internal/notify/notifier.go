// Package notify reports scheduler failures to an operator.
package notify

import (
	"context"
	"errors"
)

// Notification represents a notification message.
type Notification struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier is the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, notification Notification) error
}

// Multi fans a notification out to every notifier. All notifiers are tried
// and their errors joined.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
