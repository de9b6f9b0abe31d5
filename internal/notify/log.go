package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs with logger, or the default
// logger when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send implements Notifier.
func (l *LogNotifier) Send(ctx context.Context, n Notification) error {
	l.logger.WarnContext(ctx, "notification",
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}
