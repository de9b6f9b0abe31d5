package notify

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"
)

// WebhookConfig holds configuration for webhook notifications.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// WebhookNotifier posts notifications as JSON to an HTTP endpoint.
// The payload carries a "text" field so Slack-style incoming webhooks
// render it directly.
type WebhookNotifier struct {
	url  string
	http *resty.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebhookNotifier{
		url:  cfg.URL,
		http: resty.New().SetTimeout(timeout),
	}
}

// Close releases the HTTP client.
func (w *WebhookNotifier) Close() error {
	return w.http.Close()
}

// Send implements Notifier.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	res, err := w.http.R().
		WithContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"subject": n.Subject,
			"body":    n.Body,
			"text":    n.Subject + "\n" + n.Body,
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}

	if res.IsError() {
		return fmt.Errorf("webhook returned status %d", res.StatusCode())
	}

	return nil
}
