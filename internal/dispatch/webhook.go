package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"HeliumRecovery.monitor/internal/models"
)

// webhookBody is accepted by Slack-style incoming webhooks and chat bots alike.
type webhookBody struct {
	Text  string       `json:"text"`
	Alert models.Alert `json:"alert"`
}

// WebhookDispatcher posts alerts to an HTTP endpoint behind a circuit breaker.
type WebhookDispatcher struct {
	client  *resty.Client
	url     string
	breaker *Breaker
}

// NewWebhookDispatcher creates a WebhookDispatcher.
func NewWebhookDispatcher(url string, timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		client: resty.New().SetTimeout(timeout),
		url:    url,
		breaker: NewBreaker(BreakerConfig{
			Name:        "alert-webhook",
			MaxFailures: 3,
			Timeout:     time.Minute,
			HalfOpenMax: 1,
			OnStateChange: func(name string, from, to State) {
				log.Printf("Circuit %s: %s -> %s", name, from, to)
			},
		}),
	}
}

// Dispatch posts the alert.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, alert models.Alert) error {
	return d.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(webhookBody{Text: alert.Message, Alert: alert}).
			Post(d.url)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("webhook returned %d", resp.StatusCode())
		}
		return nil
	})
}
