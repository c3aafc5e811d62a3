package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"HeliumRecovery.monitor/internal/models"
)

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	Name           string
	Subject        string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// Publisher is the part of a NATS connection the dispatcher needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

// NATSDispatcher publishes alerts as JSON on a subject.
type NATSDispatcher struct {
	conn    Publisher
	close   func()
	subject string
}

// NewNATSDispatcher connects to NATS.
func NewNATSDispatcher(cfg NATSConfig) (*NATSDispatcher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	d := NewNATSDispatcherFromConn(conn, cfg.Subject)
	d.close = conn.Close
	return d, nil
}

// NewNATSDispatcherFromConn wraps an existing connection.
func NewNATSDispatcherFromConn(conn Publisher, subject string) *NATSDispatcher {
	if subject == "" {
		subject = "helium.alerts"
	}
	return &NATSDispatcher{conn: conn, subject: subject}
}

// Dispatch publishes the alert and waits for the server to acknowledge the flush.
func (d *NATSDispatcher) Dispatch(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("alert not published: %w", err)
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	if err := d.conn.Publish(d.subject, payload); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return fmt.Errorf("failed to flush alert: %w", context.DeadlineExceeded)
		}
	}
	if err := d.conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("failed to flush alert: %w", err)
	}
	return nil
}

// Close closes the underlying connection if this dispatcher opened it.
func (d *NATSDispatcher) Close() {
	if d.close != nil {
		d.close()
	}
}
