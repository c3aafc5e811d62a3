// Package dispatch delivers consumption alerts to operators.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"HeliumRecovery.monitor/internal/models"
)

// Dispatcher delivers one alert.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert models.Alert) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, alert models.Alert) error

func (f DispatcherFunc) Dispatch(ctx context.Context, alert models.Alert) error {
	return f(ctx, alert)
}

// Multi sends to every dispatcher and joins their errors. One failed channel does not
// stop the others.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogDispatcher writes the alert to the process log.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, alert models.Alert) error {
	log.Printf("ALERT %s", alert.Message)
	return nil
}

// Status strings reported back to the operator.
const (
	StatusDelivered = "✅ Alert delivered"
	statusFailed    = "⚠️ Alert delivery failed"
)

// Notifier turns dispatch outcomes into operator-facing status text. It never fails.
type Notifier struct {
	dispatcher Dispatcher
}

// NewNotifier creates a Notifier. A nil dispatcher only logs.
func NewNotifier(d Dispatcher) *Notifier {
	if d == nil {
		d = LogDispatcher{}
	}
	return &Notifier{dispatcher: d}
}

// Send dispatches the alert and describes the outcome.
func (n *Notifier) Send(ctx context.Context, alert models.Alert) string {
	if err := n.dispatcher.Dispatch(ctx, alert); err != nil {
		log.Printf("❌ Alert dispatch failed: %v", err)
		return fmt.Sprintf("%s: %v", statusFailed, err)
	}
	return StatusDelivered
}
