// Package session runs the monitor's event pipeline: every load, reload, edit or append
// recomputes the dataset, evaluates the newest reading and dispatches alerts.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"HeliumRecovery.monitor/internal/anomaly"
	"HeliumRecovery.monitor/internal/dataset"
	"HeliumRecovery.monitor/internal/dispatch"
	"HeliumRecovery.monitor/internal/ingest"
	"HeliumRecovery.monitor/internal/models"
	"HeliumRecovery.monitor/internal/source"
)

// ErrNotLoaded is returned when there is no dataset and none could be built.
var ErrNotLoaded = errors.New("dataset not loaded")

// Sink receives the full dataset after every change.
type Sink interface {
	WriteReadings(ctx context.Context, readings []models.Reading) error
}

// Broadcaster announces dataset changes to connected clients.
type Broadcaster interface {
	Broadcast(event models.RefreshEvent)
}

// Options wires a Session. Fetcher is required.
type Options struct {
	Fetcher     source.Fetcher
	Evaluator   *anomaly.Evaluator
	Notifier    *dispatch.Notifier
	Sink        Sink
	Broadcaster Broadcaster
	// Clock returns the wall-clock time views are relative to.
	Clock func() time.Time
}

// Session holds the canonical dataset of one monitor and serialises every event on it.
type Session struct {
	fetcher     source.Fetcher
	evaluator   *anomaly.Evaluator
	notifier    *dispatch.Notifier
	sink        Sink
	broadcaster Broadcaster
	clock       func() time.Time

	mu   sync.Mutex
	data *dataset.Dataset
}

// New creates a Session. The dataset is built lazily on the first event.
func New(opts Options) *Session {
	s := &Session{
		fetcher:     opts.Fetcher,
		evaluator:   opts.Evaluator,
		notifier:    opts.Notifier,
		sink:        opts.Sink,
		broadcaster: opts.Broadcaster,
		clock:       opts.Clock,
	}
	if s.evaluator == nil {
		s.evaluator = anomaly.NewEvaluator(anomaly.DefaultThresholdM3)
	}
	if s.notifier == nil {
		s.notifier = dispatch.NewNotifier(nil)
	}
	if s.clock == nil {
		s.clock = func() time.Time { return ingest.Naive(time.Now()) }
	}
	return s
}

// Evaluator returns the session's anomaly evaluator.
func (s *Session) Evaluator() *anomaly.Evaluator {
	return s.evaluator
}

// Load builds the dataset from the feed if it is not built yet.
func (s *Session) Load(ctx context.Context) (models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		return s.outcome(ctx, dataset.Result{Rows: s.data.Len()}), nil
	}
	return s.loadLocked(ctx)
}

// Reload drops the cached feed and the dataset, then builds the dataset again. If the
// feed cannot be fetched the session is left without a dataset.
func (s *Session) Reload(ctx context.Context) (models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fetcher.Invalidate(ctx); err != nil {
		log.Printf("⚠️ %v", err)
	}
	s.data = nil
	return s.loadLocked(ctx)
}

// SubmitEdits applies an edited view to the dataset.
func (s *Session) SubmitEdits(ctx context.Context, edits []models.ReadingEdit) (models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return models.Outcome{}, err
	}
	res, err := s.data.Recompute(edits)
	if err != nil {
		return models.Outcome{}, err
	}
	return s.outcome(ctx, res), nil
}

// Append adds readings to the dataset.
func (s *Session) Append(ctx context.Context, raws []models.RawReading) (models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return models.Outcome{}, err
	}
	res, err := s.data.Append(raws)
	if err != nil {
		return models.Outcome{}, err
	}
	return s.outcome(ctx, res), nil
}

// View returns the readings within the window, flagged against the alert threshold.
func (s *Session) View(ctx context.Context, w dataset.Window) ([]models.ViewReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}
	return s.evaluator.Flag(s.data.View(w, s.clock())), nil
}

// KPI summarises the newest reading within the window. It reports false for an empty view.
func (s *Session) KPI(ctx context.Context, w dataset.Window) (models.KPI, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return models.KPI{}, false, err
	}
	view := s.data.View(w, s.clock())
	if len(view) == 0 {
		return models.KPI{}, false, nil
	}
	return s.evaluator.KPIFor(view[len(view)-1]), true, nil
}

// Summary aggregates one column over the whole dataset.
func (s *Session) Summary(ctx context.Context, metric string) (models.MetricSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return models.MetricSummary{}, err
	}
	return s.data.Summary(metric)
}

// ExportCSV writes the whole dataset.
func (s *Session) ExportCSV(ctx context.Context, w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}
	return s.data.WriteCSV(w)
}

// Notify sends a free-form alert and returns the delivery status.
func (s *Session) Notify(ctx context.Context, message string) string {
	return s.notifier.Send(ctx, models.Alert{Timestamp: s.clock(), Message: message})
}

func (s *Session) ensureLoadedLocked(ctx context.Context) error {
	if s.data != nil {
		return nil
	}
	_, err := s.loadLocked(ctx)
	return err
}

func (s *Session) loadLocked(ctx context.Context) (models.Outcome, error) {
	raws, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("%w: %w", ErrNotLoaded, err)
	}
	data, res := dataset.New(raws)
	if res.Dropped > 0 {
		log.Printf("Dropped %d feed reading(s) that failed validation", res.Dropped)
	}
	s.data = data
	log.Printf("✅ Dataset loaded with %d reading(s)", res.Rows)
	return s.outcome(ctx, res), nil
}

// outcome runs the steps that follow every pass: persist, announce, evaluate, dispatch.
func (s *Session) outcome(ctx context.Context, res dataset.Result) models.Outcome {
	out := models.Outcome{Changed: res.Changed, Rows: res.Rows, Dropped: res.Dropped}

	if res.Changed {
		if s.sink != nil {
			if err := s.sink.WriteReadings(ctx, s.data.Readings()); err != nil {
				log.Printf("❌ Failed to export dataset: %v", err)
			}
		}
		if s.broadcaster != nil {
			s.broadcaster.Broadcast(models.RefreshEvent{
				Type: models.RefreshEventType,
				Rows: res.Rows,
				At:   s.clock(),
			})
		}
	}

	latest, ok := s.data.Latest()
	if !ok {
		return out
	}
	if alert, fire := s.evaluator.Evaluate(latest); fire {
		out.Alert = &alert
		out.DispatchStatus = s.notifier.Send(ctx, alert)
	}
	return out
}
