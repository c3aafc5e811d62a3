// Package agent exposes a fixed set of typed commands to a conversational assistant.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"HeliumRecovery.monitor/internal/models"
	"HeliumRecovery.monitor/internal/thermo"
)

// Command names.
const (
	ComputePoint      = "compute_point"
	HistoricalSummary = "historical_summary"
	SendAlert         = "send_alert"
)

var (
	// ErrUnknownCommand is returned for a name outside the registry.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidInput is returned when a command input does not decode or validate.
	ErrInvalidInput = errors.New("invalid command input")
)

// Backend is what the commands read from and act on.
type Backend interface {
	Summary(ctx context.Context, metric string) (models.MetricSummary, error)
	Notify(ctx context.Context, message string) string
}

type handler func(ctx context.Context, input json.RawMessage) (any, error)

// Registry dispatches named commands to their handlers.
type Registry struct {
	backend  Backend
	validate *validator.Validate
	handlers map[string]handler
}

// NewRegistry creates the registry of supported commands.
func NewRegistry(backend Backend) *Registry {
	r := &Registry{backend: backend, validate: validator.New()}
	r.handlers = map[string]handler{
		ComputePoint:      r.computePoint,
		HistoricalSummary: r.historicalSummary,
		SendAlert:         r.sendAlert,
	}
	return r
}

// Names lists the supported commands, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs a command with its JSON input.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (any, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return h(ctx, input)
}

func (r *Registry) decode(input json.RawMessage, v any) error {
	if len(bytes.TrimSpace(input)) == 0 {
		input = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := r.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (r *Registry) computePoint(_ context.Context, input json.RawMessage) (any, error) {
	var in models.ComputePointInput
	if err := r.decode(input, &in); err != nil {
		return nil, err
	}
	out, err := thermo.ComputePoint(*in.TemperatureC, *in.PressurePSI)
	if err != nil {
		return nil, err
	}
	return models.ComputePointOutput{
		ZFactor:  round(out.ZFactor, 6),
		FvFactor: round(out.FvFactor, 6),
		VolumeM3: round(out.VolumeM3, 4),
	}, nil
}

func (r *Registry) historicalSummary(ctx context.Context, input json.RawMessage) (any, error) {
	var in models.HistoricalSummaryInput
	if err := r.decode(input, &in); err != nil {
		return nil, err
	}
	s, err := r.backend.Summary(ctx, in.MetricName)
	if err != nil {
		return nil, err
	}
	s.Mean = round(s.Mean, 4)
	s.Max = round(s.Max, 4)
	s.Min = round(s.Min, 4)
	return s, nil
}

func (r *Registry) sendAlert(ctx context.Context, input json.RawMessage) (any, error) {
	var in models.SendAlertInput
	if err := r.decode(input, &in); err != nil {
		return nil, err
	}
	return models.SendAlertOutput{Status: r.backend.Notify(ctx, in.Message)}, nil
}

func round(f float64, places int32) float64 {
	v, _ := decimal.NewFromFloat(f).Round(places).Float64()
	return v
}
