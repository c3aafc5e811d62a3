package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeliumRecovery.monitor/internal/dataset"
	"HeliumRecovery.monitor/internal/models"
	"HeliumRecovery.monitor/internal/thermo"
)

type fakeBackend struct {
	messages []string
}

func (b *fakeBackend) Summary(_ context.Context, metric string) (models.MetricSummary, error) {
	if metric != "volume_m3" {
		return models.MetricSummary{}, fmt.Errorf("%w: %q", dataset.ErrUnknownMetric, metric)
	}
	return models.MetricSummary{Metric: metric, Mean: 834.756789, Max: 855.2, Min: 814.3, Count: 2}, nil
}

func (b *fakeBackend) Notify(_ context.Context, message string) string {
	b.messages = append(b.messages, message)
	return "✅ Alert delivered"
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	r := NewRegistry(backend)

	t.Run("should list the commands", func(t *testing.T) {
		assert.Equal(t, []string{ComputePoint, HistoricalSummary, SendAlert}, r.Names())
	})

	t.Run("should compute a point", func(t *testing.T) {
		out, err := r.Execute(ctx, ComputePoint, json.RawMessage(`{"temperature_c": 21.11, "pressure_psi": 0}`))
		require.NoError(t, err)

		point := out.(models.ComputePointOutput)
		assert.InDelta(t, 12.744, point.VolumeM3, 0.01)
		assert.InDelta(t, 1.0, point.ZFactor, 0.001)
	})

	t.Run("should give the same answer every time", func(t *testing.T) {
		in := json.RawMessage(`{"temperature_c": 20, "pressure_psi": 1000}`)
		a, err := r.Execute(ctx, ComputePoint, in)
		require.NoError(t, err)
		b, err := r.Execute(ctx, ComputePoint, in)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("should require both compute inputs", func(t *testing.T) {
		_, err := r.Execute(ctx, ComputePoint, json.RawMessage(`{"temperature_c": 20}`))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("should reject unknown fields", func(t *testing.T) {
		_, err := r.Execute(ctx, ComputePoint, json.RawMessage(`{"temperature_c": 20, "pressure_psi": 1, "unit": "bar"}`))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("should surface a degenerate point", func(t *testing.T) {
		_, err := r.Execute(ctx, ComputePoint, json.RawMessage(`{"temperature_c": 20, "pressure_psi": 1e308}`))
		assert.ErrorIs(t, err, thermo.ErrNonFiniteResult)
	})

	t.Run("should summarise a metric", func(t *testing.T) {
		out, err := r.Execute(ctx, HistoricalSummary, json.RawMessage(`{"metric_name": "volume_m3"}`))
		require.NoError(t, err)

		s := out.(models.MetricSummary)
		assert.Equal(t, 834.7568, s.Mean)
		assert.Equal(t, 2, s.Count)

		_, err = r.Execute(ctx, HistoricalSummary, json.RawMessage(`{"metric_name": "colour"}`))
		assert.ErrorIs(t, err, dataset.ErrUnknownMetric)
	})

	t.Run("should send an alert", func(t *testing.T) {
		out, err := r.Execute(ctx, SendAlert, json.RawMessage(`{"message": "check valve 3"}`))
		require.NoError(t, err)
		assert.Equal(t, "✅ Alert delivered", out.(models.SendAlertOutput).Status)
		assert.Equal(t, []string{"check valve 3"}, backend.messages)

		_, err = r.Execute(ctx, SendAlert, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("should reject unknown commands", func(t *testing.T) {
		_, err := r.Execute(ctx, "drop_tables", nil)
		assert.ErrorIs(t, err, ErrUnknownCommand)
	})
}
