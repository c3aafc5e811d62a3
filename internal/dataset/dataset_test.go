package dataset

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HeliumRecovery.monitor/internal/models"
)

var t0 = time.Date(2026, 1, 13, 8, 0, 0, 0, time.UTC)

func feed() []models.RawReading {
	return []models.RawReading{
		{ID: uuid.New(), Timestamp: t0.Add(2 * time.Hour), TemperatureC: "20", PressurePSIGauge: "950"},
		{ID: uuid.New(), Timestamp: t0, TemperatureC: "20", PressurePSIGauge: "1000"},
		{ID: uuid.New(), Timestamp: t0.Add(time.Hour), TemperatureC: "oops", PressurePSIGauge: "990"},
		{ID: uuid.New(), Timestamp: t0.Add(3 * time.Hour), TemperatureC: "20", PressurePSIGauge: "950"},
	}
}

func assertSorted(t *testing.T, readings []models.Reading) {
	t.Helper()
	for i := 1; i < len(readings); i++ {
		assert.False(t, readings[i].Timestamp.Before(readings[i-1].Timestamp), "row %d out of order", i)
	}
}

func TestNew(t *testing.T) {
	raws := feed()

	d, res := New(raws)

	require.Equal(t, 3, d.Len())
	assert.Equal(t, 1, res.Dropped)
	readings := d.Readings()
	assertSorted(t, readings)
	assert.Equal(t, raws[1].ID, readings[0].ID)
	assert.Zero(t, readings[0].DeltaM3)
	assert.Greater(t, readings[1].AbsConsumptionM3, 0.0)
	assert.Zero(t, readings[2].AbsConsumptionM3)
}

func TestRecompute(t *testing.T) {
	t.Run("should report no change for its own projection", func(t *testing.T) {
		d, _ := New(feed())
		before := d.Readings()

		res, err := d.Recompute(d.Projection())

		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Equal(t, before, d.Readings())
	})

	t.Run("should be idempotent after an edit", func(t *testing.T) {
		d, _ := New(feed())
		edits := d.Projection()
		edits[1].PressurePSIGauge = "900"

		first, err := d.Recompute(edits)
		require.NoError(t, err)
		second, err := d.Recompute(edits)
		require.NoError(t, err)

		assert.True(t, first.Changed)
		assert.False(t, second.Changed)
	})

	t.Run("should recompute consumption after a pressure edit", func(t *testing.T) {
		d, _ := New(feed())
		edits := d.Projection()
		edits[1].PressurePSIGauge = edits[0].PressurePSIGauge

		_, err := d.Recompute(edits[1:2])
		require.NoError(t, err)

		readings := d.Readings()
		assert.Equal(t, readings[0].VolumeM3, readings[1].VolumeM3)
		assert.Zero(t, readings[1].AbsConsumptionM3)
		assert.Greater(t, readings[2].AbsConsumptionM3, 0.0)
	})

	t.Run("should keep time order when an edit moves a reading", func(t *testing.T) {
		d, _ := New(feed())
		edits := d.Projection()
		moved := edits[2]
		moved.Timestamp = t0.Add(-time.Hour)

		_, err := d.Recompute([]models.ReadingEdit{moved})
		require.NoError(t, err)

		readings := d.Readings()
		assertSorted(t, readings)
		assert.Equal(t, moved.ID, readings[0].ID)
		assert.Zero(t, readings[0].DeltaM3)
	})

	t.Run("should drop a reading edited to non-numeric text", func(t *testing.T) {
		d, _ := New(feed())
		edits := d.Projection()
		edits[1].TemperatureC = "abc"

		res, err := d.Recompute(edits)

		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, 1, res.Dropped)
		assert.Equal(t, 2, d.Len())
		for _, r := range d.Readings() {
			assert.NotEqual(t, edits[1].ID, r.ID)
		}
	})

	t.Run("should leave the dataset untouched on an unknown id", func(t *testing.T) {
		d, _ := New(feed())
		before := d.Readings()
		edits := d.Projection()
		edits[0].PressurePSIGauge = "1"
		edits = append(edits, models.ReadingEdit{ID: uuid.New(), Timestamp: t0, TemperatureC: "1", PressurePSIGauge: "1"})

		_, err := d.Recompute(edits)

		assert.ErrorIs(t, err, ErrUnknownReading)
		assert.Equal(t, before, d.Readings())
	})

	t.Run("should reject an edit without a timestamp", func(t *testing.T) {
		d, _ := New(feed())
		edit := d.Projection()[0]
		edit.Timestamp = time.Time{}

		_, err := d.Recompute([]models.ReadingEdit{edit})

		assert.ErrorIs(t, err, ErrInvalidEdit)
	})
}

func countID(readings []models.Reading, id uuid.UUID) int {
	n := 0
	for _, r := range readings {
		if r.ID == id {
			n++
		}
	}
	return n
}

func TestAppend(t *testing.T) {
	t.Run("should add and sort new readings", func(t *testing.T) {
		d, _ := New(feed())

		res, err := d.Append([]models.RawReading{
			{Timestamp: t0.Add(30 * time.Minute), TemperatureC: "20", PressurePSIGauge: "975"},
		})

		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, 4, d.Len())
		readings := d.Readings()
		assertSorted(t, readings)
		assert.NotEqual(t, uuid.Nil, readings[1].ID)
		assert.Equal(t, 975.0, readings[1].PressurePSIGauge)
	})

	t.Run("should reject an id already in the dataset", func(t *testing.T) {
		d, _ := New(feed())
		existing := d.Readings()[0].ID
		before := d.Readings()

		_, err := d.Append([]models.RawReading{
			{ID: existing, Timestamp: t0.Add(4 * time.Hour), TemperatureC: "20", PressurePSIGauge: "500"},
		})

		assert.ErrorIs(t, err, ErrDuplicateReading)
		assert.Equal(t, before, d.Readings())
		assert.Equal(t, 1, countID(d.Readings(), existing))
	})

	t.Run("should reject an id repeated within the batch", func(t *testing.T) {
		d, _ := New(feed())
		id := uuid.New()

		_, err := d.Append([]models.RawReading{
			{ID: id, Timestamp: t0.Add(4 * time.Hour), TemperatureC: "20", PressurePSIGauge: "940"},
			{ID: id, Timestamp: t0.Add(5 * time.Hour), TemperatureC: "20", PressurePSIGauge: "930"},
		})

		assert.ErrorIs(t, err, ErrDuplicateReading)
		assert.Equal(t, 3, d.Len())
		assert.Zero(t, countID(d.Readings(), id))
	})

	t.Run("should keep edits matched to one reading after appends", func(t *testing.T) {
		d, _ := New(feed())
		id := uuid.New()
		_, err := d.Append([]models.RawReading{{ID: id, Timestamp: t0.Add(4 * time.Hour), TemperatureC: "20", PressurePSIGauge: "940"}})
		require.NoError(t, err)
		_, err = d.Append([]models.RawReading{{ID: id, Timestamp: t0.Add(5 * time.Hour), TemperatureC: "20", PressurePSIGauge: "1000"}})
		require.ErrorIs(t, err, ErrDuplicateReading)

		_, err = d.Recompute([]models.ReadingEdit{{ID: id, Timestamp: t0.Add(4 * time.Hour), TemperatureC: "20", PressurePSIGauge: "500"}})

		require.NoError(t, err)
		readings := d.Readings()
		require.Equal(t, 1, countID(readings, id))
		assert.Equal(t, 500.0, readings[len(readings)-1].PressurePSIGauge)
	})
}

func TestView(t *testing.T) {
	raws := []models.RawReading{
		{ID: uuid.New(), Timestamp: t0.Add(-10 * 24 * time.Hour), TemperatureC: "20", PressurePSIGauge: "1000"},
		{ID: uuid.New(), Timestamp: t0.Add(-3 * 24 * time.Hour), TemperatureC: "20", PressurePSIGauge: "990"},
		{ID: uuid.New(), Timestamp: t0.Add(-time.Hour), TemperatureC: "20", PressurePSIGauge: "980"},
	}
	d, _ := New(raws)

	assert.Len(t, d.View(WindowAll, t0), 3)
	assert.Len(t, d.View(WindowWeek, t0), 2)
	assert.Len(t, d.View(WindowDay, t0), 1)

	day := d.View(WindowDay, t0)
	day[0].VolumeM3 = -1
	latest, ok := d.Latest()
	require.True(t, ok)
	assert.NotEqual(t, -1.0, latest.VolumeM3)

	_, err := ParseWindow("1y")
	assert.Error(t, err)
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowAll, w)
}

func TestSummary(t *testing.T) {
	d, _ := New(feed())

	s, err := d.Summary("pressure_psi_gauge")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1000.0, s.Max)
	assert.Equal(t, 950.0, s.Min)
	assert.InDelta(t, 966.6667, s.Mean, 1e-3)

	_, err = d.Summary("bogus")
	assert.ErrorIs(t, err, ErrUnknownMetric)

	empty, _ := New(nil)
	s, err = empty.Summary("volume_m3")
	require.NoError(t, err)
	assert.Zero(t, s.Count)
}

func TestWriteCSV(t *testing.T) {
	d, _ := New(feed())
	var buf bytes.Buffer

	require.NoError(t, d.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "timestamp", records[0][0])
	assert.Equal(t, "abs_consumption_m3", records[0][len(records[0])-1])
	assert.Equal(t, "2026-01-13 08:00:00", records[1][0])
	assert.Equal(t, "1000", records[1][2])
}
