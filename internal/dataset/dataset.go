// Package dataset owns the canonical, fully recomputed list of vessel readings.
package dataset

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"HeliumRecovery.monitor/internal/consumption"
	"HeliumRecovery.monitor/internal/ingest"
	"HeliumRecovery.monitor/internal/models"
	"HeliumRecovery.monitor/internal/thermo"
)

var (
	// ErrUnknownReading is returned when an edit names a reading the dataset does not hold.
	ErrUnknownReading = errors.New("unknown reading")
	// ErrInvalidEdit is returned when an edit lacks its id or timestamp.
	ErrInvalidEdit = errors.New("invalid edit")
	// ErrUnknownMetric is returned by Summary for a column it does not know.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrDuplicateReading is returned when an appended reading reuses an id already taken.
	ErrDuplicateReading = errors.New("duplicate reading id")
)

// Result describes one pass over the dataset.
type Result struct {
	Changed bool
	Rows    int
	Dropped int
}

// Dataset is the canonical reading list of one session. It is sorted by timestamp and every
// derived column reflects the current raw columns. It is not safe for concurrent use.
type Dataset struct {
	readings []models.Reading
	validate *validator.Validate
}

// New builds a dataset from feed rows.
func New(raws []models.RawReading) (*Dataset, Result) {
	d := &Dataset{validate: validator.New()}
	readings, dropped := build(raws)
	d.readings = readings
	return d, Result{Changed: true, Rows: len(readings), Dropped: dropped}
}

// Recompute merges the edited rows into the dataset by id and recomputes every derived
// column over the whole dataset. On error the dataset is left as it was.
func (d *Dataset) Recompute(edits []models.ReadingEdit) (Result, error) {
	index := make(map[uuid.UUID]int, len(d.readings))
	raws := make([]models.RawReading, len(d.readings))
	for i, r := range d.readings {
		index[r.ID] = i
		raws[i] = ingest.ToRaw(r)
	}

	for _, edit := range edits {
		if err := d.validate.Struct(edit); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidEdit, err)
		}
		i, ok := index[edit.ID]
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrUnknownReading, edit.ID)
		}
		raws[i] = models.RawReading{
			ID:               edit.ID,
			Timestamp:        edit.Timestamp,
			TemperatureC:     edit.TemperatureC,
			PressurePSIGauge: edit.PressurePSIGauge,
		}
	}

	return d.replace(raws), nil
}

// Append adds new readings and recomputes the dataset. Readings without an id get one; an
// id already in the dataset or repeated within the batch fails the whole append.
func (d *Dataset) Append(raws []models.RawReading) (Result, error) {
	all := make([]models.RawReading, 0, len(d.readings)+len(raws))
	taken := make(map[uuid.UUID]struct{}, len(d.readings)+len(raws))
	for _, r := range d.readings {
		all = append(all, ingest.ToRaw(r))
		taken[r.ID] = struct{}{}
	}
	for _, r := range raws {
		if err := d.validate.Struct(r); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidEdit, err)
		}
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		if _, dup := taken[r.ID]; dup {
			return Result{}, fmt.Errorf("%w: %s", ErrDuplicateReading, r.ID)
		}
		taken[r.ID] = struct{}{}
		all = append(all, r)
	}
	return d.replace(all), nil
}

func (d *Dataset) replace(raws []models.RawReading) Result {
	next, dropped := build(raws)
	if dropped > 0 {
		log.Printf("Dropped %d reading(s) that failed validation", dropped)
	}
	changed := !equalReadings(d.readings, next)
	d.readings = next
	return Result{Changed: changed, Rows: len(next), Dropped: dropped}
}

// build runs validation, the thermodynamic engine and the differencer over raw rows.
func build(raws []models.RawReading) ([]models.Reading, int) {
	valid, invalid := ingest.Filter(raws)
	computed, degenerate := thermo.Apply(valid)
	sort.SliceStable(computed, func(i, j int) bool {
		return computed[i].Timestamp.Before(computed[j].Timestamp)
	})
	consumption.Difference(computed)
	return computed, invalid + degenerate
}

func equalReadings(a, b []models.Reading) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID ||
			!a[i].Timestamp.Equal(b[i].Timestamp) ||
			a[i].TemperatureC != b[i].TemperatureC ||
			a[i].PressurePSIGauge != b[i].PressurePSIGauge ||
			a[i].Thermodynamics != b[i].Thermodynamics ||
			a[i].Consumption != b[i].Consumption {
			return false
		}
	}
	return true
}

// Len returns the number of readings.
func (d *Dataset) Len() int {
	return len(d.readings)
}

// Readings returns a copy of the canonical readings.
func (d *Dataset) Readings() []models.Reading {
	out := make([]models.Reading, len(d.readings))
	copy(out, d.readings)
	return out
}

// Projection returns the dataset in edited-view shape. Recomputing it unchanged is a no-op.
func (d *Dataset) Projection() []models.ReadingEdit {
	out := make([]models.ReadingEdit, len(d.readings))
	for i, r := range d.readings {
		raw := ingest.ToRaw(r)
		out[i] = models.ReadingEdit{
			ID:               raw.ID,
			Timestamp:        raw.Timestamp,
			TemperatureC:     raw.TemperatureC,
			PressurePSIGauge: raw.PressurePSIGauge,
		}
	}
	return out
}

// Latest returns the newest reading.
func (d *Dataset) Latest() (models.Reading, bool) {
	if len(d.readings) == 0 {
		return models.Reading{}, false
	}
	return d.readings[len(d.readings)-1], true
}

// Summary aggregates one numeric column. An empty dataset yields a zero count.
func (d *Dataset) Summary(metric string) (models.MetricSummary, error) {
	col, ok := findColumn(metric)
	if !ok {
		return models.MetricSummary{}, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	out := models.MetricSummary{Metric: metric, Count: len(d.readings)}
	if out.Count == 0 {
		return out, nil
	}
	sum := 0.0
	for i, r := range d.readings {
		v := col.value(r)
		sum += v
		if i == 0 || v > out.Max {
			out.Max = v
		}
		if i == 0 || v < out.Min {
			out.Min = v
		}
	}
	out.Mean = sum / float64(out.Count)
	return out, nil
}
