// Package ingest turns feed rows into validated readings.
package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"HeliumRecovery.monitor/internal/models"
)

// ParseNumber coerces numeric-like text. Blank, unparseable and non-finite values fail.
func ParseNumber(v models.RawValue) (float64, bool) {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Naive drops the zone of t and keeps its wall clock, in UTC.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Coerce converts one raw row. It reports false when either numeric field fails coercion.
func Coerce(raw models.RawReading) (models.Reading, bool) {
	temp, ok := ParseNumber(raw.TemperatureC)
	if !ok {
		return models.Reading{}, false
	}
	pressure, ok := ParseNumber(raw.PressurePSIGauge)
	if !ok {
		return models.Reading{}, false
	}
	return models.Reading{
		ID:               raw.ID,
		Timestamp:        Naive(raw.Timestamp),
		TemperatureC:     temp,
		PressurePSIGauge: pressure,
	}, true
}

// Filter keeps the rows that coerce and returns how many were discarded.
func Filter(raws []models.RawReading) ([]models.Reading, int) {
	out := make([]models.Reading, 0, len(raws))
	for _, raw := range raws {
		r, ok := Coerce(raw)
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out, len(raws) - len(out)
}

// ToRaw renders a validated reading back into its raw form. Values survive the round trip exactly.
func ToRaw(r models.Reading) models.RawReading {
	return models.RawReading{
		ID:               r.ID,
		Timestamp:        r.Timestamp,
		TemperatureC:     models.FloatValue(r.TemperatureC),
		PressurePSIGauge: models.FloatValue(r.PressurePSIGauge),
	}
}
