package models

import (
	"time"

	"github.com/google/uuid"
)

// Thermodynamics holds the corrected-volume columns derived from one reading.
type Thermodynamics struct {
	TemperatureF           float64 `json:"temperature_f"`
	VesselPressurePSIA     float64 `json:"vessel_pressure_psia"`
	CompressibilityFactorZ float64 `json:"compressibility_factor_z"`
	VolumeFactorFv         float64 `json:"volume_factor_fv"`
	VolumeFt3              float64 `json:"volume_ft3"`
	VolumeM3               float64 `json:"volume_m3"`
}

// Consumption holds the change in corrected volume against the previous reading.
type Consumption struct {
	DeltaM3          float64 `json:"delta_m3"`
	AbsConsumptionM3 float64 `json:"abs_consumption_m3"`
}

// Reading is one row of the canonical dataset.
type Reading struct {
	ID               uuid.UUID `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	TemperatureC     float64   `json:"temperature_c"`
	PressurePSIGauge float64   `json:"pressure_psi_gauge"`
	Thermodynamics
	Consumption
}

// RawReading is a row as it arrives from the feed or from a client, before numeric coercion.
type RawReading struct {
	ID               uuid.UUID `json:"id"`
	Timestamp        time.Time `json:"timestamp" validate:"required"`
	TemperatureC     RawValue  `json:"temperature_c"`
	PressurePSIGauge RawValue  `json:"pressure_psi_gauge"`
}

// ReadingEdit is one row of an edited view. Only the raw columns are writable;
// derived columns sent along are ignored when decoding.
type ReadingEdit struct {
	ID               uuid.UUID `json:"id" validate:"required"`
	Timestamp        time.Time `json:"timestamp" validate:"required"`
	TemperatureC     RawValue  `json:"temperature_c"`
	PressurePSIGauge RawValue  `json:"pressure_psi_gauge"`
}

// ViewReading is a reading as served to the presentation layer.
type ViewReading struct {
	Reading
	Alert bool `json:"alert"`
}

// KPI summarises the newest reading of a view.
type KPI struct {
	Timestamp          time.Time `json:"timestamp"`
	VolumeM3           float64   `json:"volume_m3"`
	DeltaM3            float64   `json:"delta_m3"`
	VesselPressurePSIA float64   `json:"vessel_pressure_psia"`
	VolumeFactorFv     float64   `json:"volume_factor_fv"`
	AbsConsumptionM3   float64   `json:"abs_consumption_m3"`
	Status             string    `json:"status"`
}

// MetricSummary is the aggregate of one numeric column.
type MetricSummary struct {
	Metric string  `json:"metric"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
	Count  int     `json:"count"`
}
