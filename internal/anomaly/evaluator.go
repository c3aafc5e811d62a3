// Package anomaly decides when a consumption reading warrants an alert.
package anomaly

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"HeliumRecovery.monitor/internal/models"
)

// DefaultThresholdM3 is the absolute consumption above which a reading is anomalous.
const DefaultThresholdM3 = 5.0

// KPI status values.
const (
	StatusOK   = "OK"
	StatusHigh = "HIGH"
)

// Evaluator remembers the timestamp it last alerted on so each reading alerts at most once.
type Evaluator struct {
	threshold   float64
	lastAlerted time.Time
	alerted     bool
}

// NewEvaluator creates an Evaluator. A non-positive threshold falls back to DefaultThresholdM3.
func NewEvaluator(threshold float64) *Evaluator {
	if threshold <= 0 {
		threshold = DefaultThresholdM3
	}
	return &Evaluator{threshold: threshold}
}

// Threshold returns the configured threshold in m3.
func (e *Evaluator) Threshold() float64 {
	return e.threshold
}

// LastAlerted returns the timestamp of the last alert, if any.
func (e *Evaluator) LastAlerted() (time.Time, bool) {
	return e.lastAlerted, e.alerted
}

// IsAnomalous reports whether a reading is above the threshold.
func (e *Evaluator) IsAnomalous(r models.Reading) bool {
	return r.AbsConsumptionM3 > e.threshold
}

// Evaluate inspects the newest reading. It returns an alert only when the reading is above
// the threshold and was not already alerted on. The state is updated before the alert is
// handed out, so a failed delivery is not retried for the same reading.
func (e *Evaluator) Evaluate(latest models.Reading) (models.Alert, bool) {
	if !e.IsAnomalous(latest) {
		return models.Alert{}, false
	}
	if e.alerted && latest.Timestamp.Equal(e.lastAlerted) {
		return models.Alert{}, false
	}
	e.lastAlerted = latest.Timestamp
	e.alerted = true

	alert := models.Alert{
		Timestamp:              latest.Timestamp,
		AbsConsumptionM3:       latest.AbsConsumptionM3,
		VesselPressurePSIA:     latest.VesselPressurePSIA,
		CompressibilityFactorZ: latest.CompressibilityFactorZ,
		ThresholdM3:            e.threshold,
	}
	alert.Message = FormatMessage(alert)
	return alert, true
}

// FormatMessage renders the operator-facing alert text.
func FormatMessage(a models.Alert) string {
	return fmt.Sprintf("🚨 HELIUM CONSUMPTION ALERT\n"+
		"Consumption: %s m3 (threshold %s m3)\n"+
		"Vessel pressure: %s PSIA\n"+
		"Z factor: %s\n"+
		"Time: %s",
		decimal.NewFromFloat(a.AbsConsumptionM3).StringFixed(4),
		decimal.NewFromFloat(a.ThresholdM3).StringFixed(2),
		decimal.NewFromFloat(a.VesselPressurePSIA).StringFixed(1),
		decimal.NewFromFloat(a.CompressibilityFactorZ).StringFixed(4),
		a.Timestamp.Format("15:04"),
	)
}

// KPIFor summarises a reading for the dashboard header.
func (e *Evaluator) KPIFor(r models.Reading) models.KPI {
	status := StatusOK
	if e.IsAnomalous(r) {
		status = StatusHigh
	}
	return models.KPI{
		Timestamp:          r.Timestamp,
		VolumeM3:           r.VolumeM3,
		DeltaM3:            r.DeltaM3,
		VesselPressurePSIA: r.VesselPressurePSIA,
		VolumeFactorFv:     r.VolumeFactorFv,
		AbsConsumptionM3:   r.AbsConsumptionM3,
		Status:             status,
	}
}

// Flag marks each reading that is above the threshold, for chart colouring.
func (e *Evaluator) Flag(readings []models.Reading) []models.ViewReading {
	out := make([]models.ViewReading, len(readings))
	for i, r := range readings {
		out[i] = models.ViewReading{Reading: r, Alert: e.IsAnomalous(r)}
	}
	return out
}
