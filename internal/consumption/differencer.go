// Package consumption derives per-reading helium consumption from corrected volumes.
package consumption

import (
	"math"

	"HeliumRecovery.monitor/internal/models"
)

// Difference fills DeltaM3 and AbsConsumptionM3 in place. Readings must already be sorted
// ascending by timestamp; the first reading has no predecessor and gets zero.
func Difference(readings []models.Reading) {
	for i := range readings {
		if i == 0 {
			readings[i].Consumption = models.Consumption{}
			continue
		}
		delta := readings[i].VolumeM3 - readings[i-1].VolumeM3
		readings[i].Consumption = models.Consumption{
			DeltaM3:          delta,
			AbsConsumptionM3: math.Abs(delta),
		}
	}
}

// Total returns the summed absolute consumption of the readings.
func Total(readings []models.Reading) float64 {
	total := 0.0
	for _, r := range readings {
		total += r.AbsConsumptionM3
	}
	return total
}
