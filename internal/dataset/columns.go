package dataset

import "HeliumRecovery.monitor/internal/models"

type column struct {
	name  string
	value func(models.Reading) float64
}

// numericColumns is the export order and the set of names Summary accepts.
var numericColumns = []column{
	{"temperature_c", func(r models.Reading) float64 { return r.TemperatureC }},
	{"pressure_psi_gauge", func(r models.Reading) float64 { return r.PressurePSIGauge }},
	{"temperature_f", func(r models.Reading) float64 { return r.TemperatureF }},
	{"vessel_pressure_psia", func(r models.Reading) float64 { return r.VesselPressurePSIA }},
	{"compressibility_factor_z", func(r models.Reading) float64 { return r.CompressibilityFactorZ }},
	{"volume_factor_fv", func(r models.Reading) float64 { return r.VolumeFactorFv }},
	{"volume_ft3", func(r models.Reading) float64 { return r.VolumeFt3 }},
	{"volume_m3", func(r models.Reading) float64 { return r.VolumeM3 }},
	{"delta_m3", func(r models.Reading) float64 { return r.DeltaM3 }},
	{"abs_consumption_m3", func(r models.Reading) float64 { return r.AbsConsumptionM3 }},
}

// MetricNames lists the columns Summary accepts, in export order.
func MetricNames() []string {
	names := make([]string, len(numericColumns))
	for i, c := range numericColumns {
		names[i] = c.name
	}
	return names
}

func findColumn(name string) (column, bool) {
	for _, c := range numericColumns {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}
