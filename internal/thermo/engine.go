// Package thermo converts vessel temperature and gauge pressure into corrected helium volume
// using a real-gas compressibility model.
package thermo

import (
	"errors"
	"fmt"
	"math"

	"HeliumRecovery.monitor/internal/models"
)

// Model constants. BaseVolumeFt3 is the nominal water volume of the vessel.
const (
	BaseVolumeFt3       = 450.00
	AtmosphericPSI      = 14.7
	RankineOffset       = 459.7
	StandardRankine     = 529.7
	ReferenceTempF      = 70.0
	CubicFeetPerM3      = 35.315
	compressibilityBase = 1.00049

	zPolyA = 0.000102297
	zPolyB = 0.000000192998
	zPolyC = 0.00000000011836
	zQuad  = 0.0000000002217

	metalExpansion = 0.0000189
	pressureEffect = 0.00000074

	// MinCompressibility is the smallest |Z| the engine divides by.
	MinCompressibility = 1e-9
)

var (
	// ErrDegenerateCompressibility is returned when Z is too close to zero to divide by.
	ErrDegenerateCompressibility = errors.New("compressibility factor is degenerate")
	// ErrNonFiniteResult is returned when an input or a derived value is NaN or infinite.
	ErrNonFiniteResult = errors.New("non-finite thermodynamic result")
)

// CelsiusToFahrenheit converts a temperature.
func CelsiusToFahrenheit(c float64) float64 {
	return c*1.8 + 32
}

// AbsolutePressure converts gauge psi to psia.
func AbsolutePressure(gauge float64) float64 {
	return gauge + AtmosphericPSI
}

// Compressibility returns the helium Z factor at the given temperature (°F) and pressure (psia).
func Compressibility(tempF, psia float64) float64 {
	t := RankineOffset + tempF
	poly := zPolyA - zPolyB*t + zPolyC*t*t
	return 1 + poly*psia - zQuad*psia*psia
}

// Compute derives every thermodynamic column for one reading.
func Compute(temperatureC, pressurePSIGauge float64) (models.Thermodynamics, error) {
	if !finite(temperatureC) || !finite(pressurePSIGauge) {
		return models.Thermodynamics{}, ErrNonFiniteResult
	}

	tempF := CelsiusToFahrenheit(temperatureC)
	psia := AbsolutePressure(pressurePSIGauge)
	z := Compressibility(tempF, psia)
	if math.Abs(z) < MinCompressibility {
		return models.Thermodynamics{}, fmt.Errorf("%w: z=%g at %g°F %g psia", ErrDegenerateCompressibility, z, tempF, psia)
	}

	fTemp := StandardRankine / (tempF + RankineOffset)
	fPres := psia / AtmosphericPSI
	fComp := compressibilityBase / z
	fExpMetal := 1 + metalExpansion*(tempF-ReferenceTempF)
	fPresEffect := 1 + pressureEffect*psia
	fv := fTemp * fPres * fComp * fExpMetal * fPresEffect

	ft3 := BaseVolumeFt3 * fv
	out := models.Thermodynamics{
		TemperatureF:           tempF,
		VesselPressurePSIA:     psia,
		CompressibilityFactorZ: z,
		VolumeFactorFv:         fv,
		VolumeFt3:              ft3,
		VolumeM3:               ft3 / CubicFeetPerM3,
	}
	for _, v := range []float64{out.TemperatureF, out.VesselPressurePSIA, out.CompressibilityFactorZ, out.VolumeFactorFv, out.VolumeFt3, out.VolumeM3} {
		if !finite(v) {
			return models.Thermodynamics{}, fmt.Errorf("%w at %g°C %g psig", ErrNonFiniteResult, temperatureC, pressurePSIGauge)
		}
	}
	return out, nil
}

// ComputePoint answers a single what-if query.
func ComputePoint(temperatureC, pressurePSIGauge float64) (models.ComputePointOutput, error) {
	th, err := Compute(temperatureC, pressurePSIGauge)
	if err != nil {
		return models.ComputePointOutput{}, err
	}
	return models.ComputePointOutput{
		ZFactor:  th.CompressibilityFactorZ,
		FvFactor: th.VolumeFactorFv,
		VolumeM3: th.VolumeM3,
	}, nil
}

// Apply fills the thermodynamic columns of every reading. Readings the engine cannot
// resolve are left out of the result; the count of those is returned alongside.
func Apply(readings []models.Reading) ([]models.Reading, int) {
	out := make([]models.Reading, 0, len(readings))
	dropped := 0
	for _, r := range readings {
		th, err := Compute(r.TemperatureC, r.PressurePSIGauge)
		if err != nil {
			dropped++
			continue
		}
		r.Thermodynamics = th
		out = append(out, r)
	}
	return out, dropped
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
