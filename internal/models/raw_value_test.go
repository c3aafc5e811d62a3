package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawValue_UnmarshalJSON(t *testing.T) {
	t.Run("should keep number literals", func(t *testing.T) {
		var edit ReadingEdit
		require.NoError(t, json.Unmarshal([]byte(`{"temperature_c": 21.5, "pressure_psi_gauge": 1000}`), &edit))
		assert.Equal(t, RawValue("21.5"), edit.TemperatureC)
		assert.Equal(t, RawValue("1000"), edit.PressurePSIGauge)
	})

	t.Run("should keep text as typed", func(t *testing.T) {
		var edit ReadingEdit
		require.NoError(t, json.Unmarshal([]byte(`{"temperature_c": "abc", "pressure_psi_gauge": null}`), &edit))
		assert.Equal(t, RawValue("abc"), edit.TemperatureC)
		assert.Equal(t, RawValue(""), edit.PressurePSIGauge)
	})

	t.Run("should reject booleans", func(t *testing.T) {
		var v RawValue
		assert.Error(t, json.Unmarshal([]byte(`true`), &v))
	})

	t.Run("should ignore derived columns on an edit", func(t *testing.T) {
		var edit ReadingEdit
		require.NoError(t, json.Unmarshal([]byte(`{"temperature_c": 1, "volume_m3": 99}`), &edit))
		assert.Equal(t, RawValue("1"), edit.TemperatureC)
	})
}

func TestFloatValue(t *testing.T) {
	assert.Equal(t, RawValue("0.1"), FloatValue(0.1))
	assert.Equal(t, RawValue("1000"), FloatValue(1000))
}
