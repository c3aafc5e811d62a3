package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	t.Run("should read the spanish form export", func(t *testing.T) {
		feed := "Marca temporal,Temperatura Celsius,Presión,Operador\n" +
			"13/01/2026 7:24:32,21.5,1000,ana\n" +
			"14/01/2026 19:02:10,abc,990,luis\n" +
			",,,\n"

		rows, skipped, err := NewParser(Columns{}, true).Parse(strings.NewReader(feed))

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 1, skipped)
		assert.Equal(t, time.Date(2026, 1, 13, 7, 24, 32, 0, time.UTC), rows[0].Timestamp)
		assert.Equal(t, "21.5", string(rows[0].TemperatureC))
		assert.Equal(t, "1000", string(rows[0].PressurePSIGauge))
		assert.Equal(t, "abc", string(rows[1].TemperatureC))
		assert.NotEqual(t, rows[0].ID, rows[1].ID)
	})

	t.Run("should read english headers and iso timestamps", func(t *testing.T) {
		feed := "\ufefftimestamp,temperature_c,pressure_psi_gauge\n2026-01-13 07:24:32,20,950\n2026-01-13T08:00:00Z,20,940\n"

		rows, _, err := NewParser(Columns{}, true).Parse(strings.NewReader(feed))

		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, time.Date(2026, 1, 13, 8, 0, 0, 0, time.UTC), rows[1].Timestamp)
	})

	t.Run("should honour custom aliases", func(t *testing.T) {
		feed := "when,temp,gauge\n2026-01-13 07:24,20,950\n"
		cols := Columns{Timestamp: []string{"when"}, TemperatureC: []string{"temp"}, PressurePSIGauge: []string{"gauge"}}

		rows, _, err := NewParser(cols, true).Parse(strings.NewReader(feed))

		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("should fail on a missing column", func(t *testing.T) {
		_, _, err := NewParser(Columns{}, true).Parse(strings.NewReader("timestamp,temperature_c\n2026-01-13 07:24,20\n"))
		assert.ErrorIs(t, err, ErrMissingColumn)
	})

	t.Run("should fail on an unreadable timestamp", func(t *testing.T) {
		_, _, err := NewParser(Columns{}, true).Parse(strings.NewReader("timestamp,temperature_c,pressure_psi\nyesterday,20,1\n"))
		assert.Error(t, err)
	})
}

func TestParser_ParseTimestamp(t *testing.T) {
	dayFirst := NewParser(Columns{}, true)
	monthFirst := NewParser(Columns{}, false)

	ts, err := dayFirst.ParseTimestamp("02/03/2026 10:00")
	require.NoError(t, err)
	assert.Equal(t, time.March, ts.Month())

	ts, err = monthFirst.ParseTimestamp("02/03/2026 10:00")
	require.NoError(t, err)
	assert.Equal(t, time.February, ts.Month())
}
