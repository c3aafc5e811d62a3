package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"HeliumRecovery.monitor/internal/models"
)

// Window selects how far back a view reaches.
type Window string

const (
	WindowDay  Window = "24h"
	WindowWeek Window = "7d"
	WindowAll  Window = "all"
)

// ParseWindow accepts "24h", "7d" or "all". Empty means all.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case "", WindowAll:
		return WindowAll, nil
	case WindowDay, WindowWeek:
		return Window(s), nil
	}
	return "", fmt.Errorf("unknown window %q (use 24h, 7d or all)", s)
}

func (w Window) span() time.Duration {
	switch w {
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	}
	return 0
}

// View returns the readings at or after now minus the window. The result is a copy.
func (d *Dataset) View(w Window, now time.Time) []models.Reading {
	span := w.span()
	if span == 0 {
		return d.Readings()
	}
	cutoff := now.Add(-span)
	out := make([]models.Reading, 0)
	for _, r := range d.readings {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// ExportTimeLayout is the timestamp format used in exported files.
const ExportTimeLayout = "2006-01-02 15:04:05"

// ExportFilename is the download name of the corrected report.
const ExportFilename = "Helium_Report_Corregido.csv"

// WriteCSV writes every reading with its raw and derived columns.
func (d *Dataset) WriteCSV(w io.Writer) error {
	return WriteCSV(w, d.readings)
}

// WriteCSV writes readings with a header row.
func WriteCSV(w io.Writer, readings []models.Reading) error {
	writer := csv.NewWriter(w)
	header := append([]string{"timestamp"}, MetricNames()...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(header))
	for _, r := range readings {
		record[0] = r.Timestamp.Format(ExportTimeLayout)
		for i, col := range numericColumns {
			record[i+1] = strconv.FormatFloat(col.value(r), 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
