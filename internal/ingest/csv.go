package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"HeliumRecovery.monitor/internal/models"
)

// Columns lists the accepted header names for each required feed column.
type Columns struct {
	Timestamp        []string `yaml:"timestamp"`
	TemperatureC     []string `yaml:"temperature_c"`
	PressurePSIGauge []string `yaml:"pressure_psi_gauge"`
}

// DefaultColumns matches the Google Form sheet the vessel log is kept in, plus plain English names.
func DefaultColumns() Columns {
	return Columns{
		Timestamp:        []string{"Marca temporal", "timestamp"},
		TemperatureC:     []string{"Temperatura Celsius", "temperature_c", "temperature"},
		PressurePSIGauge: []string{"Presión", "Presion", "pressure_psi_gauge", "pressure_psi", "pressure"},
	}
}

// Merge returns c with any empty list filled from fallback.
func (c Columns) Merge(fallback Columns) Columns {
	if len(c.Timestamp) == 0 {
		c.Timestamp = fallback.Timestamp
	}
	if len(c.TemperatureC) == 0 {
		c.TemperatureC = fallback.TemperatureC
	}
	if len(c.PressurePSIGauge) == 0 {
		c.PressurePSIGauge = fallback.PressurePSIGauge
	}
	return c
}

// ErrMissingColumn is returned when the feed header lacks a required column.
var ErrMissingColumn = errors.New("missing required csv column")

// Parser reads the vessel feed CSV.
type Parser struct {
	columns  Columns
	dayFirst bool
}

// NewParser creates a Parser. dayFirst selects d/m/yyyy for slash-separated dates.
func NewParser(columns Columns, dayFirst bool) *Parser {
	return &Parser{columns: columns.Merge(DefaultColumns()), dayFirst: dayFirst}
}

// Parse reads every record of the feed. Each row gets a fresh id. Rows with an empty
// timestamp are skipped and counted; a timestamp that is present but unreadable fails the
// whole parse.
func (p *Parser) Parse(stream io.Reader) ([]models.RawReading, int, error) {
	reader := csv.NewReader(stream)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, 0, fmt.Errorf("%w: empty feed", ErrMissingColumn)
		}
		return nil, 0, fmt.Errorf("failed to read csv header: %w", err)
	}

	headerMap := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimPrefix(h, "\ufeff")
		headerMap[normalizeHeader(h)] = i
	}

	tsIdx, err := lookup(headerMap, "timestamp", p.columns.Timestamp)
	if err != nil {
		return nil, 0, err
	}
	tempIdx, err := lookup(headerMap, "temperature_c", p.columns.TemperatureC)
	if err != nil {
		return nil, 0, err
	}
	presIdx, err := lookup(headerMap, "pressure_psi_gauge", p.columns.PressurePSIGauge)
	if err != nil {
		return nil, 0, err
	}

	var (
		rows    []models.RawReading
		skipped int
		line    = 1
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, 0, fmt.Errorf("csv read error at line %d: %w", line, err)
		}

		get := func(idx int) string {
			if idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		tsText := get(tsIdx)
		if tsText == "" {
			skipped++
			continue
		}
		ts, err := p.ParseTimestamp(tsText)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}

		rows = append(rows, models.RawReading{
			ID:               uuid.New(),
			Timestamp:        ts,
			TemperatureC:     models.RawValue(get(tempIdx)),
			PressurePSIGauge: models.RawValue(get(presIdx)),
		})
	}
	return rows, skipped, nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

var dayFirstLayouts = []string{"2/1/2006 15:04:05", "2/1/2006 15:04", "2/1/2006"}
var monthFirstLayouts = []string{"1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006"}

// ParseTimestamp accepts ISO-style and slash-separated timestamps and returns wall-clock UTC.
func (p *Parser) ParseTimestamp(s string) (time.Time, error) {
	layouts := isoLayouts
	if strings.Contains(s, "/") {
		layouts = monthFirstLayouts
		if p.dayFirst {
			layouts = dayFirstLayouts
		}
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return Naive(ts), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func lookup(headerMap map[string]int, column string, aliases []string) (int, error) {
	for _, alias := range aliases {
		if idx, ok := headerMap[normalizeHeader(alias)]; ok {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("%w: %s (accepted headers: %s)", ErrMissingColumn, column, strings.Join(aliases, ", "))
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
