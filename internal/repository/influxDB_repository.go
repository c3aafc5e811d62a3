package repository

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"HeliumRecovery.monitor/internal/models"
)

// Measurement is the InfluxDB measurement readings are written to.
const Measurement = "helium_vessel"

// ConsumptionField is the field the consumption query aggregates.
const ConsumptionField = "abs_consumption_m3"

// Repository Interface
type Repository interface {
	WriteReadings(ctx context.Context, readings []models.Reading) error
	BucketExists(ctx context.Context, name string) (bool, error)
	CreateBucket(ctx context.Context, name string) error
	QueryConsumption(ctx context.Context, query models.ConsumptionQuery) ([]models.DataPoint, error)
}

// InfluxDBRepository mirrors the dataset into an InfluxDB bucket.
type InfluxDBRepository struct {
	client influxdb2.Client
	org    string
	bucket string
	vessel string

	mu      sync.Mutex
	written span
}

// span is the time range of the points last written for the vessel.
type span struct {
	start, stop time.Time
	set         bool
}

func (s span) union(o span) span {
	switch {
	case !s.set:
		return o
	case !o.set:
		return s
	}
	if o.start.Before(s.start) {
		s.start = o.start
	}
	if o.stop.After(s.stop) {
		s.stop = o.stop
	}
	return s
}

func spanOf(readings []models.Reading) span {
	var out span
	for _, r := range readings {
		out = out.union(span{start: r.Timestamp, stop: r.Timestamp, set: true})
	}
	return out
}

// NewInfluxDBRepository creates a new InfluxDBRepository.
func NewInfluxDBRepository(url, token, org, bucket, vessel string) *InfluxDBRepository {
	return newRepository(influxdb2.NewClient(url, token), org, bucket, vessel)
}

func newRepository(client influxdb2.Client, org, bucket, vessel string) *InfluxDBRepository {
	if vessel == "" {
		vessel = "recovery"
	}
	return &InfluxDBRepository{
		client: client,
		org:    org,
		bucket: bucket,
		vessel: vessel,
	}
}

// Health checks that the InfluxDB server is reachable.
func (r *InfluxDBRepository) Health(ctx context.Context) error {
	health, err := r.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("InfluxDB health check failed: %w", err)
	}
	if health.Status != "pass" {
		return fmt.Errorf("InfluxDB health status is %s", health.Status)
	}
	return nil
}

// EnsureBucket creates the configured bucket when it is missing.
func (r *InfluxDBRepository) EnsureBucket(ctx context.Context) error {
	exists, err := r.BucketExists(ctx, r.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return r.CreateBucket(ctx, r.bucket)
}

// Close releases the client.
func (r *InfluxDBRepository) Close() {
	r.client.Close()
}

// readingPoint converts a reading to a point. Rewriting the same reading overwrites the
// previous point because measurement, tags and time are identical.
func readingPoint(vessel string, reading models.Reading) *write.Point {
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"vessel": vessel},
		map[string]interface{}{
			"temperature_c":            reading.TemperatureC,
			"pressure_psi_gauge":       reading.PressurePSIGauge,
			"temperature_f":            reading.TemperatureF,
			"vessel_pressure_psia":     reading.VesselPressurePSIA,
			"compressibility_factor_z": reading.CompressibilityFactorZ,
			"volume_factor_fv":         reading.VolumeFactorFv,
			"volume_ft3":               reading.VolumeFt3,
			"volume_m3":                reading.VolumeM3,
			"delta_m3":                 reading.DeltaM3,
			"abs_consumption_m3":       reading.AbsConsumptionM3,
			"reading_id":               reading.ID.String(),
		},
		reading.Timestamp,
	)
}

// WriteReadings replaces the vessel's points with the given readings. Points over the range
// written last time and the new range are deleted first, so readings that moved or were
// dropped do not linger in the bucket.
func (r *InfluxDBRepository) WriteReadings(ctx context.Context, readings []models.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := spanOf(readings)
	if stale := r.written.union(next); stale.set {
		predicate := fmt.Sprintf("_measurement=%q AND vessel=%q", Measurement, r.vessel)
		// Widen the stop so a one-instant range still covers its point.
		if err := r.client.DeleteAPI().DeleteWithName(ctx, r.org, r.bucket, stale.start, stale.stop.Add(time.Second), predicate); err != nil {
			return fmt.Errorf("error clearing previous points in InfluxDB: %w", err)
		}
	}
	// Points may exist anywhere in next once a write is attempted, even a failed one.
	r.written = next
	if len(readings) == 0 {
		return nil
	}

	points := make([]*write.Point, len(readings))
	for i, reading := range readings {
		points[i] = readingPoint(r.vessel, reading)
	}
	writeAPI := r.client.WriteAPIBlocking(r.org, r.bucket)
	if err := writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("error writing to InfluxDB: %w", err)
	}
	log.Printf("Wrote %d reading(s) to InfluxDB bucket %s", len(points), r.bucket)
	return nil
}

// BucketExists checks if a bucket exists in InfluxDB.
func (r *InfluxDBRepository) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := r.client.BucketsAPI().FindBucketByName(ctx, name)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("error checking bucket existence: %w", err)
	}
	return true, nil
}

// CreateBucket creates a new bucket in InfluxDB.
func (r *InfluxDBRepository) CreateBucket(ctx context.Context, name string) error {
	org, err := r.client.OrganizationsAPI().FindOrganizationByName(ctx, r.org)
	if err != nil {
		return fmt.Errorf("error finding organization '%s': %w", r.org, err)
	}
	if org == nil {
		return fmt.Errorf("organization '%s' not found", r.org)
	}

	if _, err := r.client.BucketsAPI().CreateBucketWithName(ctx, org, name); err != nil {
		return fmt.Errorf("error creating bucket: %w", err)
	}
	log.Printf("✅ Bucket '%s' created successfully.", name)
	return nil
}

// consumptionFlux builds the aggregated consumption query. Only typed values are
// interpolated, so request input cannot alter the query.
func consumptionFlux(bucket, vessel string, q models.ConsumptionQuery) string {
	return fmt.Sprintf(`
		from(bucket: %q)
		|> range(start: %s, stop: %s)
		|> filter(fn: (r) => r["_measurement"] == %q)
		|> filter(fn: (r) => r["vessel"] == %q)
		|> filter(fn: (r) => r["_field"] == %q)
		|> aggregateWindow(every: %s, fn: sum, createEmpty: false)
		|> yield(name: "sum")
	`, bucket, q.Start.UTC().Format(time.RFC3339), q.Stop.UTC().Format(time.RFC3339),
		Measurement, vessel, ConsumptionField, fluxDuration(q.WindowPeriod))
}

// fluxDuration renders a Go duration as a Flux duration literal.
func fluxDuration(d time.Duration) string {
	if d <= 0 {
		d = time.Hour
	}
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}

// QueryConsumption sums consumption per window.
func (r *InfluxDBRepository) QueryConsumption(ctx context.Context, q models.ConsumptionQuery) ([]models.DataPoint, error) {
	flux := consumptionFlux(r.bucket, r.vessel, q)
	result, err := r.client.QueryAPI(r.org).Query(ctx, flux)
	if err != nil {
		log.Printf("Error querying InfluxDB: %v\nQuery: %s", err, flux)
		return nil, fmt.Errorf("error querying InfluxDB: %w", err)
	}
	defer result.Close()

	points := make([]models.DataPoint, 0)
	for result.Next() {
		record := result.Record()
		point := models.DataPoint{Time: record.Time()}
		switch v := record.Value().(type) {
		case float64:
			point.Value = v
		case int64:
			point.Value = float64(v)
		default:
			continue
		}
		points = append(points, point)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("error reading InfluxDB result: %w", result.Err())
	}
	return points, nil
}
