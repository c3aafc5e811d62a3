package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"HeliumRecovery.monitor/internal/ingest"
	"HeliumRecovery.monitor/internal/source"
)

// Defaults for the vessel log kept in Google Sheets.
const (
	DefaultSheetID  = "11LjeT8pJLituxpCxYKxWAC8ZMFkgtts6sJn3X-F35A4"
	DefaultSheetGID = "430617011"
)

// Config holds the application's configuration.
type Config struct {
	Port string `validate:"required,numeric"`

	SheetCSVURL  string        `validate:"required,url"`
	FetchTTL     time.Duration `validate:"gt=0"`
	FetchTimeout time.Duration `validate:"gt=0"`
	DayFirst     bool
	ColumnsFile  string
	Columns      ingest.Columns

	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	InfluxDBURL    string `validate:"omitempty,url"`
	InfluxDBToken  string `validate:"required_with=InfluxDBURL"`
	InfluxDBOrg    string `validate:"required_with=InfluxDBURL"`
	InfluxDBBucket string `validate:"required_with=InfluxDBURL"`
	VesselName     string `validate:"required"`

	NATSURL         string  `validate:"omitempty,url"`
	NATSSubject     string  `validate:"required_with=NATSURL"`
	AlertWebhookURL string  `validate:"omitempty,url"`
	AlertThreshold  float64 `validate:"gt=0"`

	AllowedOrigins []string
	AuthJWTSecret  string
	AuthIssuer     string `validate:"required_with=AuthJWTSecret"`
	AuthAudience   string `validate:"required_with=AuthJWTSecret"`
}

// AuthEnabled reports whether API routes require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.AuthJWTSecret != ""
}

// LoadConfig loads the configuration from a .env file if present and the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config from a variable lookup.
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	var errs []string
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		return d
	}
	number := func(key string, fallback float64) float64 {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		return f
	}
	boolean := func(key string, fallback bool) bool {
		raw := env(key, "")
		if raw == "" {
			return fallback
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		return b
	}

	redisDB, err := strconv.Atoi(env("REDIS_DB", "0"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("REDIS_DB: %v", err))
	}

	cfg := Config{
		Port:         env("PORT", "8000"),
		SheetCSVURL:  env("SHEET_CSV_URL", source.SheetExportURL(env("SHEET_ID", DefaultSheetID), env("SHEET_GID", DefaultSheetGID))),
		FetchTTL:     duration("FETCH_TTL", source.DefaultTTL),
		FetchTimeout: duration("FETCH_TIMEOUT", 15*time.Second),
		DayFirst:     boolean("TIMESTAMP_DAY_FIRST", true),
		ColumnsFile:  env("COLUMNS_FILE", ""),

		RedisAddr:     env("REDIS_ADDR", ""),
		RedisPassword: env("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		InfluxDBURL:    env("INFLUXDB_URL", ""),
		InfluxDBToken:  env("INFLUXDB_TOKEN", ""),
		InfluxDBOrg:    env("INFLUXDB_ORG", ""),
		InfluxDBBucket: env("INFLUXDB_BUCKET", "helium_recovery"),
		VesselName:     env("VESSEL_NAME", "recovery"),

		NATSURL:         env("NATS_URL", ""),
		NATSSubject:     env("NATS_SUBJECT", "helium.alerts"),
		AlertWebhookURL: env("ALERT_WEBHOOK_URL", ""),
		AlertThreshold:  number("ALERT_THRESHOLD_M3", 5),

		AllowedOrigins: splitList(env("ALLOWED_ORIGINS", "*")),
		AuthJWTSecret:  env("AUTH_JWT_SECRET", ""),
		AuthIssuer:     env("AUTH_ISSUER", ""),
		AuthAudience:   env("AUTH_AUDIENCE", ""),
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	cfg.Columns = ingest.DefaultColumns()
	if cfg.ColumnsFile != "" {
		cols, err := LoadColumns(cfg.ColumnsFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Columns = cols.Merge(cfg.Columns)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadColumns reads header aliases from a YAML file.
func LoadColumns(path string) (ingest.Columns, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Columns{}, fmt.Errorf("failed to read columns file: %w", err)
	}
	var cols ingest.Columns
	if err := yaml.Unmarshal(data, &cols); err != nil {
		return ingest.Columns{}, fmt.Errorf("failed to parse columns file: %w", err)
	}
	return cols, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
