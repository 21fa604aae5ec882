// Package config loads service settings from environment variables using
// envconfig struct tags, then validates the result. A bad configuration
// fails at startup, never per request.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`

	// Location roster.
	LocationsFile string `envconfig:"LOCATIONS_FILE" default:"config/locations.json" validate:"required"`

	// Case-report ingestion.
	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092" validate:"min=1"`
	KafkaCasesTopic  string   `envconfig:"KAFKA_CASES_TOPIC" default:"disease-case-reports" validate:"required"`
	KafkaGroupID     string   `envconfig:"KAFKA_GROUP_ID" default:"outbreak-engine" validate:"required"`
	IngestionEnabled bool     `envconfig:"INGESTION_ENABLED" default:"true"`

	// Weather provider.
	WeatherBaseURL string        `envconfig:"WEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5" validate:"url"`
	WeatherAPIKey  string        `envconfig:"WEATHER_API_KEY"`
	WeatherTimeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"5s" validate:"gt=0"`

	// Snapshot cache TTLs and refresh cadence.
	WeatherCacheTTL time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"30m" validate:"gt=0"`
	CasesCacheTTL   time.Duration `envconfig:"CASES_CACHE_TTL" default:"2h" validate:"gt=0"`
	WeatherRefresh  string        `envconfig:"WEATHER_REFRESH_SCHEDULE" default:"@every 30m" validate:"required"`
	HistoryRefresh  string        `envconfig:"HISTORY_REFRESH_SCHEDULE" default:"@every 2h" validate:"required"`

	// Evaluation.
	ProviderTimeout   time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"3s" validate:"gt=0"`
	WorkerLimit       int           `envconfig:"WORKER_LIMIT" default:"8" validate:"gt=0"`
	HistoryWindowDays int           `envconfig:"HISTORY_WINDOW_DAYS" default:"30" validate:"gt=0"`

	// Forecast variation. Disabled variation makes the engine fully
	// deterministic; a fixed seed makes it reproducible.
	VariationEnabled bool   `envconfig:"VARIATION_ENABLED" default:"true"`
	VariationSeed    uint64 `envconfig:"VARIATION_SEED" default:"0"`
}

// Load reads configuration from environment variables, applying defaults
// where unset, and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}
