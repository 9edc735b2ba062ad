package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i474232898/weather-report/internal/weather"
)

type AppConfig struct {
	WeatherAPIKey     string `envconfig:"WEATHER_API_KEY"`
	WeatherAPIBaseURL string `envconfig:"WEATHER_API_BASE_URL" default:"https://api.weatherapi.com/v1" validate:"required,url"`

	// Cities to track; empty means weather.DefaultCities.
	Cities []string `envconfig:"WEATHER_CITIES" validate:"dive,required"`

	ForecastDays     int `envconfig:"FORECAST_DAYS" default:"7" validate:"min=1,max=14"`
	FetchConcurrency int `envconfig:"FETCH_CONCURRENCY" default:"10" validate:"min=1"`

	// Outbound provider throttling; ProviderRPS 0 disables it.
	ProviderRPS        float64       `envconfig:"PROVIDER_RPS" default:"5" validate:"min=0"`
	ProviderBurst      int           `envconfig:"PROVIDER_BURST" default:"10" validate:"min=1"`
	ProviderMaxRetries int           `envconfig:"PROVIDER_MAX_RETRIES" default:"0" validate:"min=0"`
	HTTPTimeout        time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s" validate:"gt=0"`

	// DatabaseURL selects the PostgreSQL store; empty uses the in-memory store.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	Port     string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

// Load reads configuration from environment (and an optional .env file)
// with sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env file is fine; real env vars are never overridden.
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	cfg.Cities = normalizeCities(cfg.Cities)
	if len(cfg.Cities) == 0 {
		cfg.Cities = append([]string(nil), weather.DefaultCities...)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// normalizeCities trims names and drops blanks and duplicates, keeping order.
func normalizeCities(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
