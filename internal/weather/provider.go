package weather

import (
	"context"
)

// Provider abstracts the upstream weather data source (e.g. WeatherAPI).
type Provider interface {
	Name() string
	FetchCurrent(ctx context.Context, city string) (CurrentWeather, error)
	FetchForecast(ctx context.Context, city string, days int) ([]ForecastDay, error)
}

// Store is the contract the cache stores (in-memory and PostgreSQL) satisfy.
type Store interface {
	// ListRecords returns every cached record with forecasts ascending by date.
	ListRecords(ctx context.Context) ([]Record, error)
	// UpsertBatch inserts or fully replaces the given records in one
	// all-or-nothing operation. Forecasts are replaced, never merged.
	UpsertBatch(ctx context.Context, records []Record) error
}
