package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	// StaleAfter is the fixed age after which cached data must be refreshed.
	StaleAfter = 4 * time.Hour

	DefaultForecastDays = 7
	DefaultConcurrency  = 10
)

// Service orchestrates the cache-refresh cycle: staleness check, per-city
// fan-out to the provider, alert detection and one batch write to the store.
type Service struct {
	store        Store
	provider     Provider
	cities       []string
	forecastDays int
	concurrency  int
	now          func() time.Time
	logger       *slog.Logger

	refreshes singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithCities sets the configured city list.
func WithCities(cities []string) Option {
	return func(s *Service) { s.cities = append([]string(nil), cities...) }
}

// WithForecastDays sets how many forecast days are requested per city.
func WithForecastDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.forecastDays = days
		}
	}
}

// WithConcurrency bounds how many cities are fetched at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new Service. Without WithCities the DefaultCities are used.
func NewService(store Store, provider Provider, opts ...Option) *Service {
	s := &Service{
		store:        store,
		provider:     provider,
		cities:       append([]string(nil), DefaultCities...),
		forecastDays: DefaultForecastDays,
		concurrency:  DefaultConcurrency,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cities returns the configured city list.
func (s *Service) Cities() []string {
	return append([]string(nil), s.cities...)
}

// Report returns the full cache contents, refreshing them first when stale.
// Provider and store-write failures are logged and never returned; only a
// failure of the final cache read is.
func (s *Service) Report(ctx context.Context) ([]Record, error) {
	now := s.now().UTC()

	cached, err := s.store.ListRecords(ctx)
	if err != nil {
		s.logger.Warn("reading cache failed; treating as stale", "error", err)
		cached = nil
	}

	if s.IsStale(cached, now) {
		s.logger.Info("data is stale or missing; fetching fresh data", "cached", len(cached), "cities", len(s.cities))
		// Overlapping callers in this process share one refresh.
		_, _, _ = s.refreshes.Do("refresh", func() (interface{}, error) {
			s.refresh(ctx, now)
			return nil, nil
		})
	} else {
		s.logger.Debug("serving data from cache", "records", len(cached))
	}

	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("read weather cache: %w", err)
	}
	return records, nil
}

// IsStale reports whether the cache must be refreshed: fewer records than
// configured cities, or any record updated at or before now-StaleAfter.
func (s *Service) IsStale(records []Record, now time.Time) bool {
	if len(records) < len(s.cities) {
		return true
	}
	cutoff := now.Add(-StaleAfter)
	for _, r := range records {
		if !r.LastUpdated.After(cutoff) {
			return true
		}
	}
	return false
}

func (s *Service) refresh(ctx context.Context, now time.Time) {
	log := s.logger.With("refresh_id", uuid.NewString(), "provider", s.provider.Name())

	results := make([]*Record, len(s.cities))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, city := range s.cities {
		i, city := i, city
		g.Go(func() error {
			rec, err := s.fetchCity(gCtx, city, now)
			if err != nil {
				// Drop the city for this cycle; it keeps its previous cached value.
				log.Warn("failed to fetch data for city", "city", city, "error", err)
				return nil
			}
			results[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	fresh := make([]Record, 0, len(results))
	for _, r := range results {
		if r != nil {
			fresh = append(fresh, *r)
		}
	}

	if len(fresh) == 0 {
		log.Error("failed to fetch weather data for any city; keeping existing cache")
		return
	}

	if err := s.store.UpsertBatch(ctx, fresh); err != nil {
		log.Error("error updating weather data; serving existing cache", "error", err)
		return
	}

	log.Info("successfully updated weather data", "updated", len(fresh), "cities", len(s.cities))
}

// fetchCity fetches current conditions and forecast as one unit: either
// failing fails the city.
func (s *Service) fetchCity(ctx context.Context, city string, now time.Time) (Record, error) {
	var (
		current   CurrentWeather
		forecasts []ForecastDay
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.provider.FetchCurrent(gCtx, city)
		return err
	})
	g.Go(func() error {
		var err error
		forecasts, err = s.provider.FetchForecast(gCtx, city, s.forecastDays)
		return err
	})
	if err := g.Wait(); err != nil {
		return Record{}, err
	}

	precip := 0
	if len(forecasts) > 0 {
		precip = forecasts[0].PrecipitationProbability
	}

	return Record{
		City:                     city,
		Temperature:              current.Temperature,
		FeelsLike:                current.FeelsLike,
		Condition:                current.Condition,
		Humidity:                 current.Humidity,
		WindSpeed:                current.WindSpeed,
		WindDirection:            current.WindDirection,
		UVIndex:                  current.UVIndex,
		PrecipitationProbability: precip,
		AirQuality:               current.AirQuality,
		Timezone:                 CityTimezone(city, current.Timezone),
		Alerts:                   DetectAlerts(float64(current.Temperature), float64(current.WindSpeed), current.Condition, precip),
		LastUpdated:              now,
		Forecasts:                forecasts,
	}, nil
}
