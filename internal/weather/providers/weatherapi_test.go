package providers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-report/internal/store"
	"github.com/i474232898/weather-report/internal/weather"
)

const testAPIKey = "test-key"

const currentBody = `{
  "location": {"name": "London", "tz_id": "Europe/London"},
  "current": {
    "temp_c": 12.5,
    "feelslike_c": 10.4,
    "condition": {"text": "Moderate rain"},
    "wind_kph": 19.6,
    "wind_dir": "WSW",
    "humidity": 82,
    "uv": 2.5,
    "air_quality": {
      "co": 230.3, "no2": 17.2, "o3": 40.1, "so2": 3.4,
      "pm2_5": 8.9, "pm10": 11.2, "us-epa-index": 3
    }
  }
}`

const currentNoAQIBody = `{
  "location": {"name": "London", "tz_id": "Europe/London"},
  "current": {"temp_c": -2.5, "feelslike_c": -6.6, "condition": {"text": "Snow"}, "wind_kph": 4, "wind_dir": "N", "humidity": 90, "uv": 1}
}`

const forecastBody = `{
  "forecast": {"forecastday": [
    {"date": "2026-10-19", "day": {"maxtemp_c": 14.6, "mintemp_c": 7.4, "maxwind_kph": 22.3, "avghumidity": 77,
      "daily_will_it_rain": 1, "daily_chance_of_rain": 86, "daily_will_it_snow": 0, "daily_chance_of_snow": 40,
      "condition": {"text": "Patchy rain nearby"}, "uv": 1.5}},
    {"date": "2026-10-20", "day": {"maxtemp_c": 1.2, "mintemp_c": -4.5, "maxwind_kph": 10, "avghumidity": 88.4,
      "daily_will_it_rain": 0, "daily_chance_of_rain": 30, "daily_will_it_snow": 1, "daily_chance_of_snow": 65,
      "condition": {"text": "Light snow"}, "uv": 0.4}}
  ]}
}`

func newTestProvider(baseURL string, opts ...WeatherAPIOption) *WeatherAPIProvider {
	opts = append([]WeatherAPIOption{WithBaseURL(baseURL)}, opts...)
	return NewWeatherAPIProvider(&http.Client{Timeout: 5 * time.Second}, testAPIKey, opts...)
}

func TestFetchCurrentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, testAPIKey, q.Get("key"))
		assert.Equal(t, "London", q.Get("q"))
		assert.Equal(t, "yes", q.Get("aqi"))
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	got, err := newTestProvider(srv.URL).FetchCurrent(context.Background(), "London")
	require.NoError(t, err)

	assert.Equal(t, "London", got.City)
	assert.Equal(t, 13, got.Temperature)
	assert.Equal(t, 10, got.FeelsLike)
	assert.Equal(t, "Moderate rain", got.Condition)
	assert.Equal(t, 82, got.Humidity)
	assert.Equal(t, 20, got.WindSpeed)
	assert.Equal(t, "WSW", got.WindDirection)
	assert.Equal(t, 2.5, got.UVIndex)
	assert.Equal(t, "Europe/London", got.Timezone)

	assert.Equal(t, weather.AirQuality{
		AQI:      3,
		Category: "Unhealthy for Sensitive",
		Color:    "#f97316",
		PM25:     8.9,
		PM10:     11.2,
		CO:       230.3,
		NO2:      17.2,
		O3:       40.1,
		SO2:      3.4,
	}, got.AirQuality)
}

func TestFetchCurrentMissingAirQualityDefaultsToGood(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(currentNoAQIBody))
	}))
	defer srv.Close()

	got, err := newTestProvider(srv.URL).FetchCurrent(context.Background(), "London")
	require.NoError(t, err)

	assert.Equal(t, -2, got.Temperature, "halves round toward positive infinity")
	assert.Equal(t, -7, got.FeelsLike)
	assert.Equal(t, weather.AirQuality{AQI: 1, Category: "Good", Color: "#10b981"}, got.AirQuality)
}

func TestFetchForecastSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "7", q.Get("days"))
		assert.Equal(t, "no", q.Get("aqi"))
		assert.Equal(t, "Sao Paulo", q.Get("q"))
		_, _ = w.Write([]byte(forecastBody))
	}))
	defer srv.Close()

	days, err := newTestProvider(srv.URL).FetchForecast(context.Background(), "Sao Paulo", 7)
	require.NoError(t, err)
	require.Len(t, days, 2)

	first := days[0]
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 7, first.MinTemp)
	assert.Equal(t, 15, first.MaxTemp)
	assert.Equal(t, 22, first.WindSpeed)
	assert.Equal(t, 77, first.Humidity)
	assert.Equal(t, 1.5, first.UVIndex)
	assert.Equal(t, "Patchy rain nearby", first.Condition)
	// will_it_rain wins even though snow chance is non-zero.
	assert.Equal(t, 86, first.PrecipitationProbability)

	second := days[1]
	assert.Equal(t, -4, second.MinTemp)
	assert.Equal(t, 88, second.Humidity)
	assert.Equal(t, 65, second.PrecipitationProbability)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, weather.ErrAuth},
		{http.StatusBadRequest, weather.ErrInvalidCity},
		{http.StatusForbidden, weather.ErrProvider},
		{http.StatusInternalServerError, weather.ErrProvider},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"code":1006,"message":"nope"}}`))
			}))
			defer srv.Close()

			p := newTestProvider(srv.URL)

			_, err := p.FetchCurrent(context.Background(), "Atlantis")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var pe *weather.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.status, pe.StatusCode)

			_, err = p.FetchForecast(context.Background(), "Atlantis", 3)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeFailureIsGenericProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).FetchCurrent(context.Background(), "London")
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProvider)
	assert.Contains(t, err.Error(), "failed to fetch weather for London")
}

func TestNetworkFailureIsGenericProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestProvider(url).FetchForecast(context.Background(), "London", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProvider)
	assert.Contains(t, err.Error(), "failed to fetch forecast for London")
}

func TestEmptyCityRejectedWithoutRequest(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).FetchCurrent(context.Background(), "  ")
	assert.ErrorIs(t, err, weather.ErrInvalidCity)
	assert.Zero(t, hits.Load())

	var pe *weather.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "  ", pe.City)
}

func TestNoRetryByDefault(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).FetchCurrent(context.Background(), "London")
	assert.ErrorIs(t, err, weather.ErrProvider)
	assert.EqualValues(t, 1, hits.Load())
}

func TestBackoffRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, WithBackoff(BackoffConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}))

	got, err := p.FetchCurrent(context.Background(), "London")
	require.NoError(t, err)
	assert.Equal(t, "London", got.City)
	assert.EqualValues(t, 2, hits.Load())
}

func TestAuthErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, WithBackoff(BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond}))

	_, err := p.FetchCurrent(context.Background(), "London")
	assert.ErrorIs(t, err, weather.ErrAuth)
	assert.EqualValues(t, 1, hits.Load())
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	// One token, refilled every ~17 minutes.
	p := newTestProvider(srv.URL, WithRateLimit(0.001, 1))

	_, err := p.FetchCurrent(context.Background(), "London")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = p.FetchCurrent(ctx, "London")
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProvider)
}

func TestInvalidCityDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Atlantis" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	for i := 0; i < 10; i++ {
		_, err := p.FetchCurrent(context.Background(), "Atlantis")
		require.ErrorIs(t, err, weather.ErrInvalidCity)
	}

	_, err := p.FetchCurrent(context.Background(), "London")
	assert.NoError(t, err)
}

func TestBreakerIsPerCity(t *testing.T) {
	var badHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Gotham" {
			badHits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	for i := 0; i < 6; i++ {
		_, err := p.FetchCurrent(context.Background(), "Gotham")
		require.ErrorIs(t, err, weather.ErrProvider)
	}

	// Gotham's circuit is now open and short-circuits without a request.
	_, err := p.FetchCurrent(context.Background(), "Gotham")
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.EqualValues(t, 6, badHits.Load())

	// Other cities are unaffected.
	got, err := p.FetchCurrent(context.Background(), "London")
	require.NoError(t, err)
	assert.Equal(t, "London", got.City)
}

func TestServiceRefreshSurvivesFailingCities(t *testing.T) {
	bad := map[string]bool{"Bad1": true, "Bad2": true, "Bad3": true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bad[r.URL.Query().Get("q")] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/forecast.json") {
			_, _ = w.Write([]byte(forecastBody))
			return
		}
		_, _ = w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	svc := weather.NewService(store.NewMemoryStore(), p,
		weather.WithCities([]string{"Bad1", "Bad2", "Bad3", "Good1", "Good2", "Good3"}),
		weather.WithConcurrency(1),
		weather.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	records, err := svc.Report(context.Background())
	require.NoError(t, err)

	var names []string
	for _, r := range records {
		names = append(names, r.City)
	}
	assert.ElementsMatch(t, []string{"Good1", "Good2", "Good3"}, names)

	_, err = p.FetchCurrent(context.Background(), "Good1")
	assert.NoError(t, err)
}
