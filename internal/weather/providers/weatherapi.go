package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-report/internal/common"
	"github.com/i474232898/weather-report/internal/weather"
)

// DefaultWeatherAPIBaseURL is the WeatherAPI.com v1 endpoint root.
const DefaultWeatherAPIBaseURL = "https://api.weatherapi.com/v1"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig

	// One breaker per city; a failing city never opens another city's circuit.
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// WeatherAPIOption customises a WeatherAPIProvider.
type WeatherAPIOption func(*WeatherAPIProvider)

// WithBaseURL points the provider at another endpoint root (tests, proxies).
func WithBaseURL(u string) WeatherAPIOption {
	return func(p *WeatherAPIProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRateLimit throttles requests to rps per second with the given burst.
// rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) WeatherAPIOption {
	return func(p *WeatherAPIProvider) {
		if rps <= 0 {
			p.httpCfg.Limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.httpCfg.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBackoff enables retries on transient upstream failures.
func WithBackoff(b BackoffConfig) WeatherAPIOption {
	return func(p *WeatherAPIProvider) { p.httpCfg.Backoff = b }
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, opts ...WeatherAPIOption) *WeatherAPIProvider {
	p := &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: DefaultWeatherAPIBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      0,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

// breaker returns the circuit breaker for city, creating it on first use.
func (p *WeatherAPIProvider) breaker(city string) *gobreaker.CircuitBreaker {
	key := strings.ToLower(strings.TrimSpace(city))

	p.mu.Lock()
	defer p.mu.Unlock()

	cb, ok := p.breakers[key]
	if !ok {
		cb = newCircuitBreaker(p.name + ":" + key)
		p.breakers[key] = cb
	}
	return cb
}

type conditionPayload struct {
	Text string `json:"text"`
}

type currentPayload struct {
	Location struct {
		Name string `json:"name"`
		TzID string `json:"tz_id"`
	} `json:"location"`
	Current struct {
		TempC      float64          `json:"temp_c"`
		FeelsLikeC float64          `json:"feelslike_c"`
		Condition  conditionPayload `json:"condition"`
		WindKph    float64          `json:"wind_kph"`
		WindDir    string           `json:"wind_dir"`
		Humidity   float64          `json:"humidity"`
		UV         float64          `json:"uv"`
		AirQuality *struct {
			CO       float64 `json:"co"`
			NO2      float64 `json:"no2"`
			O3       float64 `json:"o3"`
			SO2      float64 `json:"so2"`
			PM25     float64 `json:"pm2_5"`
			PM10     float64 `json:"pm10"`
			EPAIndex int     `json:"us-epa-index"`
		} `json:"air_quality"`
	} `json:"current"`
}

type forecastPayload struct {
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC          float64          `json:"maxtemp_c"`
				MinTempC          float64          `json:"mintemp_c"`
				MaxWindKph        float64          `json:"maxwind_kph"`
				AvgHumidity       float64          `json:"avghumidity"`
				DailyWillItRain   int              `json:"daily_will_it_rain"`
				DailyChanceOfRain int              `json:"daily_chance_of_rain"`
				DailyChanceOfSnow int              `json:"daily_chance_of_snow"`
				Condition         conditionPayload `json:"condition"`
				UV                float64          `json:"uv"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// FetchCurrent fetches current conditions and air quality for a city.
func (p *WeatherAPIProvider) FetchCurrent(ctx context.Context, city string) (weather.CurrentWeather, error) {
	values := url.Values{}
	values.Set("aqi", "yes")

	var payload currentPayload
	if err := p.get(ctx, "current.json", city, values, &payload); err != nil {
		return weather.CurrentWeather{}, weather.WrapProviderError(city, "weather", err)
	}

	cur := payload.Current
	aqi := weather.AirQuality{AQI: 1}
	if cur.AirQuality != nil {
		if cur.AirQuality.EPAIndex != 0 {
			aqi.AQI = cur.AirQuality.EPAIndex
		}
		aqi.PM25 = cur.AirQuality.PM25
		aqi.PM10 = cur.AirQuality.PM10
		aqi.CO = cur.AirQuality.CO
		aqi.NO2 = cur.AirQuality.NO2
		aqi.O3 = cur.AirQuality.O3
		aqi.SO2 = cur.AirQuality.SO2
	}
	aqi.Category, aqi.Color = weather.AQICategory(aqi.AQI)

	return weather.CurrentWeather{
		City:          payload.Location.Name,
		Temperature:   common.Round(cur.TempC),
		FeelsLike:     common.Round(cur.FeelsLikeC),
		Condition:     cur.Condition.Text,
		Humidity:      common.Round(cur.Humidity),
		WindSpeed:     common.Round(cur.WindKph),
		WindDirection: cur.WindDir,
		UVIndex:       cur.UV,
		Timezone:      payload.Location.TzID,
		AirQuality:    aqi,
	}, nil
}

// FetchForecast fetches a days-long daily forecast for a city.
func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, city string, days int) ([]weather.ForecastDay, error) {
	if days <= 0 {
		days = weather.DefaultForecastDays
	}
	values := url.Values{}
	values.Set("days", strconv.Itoa(days))
	values.Set("aqi", "no")

	var payload forecastPayload
	if err := p.get(ctx, "forecast.json", city, values, &payload); err != nil {
		return nil, weather.WrapProviderError(city, "forecast", err)
	}

	out := make([]weather.ForecastDay, 0, len(payload.Forecast.ForecastDay))
	for _, fd := range payload.Forecast.ForecastDay {
		date, err := weather.ParseDate(fd.Date)
		if err != nil {
			return nil, weather.WrapProviderError(city, "forecast", err)
		}

		// Binary choice: rain chance when rain is expected, snow chance otherwise.
		precip := fd.Day.DailyChanceOfSnow
		if fd.Day.DailyWillItRain != 0 {
			precip = fd.Day.DailyChanceOfRain
		}

		out = append(out, weather.ForecastDay{
			Date:                     date,
			MinTemp:                  common.Round(fd.Day.MinTempC),
			MaxTemp:                  common.Round(fd.Day.MaxTempC),
			Condition:                fd.Day.Condition.Text,
			Humidity:                 common.Round(fd.Day.AvgHumidity),
			WindSpeed:                common.Round(fd.Day.MaxWindKph),
			UVIndex:                  fd.Day.UV,
			PrecipitationProbability: precip,
		})
	}
	return out, nil
}

func (p *WeatherAPIProvider) get(ctx context.Context, endpoint, city string, values url.Values, dst any) error {
	if strings.TrimSpace(city) == "" {
		return &weather.ProviderError{Kind: weather.KindInvalidCity, City: city, Message: "city must not be empty"}
	}

	values.Set("key", p.apiKey)
	values.Set("q", city)
	u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Cache-Control", "no-store")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.breaker(city), city, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
