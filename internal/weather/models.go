package weather

import (
	"encoding/json"
	"fmt"
	"time"
)

// AlertType identifies a hazard derived from current conditions.
type AlertType string

const (
	AlertHeatwave     AlertType = "heatwave"
	AlertColdSnap     AlertType = "coldsnap"
	AlertHeavyRain    AlertType = "heavyrain"
	AlertSnow         AlertType = "snow"
	AlertThunderstorm AlertType = "thunderstorm"
	AlertHighWind     AlertType = "highwind"
)

// Alert is a derived hazard warning. Alerts are recomputed on every refresh.
type Alert struct {
	Type    AlertType `json:"type"`
	Icon    string    `json:"icon"`
	Message string    `json:"message"`
}

// AirQuality summarises pollutant levels using the US EPA index (1-6).
type AirQuality struct {
	AQI      int     `json:"aqi"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
	PM25     float64 `json:"pm2_5"`
	PM10     float64 `json:"pm10"`
	CO       float64 `json:"co"`
	NO2      float64 `json:"no2"`
	O3       float64 `json:"o3"`
	SO2      float64 `json:"so2"`
}

// CurrentWeather is the normalized reading from a provider's current endpoint.
type CurrentWeather struct {
	City          string
	Temperature   int
	FeelsLike     int
	Condition     string
	Humidity      int
	WindSpeed     int
	WindDirection string
	UVIndex       float64
	Timezone      string
	AirQuality    AirQuality
}

// ForecastDay is one calendar day of forecast. Date is midnight UTC.
type ForecastDay struct {
	Date                     time.Time `json:"-"`
	MinTemp                  int       `json:"minTemp"`
	MaxTemp                  int       `json:"maxTemp"`
	Condition                string    `json:"condition"`
	Humidity                 int       `json:"humidity"`
	WindSpeed                int       `json:"windSpeed"`
	UVIndex                  float64   `json:"uvIndex"`
	PrecipitationProbability int       `json:"precipitationProbability"`
}

const dateLayout = "2006-01-02"

type forecastDayJSON struct {
	Date string `json:"date"`
	forecastDayAlias
}

type forecastDayAlias ForecastDay

// MarshalJSON renders Date as a plain calendar day.
func (f ForecastDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(forecastDayJSON{
		Date:             f.Date.UTC().Format(dateLayout),
		forecastDayAlias: forecastDayAlias(f),
	})
}

func (f *ForecastDay) UnmarshalJSON(data []byte) error {
	var aux forecastDayJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d, err := ParseDate(aux.Date)
	if err != nil {
		return err
	}
	*f = ForecastDay(aux.forecastDayAlias)
	f.Date = d
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar day into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid forecast date %q: %w", s, err)
	}
	return d, nil
}

// Record is the cached weather view of one configured city.
// City is the unique key.
type Record struct {
	ID                       int64         `json:"id,omitempty"`
	City                     string        `json:"city"`
	Temperature              int           `json:"temperature"`
	FeelsLike                int           `json:"feelsLike"`
	Condition                string        `json:"condition"`
	Humidity                 int           `json:"humidity"`
	WindSpeed                int           `json:"windSpeed"`
	WindDirection            string        `json:"windDirection"`
	UVIndex                  float64       `json:"uvIndex"`
	PrecipitationProbability int           `json:"precipitationProbability"`
	AirQuality               AirQuality    `json:"airQuality"`
	Timezone                 string        `json:"timezone"`
	Alerts                   []Alert       `json:"alerts"`
	LastUpdated              time.Time     `json:"lastUpdated"`
	Forecasts                []ForecastDay `json:"forecasts"`
}

// Clone returns a deep copy so callers can't mutate shared slices.
func (r Record) Clone() Record {
	out := r
	if r.Alerts != nil {
		out.Alerts = append([]Alert(nil), r.Alerts...)
	}
	if r.Forecasts != nil {
		out.Forecasts = append([]ForecastDay(nil), r.Forecasts...)
	}
	return out
}
