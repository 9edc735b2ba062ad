package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/i474232898/weather-report/internal/weather"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a DBTX that can open transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists weather records in the weather and forecast tables.
// Alerts are kept as a JSONB column and never leave this type as raw text.
type PostgresStore struct {
	db TxBeginner
}

var _ weather.Store = (*PostgresStore)(nil)

func NewPostgresStore(db TxBeginner) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: apply schema: %v", weather.ErrStore, err)
	}
	return nil
}

const listRecordsSQL = `
SELECT w.id, w.city, w.temperature, w.feels_like, w.condition, w.humidity,
       w.wind_speed, w.wind_direction, w.uv_index, w.precipitation_probability,
       w.air_quality_aqi, w.air_quality_category, w.air_quality_color,
       w.air_quality_pm25, w.air_quality_pm10, w.air_quality_co,
       w.air_quality_no2, w.air_quality_o3, w.air_quality_so2,
       w.timezone, w.alerts, w.last_updated,
       f.date, f.min_temp, f.max_temp, f.condition, f.humidity,
       f.wind_speed, f.uv_index, f.precipitation_probability
FROM weather w
LEFT JOIN forecast f ON f.weather_id = w.id
ORDER BY w.id, f.date ASC`

// ListRecords reads every record joined with its forecast days.
func (s *PostgresStore) ListRecords(ctx context.Context) ([]weather.Record, error) {
	rows, err := s.db.Query(ctx, listRecordsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query weather: %v", weather.ErrStore, err)
	}
	defer rows.Close()

	var (
		records []weather.Record
		byID    = make(map[int64]int)
	)

	for rows.Next() {
		var (
			rec    weather.Record
			alerts []byte

			fDate      *time.Time
			fMin, fMax *int
			fCondition *string
			fHumidity  *int
			fWind      *int
			fUV        *float64
			fPrecip    *int
		)
		aq := &rec.AirQuality
		if err := rows.Scan(
			&rec.ID, &rec.City, &rec.Temperature, &rec.FeelsLike, &rec.Condition, &rec.Humidity,
			&rec.WindSpeed, &rec.WindDirection, &rec.UVIndex, &rec.PrecipitationProbability,
			&aq.AQI, &aq.Category, &aq.Color,
			&aq.PM25, &aq.PM10, &aq.CO,
			&aq.NO2, &aq.O3, &aq.SO2,
			&rec.Timezone, &alerts, &rec.LastUpdated,
			&fDate, &fMin, &fMax, &fCondition, &fHumidity,
			&fWind, &fUV, &fPrecip,
		); err != nil {
			return nil, fmt.Errorf("%w: scan weather row: %v", weather.ErrStore, err)
		}

		idx, seen := byID[rec.ID]
		if !seen {
			decoded, err := decodeAlerts(alerts)
			if err != nil {
				return nil, fmt.Errorf("%w: decode alerts for %s: %v", weather.ErrStore, rec.City, err)
			}
			rec.Alerts = decoded
			rec.Forecasts = []weather.ForecastDay{}
			rec.LastUpdated = rec.LastUpdated.UTC()
			records = append(records, rec)
			idx = len(records) - 1
			byID[rec.ID] = idx
		}

		// LEFT JOIN yields a NULL forecast row for records without forecasts.
		if fDate == nil {
			continue
		}
		records[idx].Forecasts = append(records[idx].Forecasts, weather.ForecastDay{
			Date:                     time.Date(fDate.Year(), fDate.Month(), fDate.Day(), 0, 0, 0, 0, time.UTC),
			MinTemp:                  deref(fMin),
			MaxTemp:                  deref(fMax),
			Condition:                deref(fCondition),
			Humidity:                 deref(fHumidity),
			WindSpeed:                deref(fWind),
			UVIndex:                  deref(fUV),
			PrecipitationProbability: deref(fPrecip),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate weather rows: %v", weather.ErrStore, err)
	}

	if records == nil {
		records = []weather.Record{}
	}
	return records, nil
}

const upsertWeatherSQL = `
INSERT INTO weather (
    city, temperature, feels_like, condition, humidity, wind_speed, wind_direction,
    uv_index, precipitation_probability,
    air_quality_aqi, air_quality_category, air_quality_color,
    air_quality_pm25, air_quality_pm10, air_quality_co,
    air_quality_no2, air_quality_o3, air_quality_so2,
    timezone, alerts, last_updated
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (city) DO UPDATE SET
    temperature               = EXCLUDED.temperature,
    feels_like                = EXCLUDED.feels_like,
    condition                 = EXCLUDED.condition,
    humidity                  = EXCLUDED.humidity,
    wind_speed                = EXCLUDED.wind_speed,
    wind_direction            = EXCLUDED.wind_direction,
    uv_index                  = EXCLUDED.uv_index,
    precipitation_probability = EXCLUDED.precipitation_probability,
    air_quality_aqi           = EXCLUDED.air_quality_aqi,
    air_quality_category      = EXCLUDED.air_quality_category,
    air_quality_color         = EXCLUDED.air_quality_color,
    air_quality_pm25          = EXCLUDED.air_quality_pm25,
    air_quality_pm10          = EXCLUDED.air_quality_pm10,
    air_quality_co            = EXCLUDED.air_quality_co,
    air_quality_no2           = EXCLUDED.air_quality_no2,
    air_quality_o3            = EXCLUDED.air_quality_o3,
    air_quality_so2           = EXCLUDED.air_quality_so2,
    timezone                  = EXCLUDED.timezone,
    alerts                    = EXCLUDED.alerts,
    last_updated              = EXCLUDED.last_updated
RETURNING id`

const deleteForecastsSQL = `DELETE FROM forecast WHERE weather_id = $1`

const insertForecastSQL = `
INSERT INTO forecast (
    weather_id, date, min_temp, max_temp, condition, humidity,
    wind_speed, uv_index, precipitation_probability
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// UpsertBatch writes every record in a single transaction. Each record's
// forecast rows are deleted and recreated. Any failure rolls back the batch.
func (s *PostgresStore) UpsertBatch(ctx context.Context, records []weather.Record) error {
	alertBlobs := make([][]byte, len(records))
	for i, r := range records {
		if r.City == "" {
			return fmt.Errorf("%w: %w", weather.ErrStore, ErrEmptyCity)
		}
		blob, err := encodeAlerts(r.Alerts)
		if err != nil {
			return fmt.Errorf("%w: encode alerts for %s: %v", weather.ErrStore, r.City, err)
		}
		alertBlobs[i] = blob
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", weather.ErrStore, err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, r := range records {
		aq := r.AirQuality
		var id int64
		err := tx.QueryRow(ctx, upsertWeatherSQL,
			r.City, r.Temperature, r.FeelsLike, r.Condition, r.Humidity, r.WindSpeed, r.WindDirection,
			r.UVIndex, r.PrecipitationProbability,
			aq.AQI, aq.Category, aq.Color,
			aq.PM25, aq.PM10, aq.CO,
			aq.NO2, aq.O3, aq.SO2,
			r.Timezone, alertBlobs[i], r.LastUpdated.UTC(),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("%w: upsert %s: %v", weather.ErrStore, r.City, err)
		}

		if _, err := tx.Exec(ctx, deleteForecastsSQL, id); err != nil {
			return fmt.Errorf("%w: clear forecasts for %s: %v", weather.ErrStore, r.City, err)
		}

		for _, f := range r.Forecasts {
			if _, err := tx.Exec(ctx, insertForecastSQL,
				id, f.Date.UTC(), f.MinTemp, f.MaxTemp, f.Condition, f.Humidity,
				f.WindSpeed, f.UVIndex, f.PrecipitationProbability,
			); err != nil {
				return fmt.Errorf("%w: insert forecast for %s: %v", weather.ErrStore, r.City, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", weather.ErrStore, err)
	}
	return nil
}

func encodeAlerts(alerts []weather.Alert) ([]byte, error) {
	if alerts == nil {
		alerts = []weather.Alert{}
	}
	return json.Marshal(alerts)
}

func decodeAlerts(blob []byte) ([]weather.Alert, error) {
	alerts := []weather.Alert{}
	if len(blob) == 0 {
		return alerts, nil
	}
	if err := json.Unmarshal(blob, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
