package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/i474232898/weather-report/internal/weather"
)

var (
	// ErrEmptyCity is returned when a record without a city key is written.
	ErrEmptyCity = errors.New("record has empty city")
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// Records keep their first-insert order.
type MemoryStore struct {
	mu sync.RWMutex

	// key: city, value: index into records
	index   map[string]int
	records []weather.Record
	nextID  int64
}

var _ weather.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index:  make(map[string]int),
		nextID: 1,
	}
}

// ListRecords returns deep copies of all records, forecasts ascending by date.
func (s *MemoryStore) ListRecords(ctx context.Context) ([]weather.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrStore, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

// UpsertBatch validates the whole batch before touching state, then applies
// it under one lock so readers see all of it or none of it.
func (s *MemoryStore) UpsertBatch(ctx context.Context, records []weather.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrStore, err)
	}
	for _, r := range records {
		if r.City == "" {
			return fmt.Errorf("%w: %w", weather.ErrStore, ErrEmptyCity)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		rec := r.Clone()
		sortForecasts(rec.Forecasts)
		if rec.Alerts == nil {
			rec.Alerts = []weather.Alert{}
		}
		if rec.Forecasts == nil {
			rec.Forecasts = []weather.ForecastDay{}
		}

		if i, ok := s.index[rec.City]; ok {
			rec.ID = s.records[i].ID
			s.records[i] = rec
			continue
		}

		rec.ID = s.nextID
		s.nextID++
		s.index[rec.City] = len(s.records)
		s.records = append(s.records, rec)
	}
	return nil
}

func sortForecasts(days []weather.ForecastDay) {
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
}
