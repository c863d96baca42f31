package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nesarahmed/airsense/pkg/sensor"
	"github.com/nesarahmed/airsense/pkg/storage"
)

// Store keeps readings and aggregates in memory. Data is lost on
// restart. Useful for testing and development.
type Store struct {
	readings   []sensor.Reading
	aggregates map[string]sensor.HourlyAggregate
	mu         sync.RWMutex
}

// New creates an in-memory storage backend
func New() *Store {
	return &Store{
		readings:   make([]sensor.Reading, 0, 1024),
		aggregates: make(map[string]sensor.HourlyAggregate),
	}
}

// InsertReading appends a reading to the in-memory log
func (s *Store) InsertReading(ctx context.Context, r sensor.Reading) (sensor.Reading, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = append(s.readings, r)
	return r, nil
}

// ReadingsBetween returns readings in [start, end), ordered by CreatedAt
func (s *Store) ReadingsBetween(ctx context.Context, start, end time.Time) ([]sensor.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []sensor.Reading
	for _, r := range s.readings {
		if r.CreatedAt.Before(start) || !r.CreatedAt.Before(end) {
			continue
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

// LatestReading returns the newest reading, or nil when empty
func (s *Store) LatestReading(ctx context.Context) (*sensor.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.readings) == 0 {
		return nil, nil
	}

	latest := s.readings[0]
	for _, r := range s.readings[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return &latest, nil
}

// GetAggregate returns the aggregate for (date, hour), or nil
func (s *Store) GetAggregate(ctx context.Context, date time.Time, hour int) (*sensor.HourlyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, ok := s.aggregates[bucketKey(date, hour)]
	if !ok {
		return nil, nil
	}
	return &agg, nil
}

// UpsertAggregate creates or replaces the aggregate for its bucket
func (s *Store) UpsertAggregate(ctx context.Context, agg sensor.HourlyAggregate) error {
	agg.Date = sensor.DayOf(agg.Date)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.aggregates[bucketKey(agg.Date, agg.Hour)] = agg
	return nil
}

// AggregatesForDate returns the day's aggregates sorted by hour
func (s *Store) AggregatesForDate(ctx context.Context, date time.Time) ([]sensor.HourlyAggregate, error) {
	day := sensor.DayOf(date).Format(time.DateOnly)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []sensor.HourlyAggregate
	for _, agg := range s.aggregates {
		if agg.Date.Format(time.DateOnly) == day {
			results = append(results, agg)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Hour < results[j].Hour
	})
	return results, nil
}

// DateRange returns the min/max aggregate dates, or nil when none exist
func (s *Store) DateRange(ctx context.Context) (*sensor.DateRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.aggregates) == 0 {
		return nil, nil
	}

	var minDate, maxDate string
	for _, agg := range s.aggregates {
		d := agg.Date.Format(time.DateOnly)
		if minDate == "" || d < minDate {
			minDate = d
		}
		if d > maxDate {
			maxDate = d
		}
	}
	return &sensor.DateRange{MinDate: minDate, MaxDate: maxDate}, nil
}

// DeleteReadingsBefore removes readings older than cutoff
func (s *Store) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]sensor.Reading, 0, len(s.readings))
	for _, r := range s.readings {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, r)
	}

	deleted := len(s.readings) - len(kept)
	s.readings = kept
	return deleted, nil
}

// Stats returns storage statistics
func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.Stats{
		TotalReadings:   uint64(len(s.readings)),
		TotalAggregates: uint64(len(s.aggregates)),
	}

	if len(s.readings) == 0 {
		return stats, nil
	}

	oldest := s.readings[0].CreatedAt
	newest := s.readings[0].CreatedAt
	for _, r := range s.readings[1:] {
		if r.CreatedAt.Before(oldest) {
			oldest = r.CreatedAt
		}
		if r.CreatedAt.After(newest) {
			newest = r.CreatedAt
		}
	}
	stats.OldestReading = oldest
	stats.NewestReading = newest
	return stats, nil
}

// Close is a no-op for memory storage
func (s *Store) Close() error {
	return nil
}

// bucketKey creates a deterministic key for a (date, hour) bucket
func bucketKey(date time.Time, hour int) string {
	return sensor.DayOf(date).Format(time.DateOnly) + "#" + itoa2(hour)
}

func itoa2(n int) string {
	return string([]byte{'0' + byte(n/10), '0' + byte(n%10)})
}
