package storage

import (
	"context"
	"time"

	"github.com/nesarahmed/airsense/pkg/sensor"
)

// Store defines the interface for durable sensor storage backends.
// Implementations: memory (testing), badger (default), sqlite (SQL deployments)
type Store interface {
	// InsertReading appends a raw reading to the durable log and
	// returns the saved copy. CreatedAt is filled with the current
	// time when zero. Readings are never updated or deduplicated.
	InsertReading(ctx context.Context, r sensor.Reading) (sensor.Reading, error)

	// ReadingsBetween returns readings with CreatedAt in the
	// half-open interval [start, end), ordered by CreatedAt.
	ReadingsBetween(ctx context.Context, start, end time.Time) ([]sensor.Reading, error)

	// LatestReading returns the most recently created reading, or
	// nil when the log is empty.
	LatestReading(ctx context.Context) (*sensor.Reading, error)

	// GetAggregate returns the aggregate for (date, hour), or nil
	// when no readings have landed in that bucket yet.
	GetAggregate(ctx context.Context, date time.Time, hour int) (*sensor.HourlyAggregate, error)

	// UpsertAggregate creates or replaces the aggregate for its
	// (date, hour) bucket. Exactly one record exists per bucket.
	UpsertAggregate(ctx context.Context, agg sensor.HourlyAggregate) error

	// AggregatesForDate returns all aggregates for the given
	// calendar day, sorted ascending by hour.
	AggregatesForDate(ctx context.Context, date time.Time) ([]sensor.HourlyAggregate, error)

	// DateRange returns the min/max dates across all aggregates, or
	// nil when none exist.
	DateRange(ctx context.Context) (*sensor.DateRange, error)

	// DeleteReadingsBefore removes raw readings older than cutoff
	// and returns the number removed. Aggregates are not touched.
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Stats returns storage statistics
	Stats(ctx context.Context) (*Stats, error)

	// Close cleanly shuts down the storage
	Close() error
}

// Stats provides storage health and usage info
type Stats struct {
	// Total raw readings stored
	TotalReadings uint64 `json:"totalReadings"`

	// Total hourly aggregate records
	TotalAggregates uint64 `json:"totalAggregates"`

	// Oldest and newest reading timestamps
	OldestReading time.Time `json:"oldestReading"`
	NewestReading time.Time `json:"newestReading"`
}
