// Package aggregate maintains the per-hour average records derived
// from the raw reading log.
//
// The aggregator recomputes a bucket's averages from scratch on every
// triggering write instead of merging incrementally. That costs a
// re-read of the hour's readings per write, but it makes the aggregate
// idempotent: concurrent or out-of-order writers converge to the same
// correct averages regardless of interleaving.
package aggregate

import (
	"context"
	"time"

	"github.com/nesarahmed/airsense/pkg/sensor"
	"github.com/nesarahmed/airsense/pkg/storage"
)

// Bucket is the (date, hour) key under which readings are aggregated.
type Bucket struct {
	Date time.Time
	Hour int
}

// BucketAt returns the bucket for the given wall-clock instant.
// Bucketing keys off the server's processing time, not the reading's
// own timestamp: two readings submitted near an hour boundary can land
// in different buckets depending on when the server handles them.
func BucketAt(now time.Time) Bucket {
	return Bucket{Date: sensor.DayOf(now), Hour: now.Hour()}
}

// Window returns the bucket's half-open time window [start, start+1h).
func (b Bucket) Window() (start, end time.Time) {
	start = b.Date.Add(time.Duration(b.Hour) * time.Hour)
	return start, start.Add(time.Hour)
}

// Fields holds the recomputed aggregate values for one bucket.
type Fields struct {
	AverageTemperature float64
	AverageHumidity    float64
	AverageGasValue    float64
	SoundEvents        int
}

// Recompute derives aggregate fields from the full set of readings in
// a bucket: arithmetic means for temperature, humidity and gas, and a
// count of sound-detected events. ok is false when readings is empty.
func Recompute(readings []sensor.Reading) (f Fields, ok bool) {
	if len(readings) == 0 {
		return Fields{}, false
	}

	var sumTemp, sumHumidity, sumGas float64
	for _, r := range readings {
		sumTemp += r.Temperature
		sumHumidity += r.Humidity
		sumGas += r.GasValue
		if r.SoundDetected {
			f.SoundEvents++
		}
	}

	n := float64(len(readings))
	f.AverageTemperature = sumTemp / n
	f.AverageHumidity = sumHumidity / n
	f.AverageGasValue = sumGas / n
	return f, true
}

// Aggregator applies triggering writes to the hourly aggregate store.
type Aggregator struct {
	store storage.Store
	now   func() time.Time
}

// New creates an aggregator over the given store.
func New(store storage.Store) *Aggregator {
	return NewWithClock(store, time.Now)
}

// NewWithClock creates an aggregator with an injected clock. Tests use
// this to pin the bucket a write lands in.
func NewWithClock(store storage.Store, now func() time.Time) *Aggregator {
	return &Aggregator{store: store, now: now}
}

// Apply updates the aggregate for the current wall-clock bucket after
// the triggering reading has been persisted.
//
// The first reading of a bucket seeds the record directly from the
// triggering values, skipping the scan. Every later reading re-queries
// the full hour window and recomputes.
func (a *Aggregator) Apply(ctx context.Context, triggering sensor.Reading) (*sensor.HourlyAggregate, error) {
	now := a.now()
	bucket := BucketAt(now)

	existing, err := a.store.GetAggregate(ctx, bucket.Date, bucket.Hour)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		agg := sensor.HourlyAggregate{
			Date:               bucket.Date,
			Hour:               bucket.Hour,
			AverageTemperature: triggering.Temperature,
			AverageHumidity:    triggering.Humidity,
			AverageGasValue:    triggering.GasValue,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if triggering.SoundDetected {
			agg.SoundEvents = 1
		}
		if err := a.store.UpsertAggregate(ctx, agg); err != nil {
			return nil, err
		}
		return &agg, nil
	}

	start, end := bucket.Window()
	readings, err := a.store.ReadingsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	fields, ok := Recompute(readings)
	if !ok {
		// The window is computed independently of the read that
		// triggered us, so a race can in principle return zero rows.
		// Fall back to the triggering reading rather than divide by
		// zero.
		fields, _ = Recompute([]sensor.Reading{triggering})
	}

	existing.AverageTemperature = fields.AverageTemperature
	existing.AverageHumidity = fields.AverageHumidity
	existing.AverageGasValue = fields.AverageGasValue
	existing.SoundEvents = fields.SoundEvents
	existing.UpdatedAt = now

	if err := a.store.UpsertAggregate(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}
