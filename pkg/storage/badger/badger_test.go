package badger

import (
	"context"
	"testing"
	"time"

	"github.com/nesarahmed/airsense/pkg/sensor"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("failed to create badger store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerStore_InsertAndReadBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 15, 14, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := store.InsertReading(ctx, sensor.Reading{
			Temperature:   20 + float64(i),
			Humidity:      50,
			GasValue:      100,
			SoundDetected: i%2 == 0,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	results, err := store.ReadingsBetween(ctx, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ReadingsBetween failed: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 readings, got %d", len(results))
	}
	for i, r := range results {
		if r.Temperature != 20+float64(i) {
			t.Errorf("readings out of key order: index %d has temperature %v", i, r.Temperature)
		}
	}
}

func TestBadgerStore_SameTimestampReadingsSurvive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 3, 15, 14, 0, 0, 0, time.UTC)

	// Two readings at the same nanosecond must both persist; the
	// sequence suffix keeps their keys distinct.
	for _, temp := range []float64{20, 21} {
		if _, err := store.InsertReading(ctx, sensor.Reading{Temperature: temp, CreatedAt: ts}); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	results, err := store.ReadingsBetween(ctx, ts, ts.Add(time.Second))
	if err != nil {
		t.Fatalf("ReadingsBetween failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both same-timestamp readings, got %d", len(results))
	}
}

func TestBadgerStore_ReadingsBetweenHalfOpen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 15, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	for _, ts := range []time.Time{start.Add(-time.Nanosecond), start, end} {
		if _, err := store.InsertReading(ctx, sensor.Reading{Temperature: 20, CreatedAt: ts}); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	results, err := store.ReadingsBetween(ctx, start, end)
	if err != nil {
		t.Fatalf("ReadingsBetween failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 reading in [start, end), got %d", len(results))
	}
}

func TestBadgerStore_LatestReading(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	latest, err := store.LatestReading(ctx)
	if err != nil {
		t.Fatalf("LatestReading failed: %v", err)
	}
	if latest != nil {
		t.Fatal("LatestReading on empty store should return nil")
	}

	base := time.Date(2025, 3, 15, 14, 0, 0, 0, time.UTC)
	for i, temp := range []float64{20, 23, 21} {
		if _, err := store.InsertReading(ctx, sensor.Reading{
			Temperature: temp,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	latest, err = store.LatestReading(ctx)
	if err != nil {
		t.Fatalf("LatestReading failed: %v", err)
	}
	if latest == nil || latest.Temperature != 21 {
		t.Errorf("expected newest reading (21), got %+v", latest)
	}
}

func TestBadgerStore_AggregateLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	got, err := store.GetAggregate(ctx, date, 14)
	if err != nil {
		t.Fatalf("GetAggregate failed: %v", err)
	}
	if got != nil {
		t.Fatal("GetAggregate for missing bucket should return nil")
	}

	agg := sensor.HourlyAggregate{
		Date:               date,
		Hour:               14,
		AverageTemperature: 21.5,
		AverageHumidity:    48,
		AverageGasValue:    130,
		SoundEvents:        2,
	}
	if err := store.UpsertAggregate(ctx, agg); err != nil {
		t.Fatalf("UpsertAggregate failed: %v", err)
	}

	agg.AverageTemperature = 22
	if err := store.UpsertAggregate(ctx, agg); err != nil {
		t.Fatalf("UpsertAggregate failed: %v", err)
	}

	got, err = store.GetAggregate(ctx, date, 14)
	if err != nil {
		t.Fatalf("GetAggregate failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected an aggregate after upsert")
	}
	if got.AverageTemperature != 22 || got.SoundEvents != 2 {
		t.Errorf("aggregate round-trip mismatch: %+v", got)
	}

	aggs, err := store.AggregatesForDate(ctx, date)
	if err != nil {
		t.Fatalf("AggregatesForDate failed: %v", err)
	}
	if len(aggs) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(aggs))
	}
}

func TestBadgerStore_AggregatesForDateSortedByHour(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	// Insertion order deliberately scrambled; the zero-padded hour in
	// the key makes iteration come back sorted.
	for _, hour := range []int{15, 3, 9, 0, 23} {
		if err := store.UpsertAggregate(ctx, sensor.HourlyAggregate{Date: date, Hour: hour}); err != nil {
			t.Fatalf("UpsertAggregate failed: %v", err)
		}
	}

	aggs, err := store.AggregatesForDate(ctx, date)
	if err != nil {
		t.Fatalf("AggregatesForDate failed: %v", err)
	}
	want := []int{0, 3, 9, 15, 23}
	if len(aggs) != len(want) {
		t.Fatalf("expected %d aggregates, got %d", len(want), len(aggs))
	}
	for i, hour := range want {
		if aggs[i].Hour != hour {
			t.Errorf("aggs[%d].Hour = %d, want %d", i, aggs[i].Hour, hour)
		}
	}
}

func TestBadgerStore_DateRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dr, err := store.DateRange(ctx)
	if err != nil {
		t.Fatalf("DateRange failed: %v", err)
	}
	if dr != nil {
		t.Fatal("DateRange with no aggregates should return nil")
	}

	for _, day := range []int{20, 10, 15} {
		date := time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC)
		if err := store.UpsertAggregate(ctx, sensor.HourlyAggregate{Date: date, Hour: 12}); err != nil {
			t.Fatalf("UpsertAggregate failed: %v", err)
		}
	}

	dr, err = store.DateRange(ctx)
	if err != nil {
		t.Fatalf("DateRange failed: %v", err)
	}
	if dr == nil {
		t.Fatal("expected a date range")
	}
	if dr.MinDate != "2025-03-10" || dr.MaxDate != "2025-03-20" {
		t.Errorf("DateRange = %+v, want 2025-03-10 .. 2025-03-20", dr)
	}
}

func TestBadgerStore_DeleteReadingsBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cutoff := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{-48 * time.Hour, -time.Hour, time.Hour} {
		if _, err := store.InsertReading(ctx, sensor.Reading{Temperature: 20, CreatedAt: cutoff.Add(offset)}); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}

	deleted, err := store.DeleteReadingsBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeleteReadingsBefore failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	remaining, err := store.ReadingsBetween(ctx, cutoff.Add(-72*time.Hour), cutoff.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("ReadingsBetween failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("expected 1 surviving reading, got %d", len(remaining))
	}
}

func TestBadgerStore_DeleteReadingsBeforeLargeBacklog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	cutoff := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	// A retention-sized backlog must prune in one call.
	for i := 0; i < 500; i++ {
		ts := cutoff.Add(-time.Duration(i+1) * time.Minute)
		if _, err := store.InsertReading(ctx, sensor.Reading{Temperature: 20, CreatedAt: ts}); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}
	if _, err := store.InsertReading(ctx, sensor.Reading{Temperature: 21, CreatedAt: cutoff.Add(time.Minute)}); err != nil {
		t.Fatalf("InsertReading failed: %v", err)
	}

	deleted, err := store.DeleteReadingsBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("DeleteReadingsBefore failed: %v", err)
	}
	if deleted != 500 {
		t.Errorf("deleted = %d, want 500", deleted)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalReadings != 1 {
		t.Errorf("TotalReadings = %d, want 1", stats.TotalReadings)
	}
}

func TestBadgerStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	oldest := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	newest := oldest.Add(6 * time.Hour)

	for _, ts := range []time.Time{oldest, newest} {
		if _, err := store.InsertReading(ctx, sensor.Reading{Temperature: 20, CreatedAt: ts}); err != nil {
			t.Fatalf("InsertReading failed: %v", err)
		}
	}
	if err := store.UpsertAggregate(ctx, sensor.HourlyAggregate{Date: oldest, Hour: 8}); err != nil {
		t.Fatalf("UpsertAggregate failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalReadings != 2 || stats.TotalAggregates != 1 {
		t.Errorf("Stats = %+v", stats)
	}
	if !stats.OldestReading.Equal(oldest) || !stats.NewestReading.Equal(newest) {
		t.Errorf("Stats time bounds wrong: %+v", stats)
	}
}
