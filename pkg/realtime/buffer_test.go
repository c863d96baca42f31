package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/nesarahmed/airsense/pkg/sensor"
)

func reading(temp float64) sensor.Reading {
	return sensor.Reading{
		Temperature:   temp,
		Humidity:      50,
		GasValue:      120,
		SoundDetected: false,
		CreatedAt:     time.Now(),
	}
}

func TestBuffer_AppendAndSnapshot(t *testing.T) {
	b := New(10)

	if !b.Append(reading(21)) {
		t.Fatal("first append should change the buffer")
	}
	if !b.Append(reading(22)) {
		t.Fatal("append with changed value should change the buffer")
	}

	entries := b.Snapshot()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Temperature != 21 || entries[1].Temperature != 22 {
		t.Errorf("entries out of insertion order: %v", entries)
	}
}

func TestBuffer_DedupByValue(t *testing.T) {
	b := New(10)

	r := reading(21)
	b.Append(r)

	// Same values, different timestamp: still a duplicate.
	dup := r
	dup.CreatedAt = r.CreatedAt.Add(time.Minute)
	if b.Append(dup) {
		t.Error("value-identical append should be suppressed")
	}
	if b.Len() != 1 {
		t.Errorf("expected 1 entry after duplicate, got %d", b.Len())
	}

	// Any single field change breaks the duplicate.
	changed := r
	changed.SoundDetected = true
	if !b.Append(changed) {
		t.Error("append with changed sound flag should not be suppressed")
	}
}

func TestBuffer_DedupComparesOnlyLastAppend(t *testing.T) {
	b := New(10)

	b.Append(reading(21))
	b.Append(reading(22))

	// 21 matches an older entry but not the most recent one.
	if !b.Append(reading(21)) {
		t.Error("dedup should compare against the last append only")
	}
	if b.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", b.Len())
	}
}

func TestBuffer_EvictsOldestAtCapacity(t *testing.T) {
	b := New(100)

	for i := 0; i < 150; i++ {
		b.Append(reading(float64(i)))
	}

	entries := b.Snapshot()
	if len(entries) != 100 {
		t.Fatalf("expected buffer capped at 100, got %d", len(entries))
	}
	if entries[0].Temperature != 50 {
		t.Errorf("oldest surviving entry should be 50, got %v", entries[0].Temperature)
	}
	if entries[99].Temperature != 149 {
		t.Errorf("newest entry should be 149, got %v", entries[99].Temperature)
	}

	// Eviction does not disturb the dedup state: a repeat of the last
	// appended value is still suppressed.
	if b.Append(reading(149)) {
		t.Error("duplicate of the last append should be suppressed after eviction")
	}
}

func TestBuffer_SnapshotIsACopy(t *testing.T) {
	b := New(10)
	b.Append(reading(21))

	snap := b.Snapshot()
	snap[0].Temperature = 999

	if b.Snapshot()[0].Temperature != 21 {
		t.Error("mutating a snapshot must not affect the buffer")
	}
}

type fakeLatest struct {
	reading *sensor.Reading
	err     error
	calls   int
}

func (f *fakeLatest) LatestReading(ctx context.Context) (*sensor.Reading, error) {
	f.calls++
	return f.reading, f.err
}

func TestBuffer_BackfillSeedsFromLatest(t *testing.T) {
	createdAt := time.Now().Add(-2 * time.Hour)
	latest := reading(19)
	latest.CreatedAt = createdAt

	b := New(10)
	src := &fakeLatest{reading: &latest}

	if err := b.BackfillIfEmpty(context.Background(), src); err != nil {
		t.Fatalf("BackfillIfEmpty failed: %v", err)
	}

	entries := b.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("expected 1 seeded entry, got %d", len(entries))
	}
	if entries[0].Temperature != 19 {
		t.Errorf("seeded entry has wrong values: %v", entries[0])
	}
	if !entries[0].Timestamp.Equal(createdAt) {
		t.Errorf("seeded entry should keep the reading's own timestamp, got %v", entries[0].Timestamp)
	}
}

func TestBuffer_BackfillSkipsWhenNonEmpty(t *testing.T) {
	b := New(10)
	b.Append(reading(21))

	src := &fakeLatest{reading: &sensor.Reading{Temperature: 19}}
	if err := b.BackfillIfEmpty(context.Background(), src); err != nil {
		t.Fatalf("BackfillIfEmpty failed: %v", err)
	}

	if src.calls != 0 {
		t.Error("backfill should not touch storage when the buffer has entries")
	}
	if b.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", b.Len())
	}
}

func TestBuffer_BackfillNoOpOnEmptyStore(t *testing.T) {
	b := New(10)
	src := &fakeLatest{reading: nil}

	if err := b.BackfillIfEmpty(context.Background(), src); err != nil {
		t.Fatalf("BackfillIfEmpty failed: %v", err)
	}
	if b.Len() != 0 {
		t.Errorf("expected empty buffer, got %d entries", b.Len())
	}
}

func TestBuffer_BackfillDoesNotAdvanceDedupState(t *testing.T) {
	latest := reading(19)
	b := New(10)
	if err := b.BackfillIfEmpty(context.Background(), &fakeLatest{reading: &latest}); err != nil {
		t.Fatalf("BackfillIfEmpty failed: %v", err)
	}

	// A seeded entry never suppresses the next append, even when the
	// values are identical to the seed.
	if !b.Append(reading(19)) {
		t.Error("append after backfill should not be treated as a duplicate")
	}
	if b.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", b.Len())
	}
}
