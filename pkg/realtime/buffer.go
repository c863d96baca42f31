// Package realtime holds the bounded in-memory buffer behind the
// dashboard's "live" view. The buffer keeps the most recent readings
// that represent changed state, so repeated identical samples do not
// crowd out real activity. It has no durability: a process restart
// empties it, and the query path reseeds it from the newest durable
// reading so the live view is never blank.
package realtime

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/nesarahmed/airsense/pkg/sensor"
)

// Entry is one buffered reading plus the instant it was observed.
type Entry struct {
	sensor.Reading
	Timestamp time.Time `json:"timestamp"`
}

// LatestSource supplies the newest durable reading for backfill.
type LatestSource interface {
	LatestReading(ctx context.Context) (*sensor.Reading, error)
}

// Buffer is a process-wide bounded buffer of recent readings,
// deduplicated by value change. Construct one per server process and
// pass it to handlers by reference.
type Buffer struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int

	// lastFP fingerprints the last appended reading. It advances only
	// on Append, never on backfill, matching the ingest-side dedup
	// semantics of the original dashboard API.
	lastFP  uint64
	hasLast bool

	now func() time.Time
}

// New creates a buffer holding at most capacity entries.
func New(capacity int) *Buffer {
	return &Buffer{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Append adds the reading unless it is value-identical to the last
// appended one. Returns true when the buffer changed. The oldest entry
// is evicted once the bound is exceeded.
func (b *Buffer) Append(r sensor.Reading) bool {
	fp := fingerprint(r)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hasLast && fp == b.lastFP {
		return false
	}

	b.entries = append(b.entries, Entry{Reading: r, Timestamp: b.now()})
	if len(b.entries) > b.capacity {
		b.entries = b.entries[1:]
	}
	b.lastFP = fp
	b.hasLast = true
	return true
}

// Snapshot returns a copy of the buffer contents in insertion order,
// oldest first. It never blocks on storage.
func (b *Buffer) Snapshot() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the current number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// BackfillIfEmpty seeds a single entry from the newest durable reading
// when the buffer is empty, so a fresh process still serves a live
// view. No-op when the buffer already has entries or the store is
// empty. The seeded entry keeps the reading's own timestamp.
func (b *Buffer) BackfillIfEmpty(ctx context.Context, src LatestSource) error {
	if b.Len() > 0 {
		return nil
	}

	latest, err := src.LatestReading(ctx)
	if err != nil {
		return err
	}
	if latest == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Re-check under the lock; an ingest may have raced us here.
	if len(b.entries) > 0 {
		return nil
	}
	b.entries = append(b.entries, Entry{Reading: *latest, Timestamp: latest.CreatedAt})
	return nil
}

// fingerprint hashes the four value fields of a reading. CreatedAt is
// deliberately excluded: dedup is by value change only.
func fingerprint(r sensor.Reading) uint64 {
	var buf [25]byte
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(r.Temperature))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(r.Humidity))
	binary.BigEndian.PutUint64(buf[16:24], math.Float64bits(r.GasValue))
	if r.SoundDetected {
		buf[24] = 1
	}
	return xxhash.Sum64(buf[:])
}
