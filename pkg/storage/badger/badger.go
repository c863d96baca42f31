package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/nesarahmed/airsense/pkg/sensor"
	"github.com/nesarahmed/airsense/pkg/storage"
)

// Key layout:
//
//	readings:   'r' '/' [timestamp (8 bytes)] [seq (4 bytes)]
//	aggregates: 'a' '/' "YYYY-MM-DD" '/' "HH"
//
// Reading keys sort by timestamp, so range scans over [start, end) are
// plain key-ordered iterations. The seq suffix disambiguates readings
// created in the same nanosecond. Aggregate keys sort by date then
// zero-padded hour, which gives AggregatesForDate its ascending order
// for free.
var (
	readingPrefix   = []byte("r/")
	aggregatePrefix = []byte("a/")
)

// Store implements storage.Store using BadgerDB (LSM tree)
type Store struct {
	db  *badger.DB
	seq atomic.Uint32
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = laptop-friendly defaults)
	MaxMemoryMB int64
}

// New creates a BadgerDB storage backend
func New(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// BadgerDB's defaults assume server hardware. Sensor volumes are
	// tiny (one reading every few seconds), so a 16 MB memtable is
	// plenty and keeps the footprint suitable for a Raspberry Pi.
	memTableSize := int64(16 * 1024 * 1024)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3
	}

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3).
		WithBlockCacheSize(memTableSize / 2).
		WithIndexCacheSize(memTableSize / 4).
		WithMaxLevels(4).
		WithNumCompactors(1).
		WithValueThreshold(1024).
		WithValueLogFileSize(64 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{db: db}, nil
}

// InsertReading appends a reading to the durable log
func (s *Store) InsertReading(ctx context.Context, r sensor.Reading) (sensor.Reading, error) {
	if err := ctx.Err(); err != nil {
		return sensor.Reading{}, err
	}

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	value, err := json.Marshal(r)
	if err != nil {
		return sensor.Reading{}, fmt.Errorf("failed to encode reading: %w", err)
	}

	key := readingKey(r.CreatedAt, s.seq.Add(1))
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return sensor.Reading{}, fmt.Errorf("failed to write reading: %w", err)
	}
	return r, nil
}

// ReadingsBetween returns readings in [start, end), ordered by CreatedAt
func (s *Store) ReadingsBetween(ctx context.Context, start, end time.Time) ([]sensor.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startKey := readingKey(start, 0)
	endKey := readingKey(end, 0)

	var results []sensor.Reading
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = readingPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(startKey); it.Valid(); it.Next() {
			if bytes.Compare(it.Item().Key(), endKey) >= 0 {
				break
			}
			var r sensor.Reading
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			results = append(results, r)
		}
		return nil
	})
	return results, err
}

// LatestReading returns the newest reading, or nil when the log is empty
func (s *Store) LatestReading(ctx context.Context) (*sensor.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var latest *sensor.Reading
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = readingPrefix
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible reading key, then step back
		// into the prefix.
		seek := append(append([]byte{}, readingPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		it.Seek(seek)
		if !it.ValidForPrefix(readingPrefix) {
			return nil
		}

		var r sensor.Reading
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		}); err != nil {
			return err
		}
		latest = &r
		return nil
	})
	return latest, err
}

// GetAggregate returns the aggregate for (date, hour), or nil
func (s *Store) GetAggregate(ctx context.Context, date time.Time, hour int) (*sensor.HourlyAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var agg *sensor.HourlyAggregate
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(aggregateKey(date, hour))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var a sensor.HourlyAggregate
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		}); err != nil {
			return err
		}
		agg = &a
		return nil
	})
	return agg, err
}

// UpsertAggregate creates or replaces the aggregate for its bucket
func (s *Store) UpsertAggregate(ctx context.Context, agg sensor.HourlyAggregate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agg.Date = sensor.DayOf(agg.Date)
	value, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("failed to encode aggregate: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(aggregateKey(agg.Date, agg.Hour), value)
	})
}

// AggregatesForDate returns the day's aggregates sorted by hour
func (s *Store) AggregatesForDate(ctx context.Context, date time.Time) ([]sensor.HourlyAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(fmt.Sprintf("a/%s/", sensor.DayOf(date).Format(time.DateOnly)))

	var results []sensor.HourlyAggregate
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var a sensor.HourlyAggregate
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &a)
			}); err != nil {
				return err
			}
			results = append(results, a)
		}
		return nil
	})
	return results, err
}

// DateRange returns the min/max aggregate dates, or nil when none exist
func (s *Store) DateRange(ctx context.Context) (*sensor.DateRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var dr *sensor.DateRange
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = aggregatePrefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		var minDate, maxDate string
		for it.Rewind(); it.ValidForPrefix(aggregatePrefix); it.Next() {
			d := dateFromAggregateKey(it.Item().Key())
			if minDate == "" || d < minDate {
				minDate = d
			}
			if d > maxDate {
				maxDate = d
			}
		}
		if minDate != "" {
			dr = &sensor.DateRange{MinDate: minDate, MaxDate: maxDate}
		}
		return nil
	})
	return dr, err
}

// DeleteReadingsBefore removes readings older than cutoff
func (s *Store) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cutoffKey := readingKey(cutoff, 0)

	var keysToDelete [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = readingPrefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(readingPrefix); it.Next() {
			if bytes.Compare(it.Item().Key(), cutoffKey) >= 0 {
				break
			}
			keysToDelete = append(keysToDelete, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(keysToDelete) == 0 {
		return 0, nil
	}

	// A retention pass can cover months of readings; a write batch
	// keeps that to a handful of commits instead of one per key.
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keysToDelete {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keysToDelete), nil
}

// Stats returns storage statistics
func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &storage.Stats{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		var oldest, newest time.Time
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			switch {
			case bytes.HasPrefix(key, readingPrefix):
				stats.TotalReadings++
				ts := timestampFromReadingKey(key)
				if oldest.IsZero() || ts.Before(oldest) {
					oldest = ts
				}
				if newest.IsZero() || ts.After(newest) {
					newest = ts
				}
			case bytes.HasPrefix(key, aggregatePrefix):
				stats.TotalAggregates++
			}
		}
		stats.OldestReading = oldest
		stats.NewestReading = newest
		return nil
	})
	return stats, err
}

// Close shuts down BadgerDB cleanly
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs BadgerDB's value log garbage collection to reclaim disk
// space from deleted values. Badger returns ErrNoRewrite when no file
// had enough garbage to collect.
func (s *Store) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

func readingKey(ts time.Time, seq uint32) []byte {
	key := make([]byte, 14)
	copy(key[0:2], readingPrefix)
	binary.BigEndian.PutUint64(key[2:10], uint64(ts.UnixNano()))
	binary.BigEndian.PutUint32(key[10:14], seq)
	return key
}

func timestampFromReadingKey(key []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(key[2:10])))
}

func aggregateKey(date time.Time, hour int) []byte {
	return []byte(fmt.Sprintf("a/%s/%02d", sensor.DayOf(date).Format(time.DateOnly), hour))
}

// dateFromAggregateKey extracts "YYYY-MM-DD" from an aggregate key
func dateFromAggregateKey(key []byte) string {
	return string(key[2 : 2+len(time.DateOnly)])
}
