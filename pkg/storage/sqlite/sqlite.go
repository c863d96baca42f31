package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nesarahmed/airsense/pkg/sensor"
	"github.com/nesarahmed/airsense/pkg/storage"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertReadingSQL = `INSERT INTO readings (temperature, humidity, gas_value, sound_detected, created_at)
VALUES (?, ?, ?, ?, ?)`

	readingsBetweenSQL = `SELECT temperature, humidity, gas_value, sound_detected, created_at
FROM readings WHERE created_at >= ? AND created_at < ? ORDER BY created_at`

	latestReadingSQL = `SELECT temperature, humidity, gas_value, sound_detected, created_at
FROM readings ORDER BY created_at DESC, id DESC LIMIT 1`

	getAggregateSQL = `SELECT date, hour, avg_temperature, avg_humidity, avg_gas_value, sound_events, created_at, updated_at
FROM hourly_aggregates WHERE date = ? AND hour = ?`

	upsertAggregateSQL = `INSERT INTO hourly_aggregates
(date, hour, avg_temperature, avg_humidity, avg_gas_value, sound_events, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (date, hour) DO UPDATE SET
avg_temperature = excluded.avg_temperature,
avg_humidity = excluded.avg_humidity,
avg_gas_value = excluded.avg_gas_value,
sound_events = excluded.sound_events,
updated_at = excluded.updated_at`

	aggregatesForDateSQL = `SELECT date, hour, avg_temperature, avg_humidity, avg_gas_value, sound_events, created_at, updated_at
FROM hourly_aggregates WHERE date = ? ORDER BY hour`

	dateRangeSQL = `SELECT MIN(date), MAX(date) FROM hourly_aggregates`

	deleteReadingsBeforeSQL = `DELETE FROM readings WHERE created_at < ?`

	statsSQL = `SELECT COUNT(*), COALESCE(MIN(created_at), 0), COALESCE(MAX(created_at), 0) FROM readings`

	aggregateCountSQL = `SELECT COUNT(*) FROM hourly_aggregates`
)

// Store implements storage.Store on SQLite. Timestamps are stored as
// Unix nanoseconds; aggregate dates as "YYYY-MM-DD" text so the
// UNIQUE(date, hour) constraint enforces one record per bucket.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) a SQLite database at the given path.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// SQLite handles one writer at a time; a larger pool just trades
	// lock errors for waiting.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) InsertReading(ctx context.Context, r sensor.Reading) (sensor.Reading, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, insertReadingSQL,
		r.Temperature, r.Humidity, r.GasValue, boolToInt(r.SoundDetected), r.CreatedAt.UnixNano())
	if err != nil {
		return sensor.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	return r, nil
}

func (s *Store) ReadingsBetween(ctx context.Context, start, end time.Time) ([]sensor.Reading, error) {
	rows, err := s.db.QueryContext(ctx, readingsBetweenSQL, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReadings(rows)
}

func (s *Store) LatestReading(ctx context.Context) (*sensor.Reading, error) {
	rows, err := s.db.QueryContext(ctx, latestReadingSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings, err := scanReadings(rows)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

func (s *Store) GetAggregate(ctx context.Context, date time.Time, hour int) (*sensor.HourlyAggregate, error) {
	row := s.db.QueryRowContext(ctx, getAggregateSQL, dateText(date), hour)
	agg, err := scanAggregate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *Store) UpsertAggregate(ctx context.Context, agg sensor.HourlyAggregate) error {
	_, err := s.db.ExecContext(ctx, upsertAggregateSQL,
		dateText(agg.Date), agg.Hour,
		agg.AverageTemperature, agg.AverageHumidity, agg.AverageGasValue, agg.SoundEvents,
		agg.CreatedAt.UnixNano(), agg.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert aggregate: %w", err)
	}
	return nil
}

func (s *Store) AggregatesForDate(ctx context.Context, date time.Time) ([]sensor.HourlyAggregate, error) {
	rows, err := s.db.QueryContext(ctx, aggregatesForDateSQL, dateText(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sensor.HourlyAggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *agg)
	}
	return out, rows.Err()
}

func (s *Store) DateRange(ctx context.Context) (*sensor.DateRange, error) {
	var minDate, maxDate sql.NullString
	if err := s.db.QueryRowContext(ctx, dateRangeSQL).Scan(&minDate, &maxDate); err != nil {
		return nil, err
	}
	if !minDate.Valid {
		return nil, nil
	}
	return &sensor.DateRange{MinDate: minDate.String, MaxDate: maxDate.String}, nil
}

func (s *Store) DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, deleteReadingsBeforeSQL, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{}

	var oldest, newest int64
	if err := s.db.QueryRowContext(ctx, statsSQL).Scan(&stats.TotalReadings, &oldest, &newest); err != nil {
		return nil, err
	}
	if stats.TotalReadings > 0 {
		stats.OldestReading = time.Unix(0, oldest)
		stats.NewestReading = time.Unix(0, newest)
	}

	if err := s.db.QueryRowContext(ctx, aggregateCountSQL).Scan(&stats.TotalAggregates); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanAggregate(sc scanner) (*sensor.HourlyAggregate, error) {
	var agg sensor.HourlyAggregate
	var date string
	var createdAt, updatedAt int64
	err := sc.Scan(&date, &agg.Hour,
		&agg.AverageTemperature, &agg.AverageHumidity, &agg.AverageGasValue, &agg.SoundEvents,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	d, err := time.ParseInLocation(time.DateOnly, date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse aggregate date %q: %w", date, err)
	}
	agg.Date = d
	agg.CreatedAt = time.Unix(0, createdAt)
	agg.UpdatedAt = time.Unix(0, updatedAt)
	return &agg, nil
}

func scanReadings(rows *sql.Rows) ([]sensor.Reading, error) {
	var out []sensor.Reading
	for rows.Next() {
		var r sensor.Reading
		var sound int
		var createdAt int64
		if err := rows.Scan(&r.Temperature, &r.Humidity, &r.GasValue, &sound, &createdAt); err != nil {
			return nil, err
		}
		r.SoundDetected = sound != 0
		r.CreatedAt = time.Unix(0, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func dateText(date time.Time) string {
	return sensor.DayOf(date).Format(time.DateOnly)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
