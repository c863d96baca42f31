// Package export provides backup and restore of the raw reading log
// as JSON or CSV.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nesarahmed/airsense/pkg/sensor"
	"github.com/nesarahmed/airsense/pkg/storage"
)

// Exporter handles exporting readings to various formats.
type Exporter struct {
	store storage.Store
}

// NewExporter creates a new exporter.
func NewExporter(store storage.Store) *Exporter {
	return &Exporter{store: store}
}

// Options configures an export operation.
type Options struct {
	// Time range to export
	Start time.Time
	End   time.Time
}

// Result contains stats about the export.
type Result struct {
	ReadingsExported int       `json:"readings_exported"`
	TimeRange        string    `json:"time_range"`
	Format           string    `json:"format"`
	ExportedAt       time.Time `json:"exported_at"`
}

// backupFile is the JSON backup layout shared by export and import.
type backupFile struct {
	Metadata struct {
		ExportedAt   time.Time `json:"exported_at"`
		StartTime    time.Time `json:"start_time"`
		EndTime      time.Time `json:"end_time"`
		ReadingCount int       `json:"reading_count"`
		Version      string    `json:"version"`
	} `json:"metadata"`
	Readings []sensor.Reading `json:"readings"`
}

// ToJSON exports readings as JSON to the given writer.
func (e *Exporter) ToJSON(ctx context.Context, w io.Writer, opts Options) (*Result, error) {
	readings, err := e.store.ReadingsBetween(ctx, opts.Start, opts.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}

	var backup backupFile
	backup.Readings = readings
	backup.Metadata.ExportedAt = time.Now()
	backup.Metadata.StartTime = opts.Start
	backup.Metadata.EndTime = opts.End
	backup.Metadata.ReadingCount = len(readings)
	backup.Metadata.Version = "1.0"

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}

	return &Result{
		ReadingsExported: len(readings),
		TimeRange:        fmt.Sprintf("%s to %s", opts.Start.Format(time.RFC3339), opts.End.Format(time.RFC3339)),
		Format:           "json",
		ExportedAt:       backup.Metadata.ExportedAt,
	}, nil
}

// ToCSV exports readings as CSV to the given writer.
func (e *Exporter) ToCSV(ctx context.Context, w io.Writer, opts Options) (*Result, error) {
	readings, err := e.store.ReadingsBetween(ctx, opts.Start, opts.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"created_at", "temperature", "humidity", "gas_value", "sound_detected"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range readings {
		row := []string{
			r.CreatedAt.Format(time.RFC3339Nano),
			strconv.FormatFloat(r.Temperature, 'f', -1, 64),
			strconv.FormatFloat(r.Humidity, 'f', -1, 64),
			strconv.FormatFloat(r.GasValue, 'f', -1, 64),
			strconv.FormatBool(r.SoundDetected),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return &Result{
		ReadingsExported: len(readings),
		TimeRange:        fmt.Sprintf("%s to %s", opts.Start.Format(time.RFC3339), opts.End.Format(time.RFC3339)),
		Format:           "csv",
		ExportedAt:       time.Now(),
	}, nil
}
