package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nesarahmed/airsense/pkg/sensor"
	"github.com/nesarahmed/airsense/pkg/storage"
)

// Importer restores readings from JSON backup files.
type Importer struct {
	store storage.Store
}

// NewImporter creates a new importer.
func NewImporter(store storage.Store) *Importer {
	return &Importer{store: store}
}

// ImportResult contains stats about the import operation.
type ImportResult struct {
	ReadingsImported int       `json:"readings_imported"`
	TimeRange        string    `json:"time_range"`
	ImportedAt       time.Time `json:"imported_at"`
	Errors           []string  `json:"errors,omitempty"`
}

// FromJSON imports readings from a JSON backup produced by ToJSON.
// Invalid readings are skipped and reported; valid ones are written.
func (im *Importer) FromJSON(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var backup backupFile
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	result := &ImportResult{ImportedAt: time.Now(), TimeRange: "empty"}
	if len(backup.Readings) == 0 {
		return result, nil
	}

	var oldest, newest time.Time
	for i, reading := range backup.Readings {
		if err := validateImportedReading(reading); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("reading %d: %v", i, err))
			continue
		}

		if _, err := im.store.InsertReading(ctx, reading); err != nil {
			return result, fmt.Errorf("failed to write reading %d: %w", i, err)
		}
		result.ReadingsImported++

		if oldest.IsZero() || reading.CreatedAt.Before(oldest) {
			oldest = reading.CreatedAt
		}
		if reading.CreatedAt.After(newest) {
			newest = reading.CreatedAt
		}
	}

	if result.ReadingsImported > 0 {
		result.TimeRange = fmt.Sprintf("%s to %s", oldest.Format(time.RFC3339), newest.Format(time.RFC3339))
	}
	return result, nil
}

func validateImportedReading(r sensor.Reading) error {
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("missing createdAt")
	}
	if r.Humidity < 0 || r.Humidity > 100 {
		return fmt.Errorf("humidity out of range: %f", r.Humidity)
	}
	return nil
}
