package sensor

import "time"

// Reading is one raw sensor sample. Readings are append-only: once
// persisted they are never modified.
type Reading struct {
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	GasValue      float64   `json:"gasValue"`
	SoundDetected bool      `json:"soundDetected"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HourlyAggregate holds the averages for one (date, hour) bucket.
// Exactly one record exists per bucket; it is recomputed in place as
// new readings arrive within the hour.
type HourlyAggregate struct {
	// Date is the calendar day, truncated to 00:00 server-local time.
	Date time.Time `json:"date"`

	// Hour of day, 0-23.
	Hour int `json:"hour"`

	AverageTemperature float64 `json:"averageTemperature"`
	AverageHumidity    float64 `json:"averageHumidity"`
	AverageGasValue    float64 `json:"averageGasValue"`

	// SoundEvents counts readings with SoundDetected set. It is a
	// running count, never an average.
	SoundEvents int `json:"soundEvents"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DateRange bounds the dates for which hourly aggregates exist.
// Dates are formatted YYYY-MM-DD.
type DateRange struct {
	MinDate string `json:"minDate"`
	MaxDate string `json:"maxDate"`
}

// DayOf truncates t to 00:00 in t's location.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
