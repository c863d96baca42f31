package sensor

import (
	"math"
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad time literal %q: %v", value, err)
	}
	return parsed
}

func TestHeatIndex(t *testing.T) {
	tests := []struct {
		name     string
		temp     float64
		humidity float64
		want     float64
	}{
		{"warm and humid", 30, 70, 35.0},
		{"hot and dry", 35, 20, 33.0},
		{"mild", 20, 50, 20.0},
		{"cool room", 10, 80, 10.0},
		{"just below regression range", 26.94, 90, 26.9},
		{"at regression threshold", 27, 90, 30.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeatIndex(tt.temp, tt.humidity)
			if math.Abs(got-tt.want) > 0.05 {
				t.Errorf("HeatIndex(%v, %v) = %v, want %v", tt.temp, tt.humidity, got, tt.want)
			}
		})
	}
}

func TestHeatIndexRounding(t *testing.T) {
	got := HeatIndex(30, 70)
	if got != math.Round(got*10)/10 {
		t.Errorf("HeatIndex not rounded to one decimal: %v", got)
	}
}

func TestGasLabel(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "Fresh Air"},
		{100, "Fresh Air"},
		{101, "LPG"},
		{300, "LPG"},
		{301, "Methane"},
		{500, "Methane"},
		{501, "Smoke"},
		{700, "Smoke"},
		{701, "High Gas"},
		{5000, "High Gas"},
	}

	for _, tt := range tests {
		if got := GasLabel(tt.value); got != tt.want {
			t.Errorf("GasLabel(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestDayOf(t *testing.T) {
	input := mustTime(t, "2025-03-15T17:42:09+05:00")
	got := DayOf(input)

	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Errorf("DayOf did not truncate to midnight: %v", got)
	}
	if got.Year() != 2025 || got.Month() != 3 || got.Day() != 15 {
		t.Errorf("DayOf changed the calendar day: %v", got)
	}
	if got.Location() != input.Location() {
		t.Errorf("DayOf changed the location: %v", got.Location())
	}
}
