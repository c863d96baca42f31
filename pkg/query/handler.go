// Package query answers the dashboard's read paths: the default
// snapshot (today's hourly averages, the live buffer, and the
// available date range) and historical lookups for an arbitrary date
// or a single (date, hour) bucket.
//
// Both paths are read-only. The only mutation they may perform is the
// empty-buffer backfill, which seeds the realtime buffer from the
// newest durable reading after a process restart.
package query

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/nesarahmed/airsense/pkg/config"
	"github.com/nesarahmed/airsense/pkg/httpx"
	"github.com/nesarahmed/airsense/pkg/realtime"
	"github.com/nesarahmed/airsense/pkg/sensor"
	"github.com/nesarahmed/airsense/pkg/storage"
)

// Handler serves GET /sensor-data.
type Handler struct {
	store  storage.Store
	buffer *realtime.Buffer
	now    func() time.Time
}

// NewHandler creates a query handler.
func NewHandler(store storage.Store, buffer *realtime.Buffer) *Handler {
	return &Handler{store: store, buffer: buffer, now: time.Now}
}

// SnapshotResponse is the default (no date) response: today's hourly
// averages, the live buffer, and the available date range.
type SnapshotResponse struct {
	HourlyAverages []sensor.HourlyAggregate `json:"hourlyAverages"`
	Realtime       []realtime.Entry         `json:"realtime"`
	DateRange      *sensor.DateRange        `json:"dateRange"`
}

// HourResponse answers a (date, hour) lookup. HourlyData is null when
// no readings landed in that bucket.
type HourResponse struct {
	HourlyData *sensor.HourlyAggregate `json:"hourlyData"`
	Realtime   []realtime.Entry        `json:"realtime"`
}

// DayResponse answers a dated lookup.
type DayResponse struct {
	HourlyAverages []sensor.HourlyAggregate `json:"hourlyAverages"`
}

// HandleQuery handles GET /sensor-data with optional date and hour
// parameters.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.QueryTimeout)
	defer cancel()

	params := r.URL.Query()
	dateStr := params.Get("date")
	hourStr := params.Get("hour")

	switch {
	case dateStr != "" && hourStr != "":
		h.handleHourQuery(ctx, w, dateStr, hourStr)
	case dateStr != "":
		h.handleDayQuery(ctx, w, dateStr)
	default:
		h.handleSnapshot(ctx, w)
	}
}

func (h *Handler) handleSnapshot(ctx context.Context, w http.ResponseWriter) {
	dateRange, err := h.store.DateRange(ctx)
	if err != nil {
		log.Printf("Failed to compute date range: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Error fetching sensor data")
		return
	}

	today := sensor.DayOf(h.now())
	averages, err := h.store.AggregatesForDate(ctx, today)
	if err != nil {
		log.Printf("Failed to load hourly averages: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Error fetching sensor data")
		return
	}

	if err := h.buffer.BackfillIfEmpty(ctx, h.store); err != nil {
		// A failed backfill degrades the live view but should not
		// fail the whole snapshot.
		log.Printf("Realtime backfill failed: %v", err)
	}

	httpx.RespondJSON(w, http.StatusOK, SnapshotResponse{
		HourlyAverages: nonNil(averages),
		Realtime:       h.buffer.Snapshot(),
		DateRange:      dateRange,
	})
}

func (h *Handler) handleDayQuery(ctx context.Context, w http.ResponseWriter, dateStr string) {
	date, err := parseDate(dateStr)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	averages, err := h.store.AggregatesForDate(ctx, date)
	if err != nil {
		log.Printf("Failed to load hourly averages for %s: %v", dateStr, err)
		httpx.RespondError(w, http.StatusInternalServerError, "Error fetching sensor data")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, DayResponse{HourlyAverages: nonNil(averages)})
}

func (h *Handler) handleHourQuery(ctx context.Context, w http.ResponseWriter, dateStr, hourStr string) {
	date, err := parseDate(dateStr)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Sprintf("invalid hour %q: must be 0-23", hourStr))
		return
	}

	agg, err := h.store.GetAggregate(ctx, date, hour)
	if err != nil {
		log.Printf("Failed to load aggregate for %s hour %d: %v", dateStr, hour, err)
		httpx.RespondError(w, http.StatusInternalServerError, "Error fetching sensor data")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, HourResponse{
		HourlyData: agg,
		Realtime:   h.buffer.Snapshot(),
	})
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// nonNil coerces a nil slice to an empty one so the JSON response
// carries [] rather than null.
func nonNil(aggs []sensor.HourlyAggregate) []sensor.HourlyAggregate {
	if aggs == nil {
		return []sensor.HourlyAggregate{}
	}
	return aggs
}
