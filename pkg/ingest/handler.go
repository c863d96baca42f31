// Package ingest accepts sensor readings over HTTP, persists them,
// and fans the update out to the realtime buffer, the hourly
// aggregator, and any connected live-stream clients.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nesarahmed/airsense/pkg/aggregate"
	"github.com/nesarahmed/airsense/pkg/config"
	"github.com/nesarahmed/airsense/pkg/httpx"
	"github.com/nesarahmed/airsense/pkg/realtime"
	"github.com/nesarahmed/airsense/pkg/sensor"
	"github.com/nesarahmed/airsense/pkg/storage"
)

// Handler handles reading ingestion.
type Handler struct {
	store      storage.Store
	buffer     *realtime.Buffer
	aggregator *aggregate.Aggregator
	hub        *LiveHub
}

// NewHandler creates an ingest handler.
func NewHandler(store storage.Store, buffer *realtime.Buffer, aggregator *aggregate.Aggregator) *Handler {
	return &Handler{
		store:      store,
		buffer:     buffer,
		aggregator: aggregator,
	}
}

// SetLiveHub attaches a websocket hub that receives a broadcast after
// each accepted reading. Optional.
func (h *Handler) SetLiveHub(hub *LiveHub) {
	h.hub = hub
}

// CreateRequest represents the submission payload.
type CreateRequest struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	GasValue      float64 `json:"gasValue"`
	SoundDetected bool    `json:"soundDetected"`
}

// CreateResponse represents the response payload.
type CreateResponse struct {
	Success  bool             `json:"success"`
	Data     sensor.Reading   `json:"data"`
	Realtime []realtime.Entry `json:"realtime"`
}

// HandleCreate handles POST /sensor-data.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.IngestTimeout)
	defer cancel()

	reading := sensor.Reading{
		Temperature:   req.Temperature,
		Humidity:      req.Humidity,
		GasValue:      req.GasValue,
		SoundDetected: req.SoundDetected,
		CreatedAt:     time.Now(),
	}

	// The durable log records every accepted submission; only the
	// realtime buffer suppresses value-identical repeats.
	saved, err := h.store.InsertReading(ctx, reading)
	if err != nil {
		log.Printf("Failed to persist reading: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Error saving sensor data")
		return
	}

	h.buffer.Append(saved)

	if _, err := h.aggregator.Apply(ctx, saved); err != nil {
		log.Printf("Failed to update hourly aggregate: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Error saving sensor data")
		return
	}

	if h.hub != nil {
		h.hub.BroadcastReading(saved, h.buffer.Snapshot())
	}

	httpx.RespondJSON(w, http.StatusOK, CreateResponse{
		Success:  true,
		Data:     saved,
		Realtime: h.buffer.Snapshot(),
	})
}

// HandleStats handles GET /stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.StatsTimeout)
	defer cancel()

	stats, err := h.store.Stats(ctx)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("Stats failed: %v", err))
		return
	}
	httpx.RespondJSON(w, http.StatusOK, stats)
}
