package export

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/nesarahmed/airsense/pkg/config"
	"github.com/nesarahmed/airsense/pkg/httpx"
	"github.com/nesarahmed/airsense/pkg/storage"
)

// Handler handles export/import HTTP endpoints.
type Handler struct {
	exporter *Exporter
	importer *Importer
}

// NewHandler creates a new export/import handler.
func NewHandler(store storage.Store) *Handler {
	return &Handler{
		exporter: NewExporter(store),
		importer: NewImporter(store),
	}
}

// HandleExport handles GET /export
// Query params:
//   - format: "json" or "csv" (default: json)
//   - start: RFC3339 timestamp (default: 24h before end)
//   - end: RFC3339 timestamp (default: now)
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	params := r.URL.Query()

	format := params.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		httpx.RespondError(w, http.StatusBadRequest, "Invalid format. Must be 'json' or 'csv'")
		return
	}

	end := parseTimeParam(params.Get("end"), time.Now())
	start := parseTimeParam(params.Get("start"), end.Add(-config.DefaultExportWindow))

	if !start.Before(end) {
		httpx.RespondError(w, http.StatusBadRequest, "start must be before end")
		return
	}
	if end.Sub(start) > config.MaxExportWindow {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Time range too large. Maximum is %v", config.MaxExportWindow))
		return
	}

	timestamp := time.Now().Format("20060102-150405")
	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=airsense-export-%s.json", timestamp))
	} else {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=airsense-export-%s.csv", timestamp))
	}

	ctx := r.Context()
	opts := Options{Start: start, End: end}

	// Track whether anything has been streamed: an error before the
	// first byte can still become a clean 500, but once the body has
	// started the status line is already on the wire, so a late error
	// is log-only rather than a JSON blob appended to a truncated file.
	cw := &countingWriter{w: w}

	var result *Result
	var err error
	if format == "json" {
		result, err = h.exporter.ToJSON(ctx, cw, opts)
	} else {
		result, err = h.exporter.ToCSV(ctx, cw, opts)
	}
	if err != nil {
		log.Printf("Export failed: %v", err)
		if cw.written == 0 {
			w.Header().Del("Content-Disposition")
			w.Header().Del("Content-Type")
			httpx.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("Export failed: %v", err))
		}
		return
	}

	log.Printf("Exported %d readings (%s) from %s", result.ReadingsExported, format, result.TimeRange)
}

// HandleImport handles POST /import. Accepts JSON backups produced by
// the export endpoint.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		httpx.RespondError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	result, err := h.importer.FromJSON(r.Context(), r.Body)
	if err != nil {
		log.Printf("Import failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("Import failed: %v", err))
		return
	}

	if len(result.Errors) > 0 {
		log.Printf("Import completed with %d validation errors", len(result.Errors))
	}
	log.Printf("Imported %d readings from %s", result.ReadingsImported, result.TimeRange)

	httpx.RespondJSON(w, http.StatusOK, result)
}

// countingWriter counts bytes written to the underlying writer.
type countingWriter struct {
	w       io.Writer
	written int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.written += int64(n)
	return n, err
}

// parseTimeParam parses a time parameter or returns the default.
func parseTimeParam(param string, defaultTime time.Time) time.Time {
	if param == "" {
		return defaultTime
	}
	if t, err := time.Parse(time.RFC3339, param); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", param); err == nil {
		return t
	}
	return defaultTime
}
