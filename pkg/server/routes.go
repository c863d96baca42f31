package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nesarahmed/airsense/pkg/auth"
	"github.com/nesarahmed/airsense/pkg/export"
	"github.com/nesarahmed/airsense/pkg/httpx"
	"github.com/nesarahmed/airsense/pkg/ingest"
	"github.com/nesarahmed/airsense/pkg/query"
	"github.com/nesarahmed/airsense/pkg/sun"
)

var startTime = time.Now()

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Storage string `json:"storage"`
}

// handleHealth returns service health status.
func handleHealth(storageBackend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondJSON(w, http.StatusOK, HealthResponse{
			Status:  "healthy",
			Version: "1.0.0",
			Uptime:  time.Since(startTime).String(),
			Storage: storageBackend,
		})
	}
}

// SetupRoutes configures all HTTP routes for the server.
func SetupRoutes(
	router *mux.Router,
	cfg Config,
	verifier *auth.Verifier,
	ingestHandler *ingest.Handler,
	queryHandler *query.Handler,
	exportHandler *export.Handler,
	sunHandler *sun.Handler,
	hub *ingest.LiveHub,
) {
	router.Use(corsMiddleware(cfg.Port))

	// Health check stays open so load balancers can probe without a key.
	router.HandleFunc("/health", handleHealth(cfg.Storage)).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(verifier.Middleware)

	// The dashboard endpoint dispatches on method: POST ingests a
	// reading, GET answers the snapshot and historical queries. Other
	// methods get an explicit 405 rather than mux's default 404.
	api.HandleFunc("/sensor-data", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			ingestHandler.HandleCreate(w, r)
		case http.MethodGet:
			queryHandler.HandleQuery(w, r)
		default:
			httpx.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// WebSocket for the live sensor feed
	api.HandleFunc("/sensor-data/live", ingestHandler.HandleWebSocket(hub)).Methods("GET")

	// Metadata and stats
	api.HandleFunc("/stats", ingestHandler.HandleStats).Methods("GET")

	// Backup/restore
	api.HandleFunc("/export", exportHandler.HandleExport).Methods("GET")
	api.HandleFunc("/import", exportHandler.HandleImport).Methods("POST")

	// Sunrise/sunset context for the dashboard
	api.HandleFunc("/sun", sunHandler.HandleSun).Methods("GET")
}

// corsMiddleware creates CORS middleware that restricts to localhost origins only.
func corsMiddleware(port string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Allow localhost origins for local development
			allowedOrigins := []string{
				"http://localhost:" + port,
				"http://127.0.0.1:" + port,
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			}

			allowed := false
			for _, allowedOrigin := range allowedOrigins {
				if origin == allowedOrigin {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+auth.HeaderName)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
