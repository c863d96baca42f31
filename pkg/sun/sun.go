// Package sun fetches sunrise/sunset context for the dashboard from
// the public sunrise-sunset.org API and exposes it through a small
// proxy endpoint, so browser clients never talk to the upstream
// service directly.
package sun

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nesarahmed/airsense/pkg/config"
	"github.com/nesarahmed/airsense/pkg/httpx"
)

// DefaultBaseURL is the upstream API endpoint.
const DefaultBaseURL = "https://api.sunrise-sunset.org/json"

// Times holds the upstream results, passed through as ISO-8601
// strings in the requested timezone.
type Times struct {
	Sunrise   string `json:"sunrise"`
	Sunset    string `json:"sunset"`
	SolarNoon string `json:"solar_noon"`
	DayLength int64  `json:"day_length"`
	Timezone  string `json:"timezone"`
}

// Client queries the sunrise-sunset.org API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client against the public API.
func NewClient() *Client {
	return NewClientWithBaseURL(DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom endpoint.
// Tests point this at a local fake.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: config.SunLookupTimeout,
		},
	}
}

// Lookup fetches sunrise/sunset times for the given coordinates,
// rendered in the given timezone (IANA name, optional).
func (c *Client) Lookup(ctx context.Context, lat, lng float64, tzid string) (*Times, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("formatted", "0")
	if tzid != "" {
		params.Set("tzid", tzid)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sunrise-sunset data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sunrise-sunset request failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Results Times  `json:"results"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode sunrise-sunset response: %w", err)
	}
	if payload.Status != "OK" {
		return nil, fmt.Errorf("sunrise-sunset lookup failed: status %q", payload.Status)
	}

	payload.Results.Timezone = tzid
	return &payload.Results, nil
}

// Handler serves GET /sun.
type Handler struct {
	client     *Client
	defaultLat float64
	defaultLng float64
}

// NewHandler creates a sun handler with fallback coordinates used
// when the request does not supply lat/lng.
func NewHandler(client *Client, defaultLat, defaultLng float64) *Handler {
	return &Handler{client: client, defaultLat: defaultLat, defaultLng: defaultLng}
}

// HandleSun handles GET /sun?lat=..&lng=..&tzid=..
func (h *Handler) HandleSun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	params := r.URL.Query()

	lat, err := parseCoord(params.Get("lat"), h.defaultLat)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	lng, err := parseCoord(params.Get("lng"), h.defaultLng)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	times, err := h.client.Lookup(r.Context(), lat, lng, params.Get("tzid"))
	if err != nil {
		log.Printf("Sunrise-sunset lookup failed: %v", err)
		httpx.RespondError(w, http.StatusInternalServerError, "Error fetching sunrise-sunset data")
		return
	}

	httpx.RespondJSON(w, http.StatusOK, times)
}

func parseCoord(s string, fallback float64) (float64, error) {
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid coordinate %q", s)
	}
	return v, nil
}
