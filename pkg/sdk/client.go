// Package sdk is the device-side client for submitting sensor
// readings to an AirSense server.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nesarahmed/airsense/pkg/auth"
	"github.com/nesarahmed/airsense/pkg/realtime"
	"github.com/nesarahmed/airsense/pkg/sensor"
)

// Client submits readings to the ingestion endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the given ingestion endpoint
// (e.g. http://localhost:8080/sensor-data).
func New(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Reading is the submission payload.
type Reading struct {
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	GasValue      float64 `json:"gasValue"`
	SoundDetected bool    `json:"soundDetected"`
}

// SubmitResult is the server's response to an accepted reading.
type SubmitResult struct {
	Success  bool             `json:"success"`
	Data     sensor.Reading   `json:"data"`
	Realtime []realtime.Entry `json:"realtime"`
}

// Submit posts one reading.
func (c *Client) Submit(ctx context.Context, reading Reading) (*SubmitResult, error) {
	body, err := json.Marshal(reading)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderName, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
