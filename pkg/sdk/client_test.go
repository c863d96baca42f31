package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_Submit(t *testing.T) {
	var gotKey string
	var gotBody Reading

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"data":     map[string]interface{}{"temperature": 21.5, "humidity": 48.0},
			"realtime": []interface{}{map[string]interface{}{"temperature": 21.5}},
		})
	}))
	defer server.Close()

	client := New(server.URL, "secret-key")
	result, err := client.Submit(context.Background(), Reading{
		Temperature:   21.5,
		Humidity:      48,
		GasValue:      130,
		SoundDetected: true,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 21.5, result.Data.Temperature)
	require.Len(t, result.Realtime, 1)

	require.Equal(t, "secret-key", gotKey)
	require.Equal(t, 21.5, gotBody.Temperature)
	require.True(t, gotBody.SoundDetected)
}

func TestClient_SubmitRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(server.URL, "wrong-key")
	_, err := client.Submit(context.Background(), Reading{Temperature: 21})
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}
