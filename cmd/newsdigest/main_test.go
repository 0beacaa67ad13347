package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdigest/internal/metrics"
)

func TestMonitoringEndpoints(t *testing.T) {
	metrics.Global.SetLastRun(7)
	server := httptest.NewServer(newMonitoringServer("0").Handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(7), health["last_items"])

	resp2, err := http.Get(server.URL + "/stats")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var stats map[string]interface{}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&stats))
	assert.Contains(t, stats, "sources_succeeded")

	resp3, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}

func TestHealthReportsErrors(t *testing.T) {
	metrics.Global.SetError("disk full")
	defer metrics.Global.SetLastRun(0)

	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk full")
}
