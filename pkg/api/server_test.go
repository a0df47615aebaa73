package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuemby/odin/pkg/config"
	"github.com/cuemby/odin/pkg/engine"
	"github.com/cuemby/odin/pkg/metrics"
	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	eng, err := engine.New(config.Default(),
		engine.WithClock(func() time.Time { return epoch }),
		engine.WithTelemetry(telemetry.Static{}))
	require.NoError(t, err)
	t.Cleanup(func() { eng.Stop() })
	return NewServer(eng, opts...)
}

func do(t *testing.T, s *Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)
	metrics.RegisterComponent("storage", true, "open")

	code, body := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	var h metrics.HealthStatus
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, metrics.StatusHealthy, h.Status)

	metrics.RegisterComponent("storage", false, "closed")
	code, _ = do(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	metrics.RegisterComponent("storage", true, "open")
	code, _ = do(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/v1/thermal/status", nil)

	code, body := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "odin_api_requests_total")
}

func TestThermalRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{name: "status", method: http.MethodGet, path: "/v1/thermal/status", code: http.StatusOK},
		{name: "forecast", method: http.MethodGet, path: "/v1/thermal/forecast?horizon=1h", code: http.StatusOK},
		{name: "bad horizon", method: http.MethodGet, path: "/v1/thermal/forecast?horizon=soon", code: http.StatusBadRequest},
		{name: "horizon too long", method: http.MethodGet, path: "/v1/thermal/forecast?horizon=400h", code: http.StatusBadRequest},
		{name: "update temperature", method: http.MethodPut, path: "/v1/thermal/components/star-tracker/temperature", body: map[string]float64{"value": -20}, code: http.StatusNoContent},
		{name: "unknown component", method: http.MethodPut, path: "/v1/thermal/components/warp-core/temperature", body: map[string]float64{"value": 1}, code: http.StatusNotFound},
		{name: "unknown trigger", method: http.MethodPost, path: "/v1/thermal/actions", body: map[string]any{"trigger": "meteor"}, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := do(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestThermalActionExecutesResponse(t *testing.T) {
	s := newTestServer(t)

	code, body := do(t, s, http.MethodPost, "/v1/thermal/actions", ThermalActionRequest{Trigger: "solar_flare", Severity: 9})
	require.Equal(t, http.StatusOK, code)

	var out ThermalActionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Results, 2)
	for _, r := range out.Results {
		assert.True(t, r.Success)
	}
	assert.NotEmpty(t, out.Response.ManualRecommendations)
}

func TestPowerRoutes(t *testing.T) {
	s := newTestServer(t)

	code, body := do(t, s, http.MethodPost, "/v1/power/actions", PowerActionRequest{Trigger: "load_spike", Severity: 2})
	require.Equal(t, http.StatusCreated, code)
	var action struct {
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(body, &action))
	assert.Equal(t, "shed_load", action.Action)

	code, _ = do(t, s, http.MethodPost, "/v1/power/actions", PowerActionRequest{Trigger: "meteor"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = do(t, s, http.MethodPost, "/v1/power/actions/missing/approve", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, s, http.MethodPatch, "/v1/power/banks/backup-bank", map[string]float64{"soh": 70})
	assert.Equal(t, http.StatusNoContent, code)

	code, body = do(t, s, http.MethodGet, "/v1/power/banks/backup-bank/health", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"health":"warning"`)

	code, _ = do(t, s, http.MethodGet, "/v1/power/banks/none/health", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, s, http.MethodGet, "/v1/power/forecast?horizon=30m", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestIsolationAwaitsApproval(t *testing.T) {
	s := newTestServer(t)

	code, body := do(t, s, http.MethodPatch, "/v1/power/banks/primary-bank", map[string]float64{"temperature": 80})
	require.Equal(t, http.StatusNoContent, code, string(body))

	code, body = do(t, s, http.MethodPost, "/v1/power/actions", PowerActionRequest{Trigger: "thermal_runaway"})
	require.Equal(t, http.StatusCreated, code)
	var action struct {
		ID               string `json:"id"`
		RequiresApproval bool   `json:"requiresApproval"`
	}
	require.NoError(t, json.Unmarshal(body, &action))
	require.True(t, action.RequiresApproval)

	code, _ = do(t, s, http.MethodPost, "/v1/power/actions/"+action.ID+"/approve", nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestScheduleRoutes(t *testing.T) {
	s := newTestServer(t)

	activity := mission.Activity{
		ID: "imaging", Name: "Imaging", Type: mission.ActivityScience, Priority: 4,
		Start: epoch.Add(time.Hour), Duration: time.Hour, Autonomous: true,
		Requirements: []mission.ResourceRequirement{{Type: mission.ResourcePower, Amount: 100, Unit: "W"}},
	}

	code, body := do(t, s, http.MethodPost, "/v1/schedule/activities", activity)
	require.Equal(t, http.StatusCreated, code, string(body))
	assert.JSONEq(t, `{"added":["imaging"]}`, string(body))

	code, _ = do(t, s, http.MethodPost, "/v1/schedule/activities", []mission.Activity{activity})
	assert.Equal(t, http.StatusConflict, code)

	bad := activity
	bad.ID = "bad"
	bad.Priority = 0
	code, _ = do(t, s, http.MethodPost, "/v1/schedule/activities", bad)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, s, http.MethodPost, "/v1/schedule/activities/imaging/status", map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusConflict, code)

	code, body = do(t, s, http.MethodPost, "/v1/schedule/activities/imaging/status", map[string]string{"status": "ready"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"status":"ready"`)

	for _, path := range []string{
		"/v1/schedule/metrics",
		"/v1/schedule/prediction?horizon=12h",
		"/v1/schedule/conflicts",
		"/v1/schedule/activities",
		"/v1/environment",
	} {
		code, _ := do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, code, path)
	}

	code, body = do(t, s, http.MethodPost, "/v1/schedule/conflicts", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"rescheduled":`)
}

func TestPutEnvironment(t *testing.T) {
	s := newTestServer(t)

	code, _ := do(t, s, http.MethodPut, "/v1/environment", map[string]any{
		"solarWindSpeed":    700,
		"solarActivityRisk": 85,
		"missionPhase":      "approach",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 85.0, s.engine.Environment().SolarActivityRisk)
	assert.Equal(t, "approach", s.engine.Mission().MissionPhase())
}
