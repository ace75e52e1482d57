package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/tracker/internal/modules/monitor"
	"github.com/aristath/tracker/internal/scheduler"
	testingpkg "github.com/aristath/tracker/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router    *chi.Mux
	broker    *testingpkg.MockBroker
	service   *monitor.Service
	scheduler *scheduler.Scheduler
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	broker := testingpkg.NewSeededBroker()

	service := monitor.NewService(broker, broker,
		monitor.NewFileStore(filepath.Join(t.TempDir(), "bot_config.json")), logger)
	sched := scheduler.New(scheduler.NewMonitorJob(service), time.Second, logger)
	service.SetRunState(sched)
	t.Cleanup(func() { sched.StopMonitoring() })

	handler := NewHandler(service, sched, 5*time.Minute, logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	return &testEnv{router: router, broker: broker, service: service, scheduler: sched}
}

func (e *testEnv) post(path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func addBody(symbol string, qty, sl, tp float64) map[string]interface{} {
	return map[string]interface{}{
		"symbol":      symbol,
		"quantity":    qty,
		"stop_loss":   sl,
		"take_profit": tp,
	}
}

func TestHandleAdd(t *testing.T) {
	env := setupRouter(t)

	w := env.post("/bot/add", addBody("aapl", 10, -5, 10))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Data    monitor.WatchConfig `json:"data"`
		Message string              `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "AAPL", response.Data.Symbol)
	assert.Equal(t, 150.0, response.Data.EntryPrice)
	assert.Equal(t, "Added AAPL to monitoring", response.Message)

	_, ok := env.service.GetPosition("AAPL")
	assert.True(t, ok)
}

func TestHandleAdd_Validation(t *testing.T) {
	env := setupRouter(t)

	testCases := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"missing thresholds", map[string]interface{}{"symbol": "AAPL", "quantity": 1}, http.StatusBadRequest},
		{"missing symbol", addBody("", 1, -5, 10), http.StatusBadRequest},
		{"zero quantity", addBody("AAPL", 0, -5, 10), http.StatusBadRequest},
		{"no quote", addBody("ZZZZ", 1, -5, 10), http.StatusBadGateway},
		{"malformed", "not an object", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.post("/bot/add", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.NotEmpty(t, response["error"])
		})
	}

	assert.Empty(t, env.service.ListPositions())
}

func TestHandleAdd_ZeroThresholdsAreAccepted(t *testing.T) {
	env := setupRouter(t)

	w := env.post("/bot/add", addBody("MSFT", 1, 0, 0))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHandleRemove(t *testing.T) {
	env := setupRouter(t)
	_, err := env.service.AddPosition("AAPL", 10, -5, 10)
	require.NoError(t, err)

	w := env.post("/bot/remove", map[string]string{"symbol": "AAPL"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.post("/bot/remove", map[string]string{"symbol": "AAPL"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.post("/bot/remove", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStartStop(t *testing.T) {
	env := setupRouter(t)

	w := env.post("/bot/start", map[string]interface{}{"interval": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.scheduler.IsRunning())
	assert.Equal(t, time.Minute, env.scheduler.Interval())

	w = env.post("/bot/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.get("/bot/status")
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Data struct {
			Running         bool    `json:"running"`
			IntervalMinutes float64 `json:"interval_minutes"`
			NextRun         string  `json:"next_run"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Data.Running)
	assert.Equal(t, 1.0, status.Data.IntervalMinutes)

	w = env.post("/bot/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.scheduler.IsRunning())

	// stopping twice is fine
	w = env.post("/bot/stop", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleStart_DefaultAndInvalidInterval(t *testing.T) {
	env := setupRouter(t)

	for _, interval := range []float64{-1, 0, MaxIntervalMinutes + 1, 1e12} {
		w := env.post("/bot/start", map[string]interface{}{"interval": interval})
		assert.Equal(t, http.StatusBadRequest, w.Code, "interval %g", interval)
		assert.Contains(t, w.Body.String(), "interval must be between")
	}
	assert.False(t, env.scheduler.IsRunning())

	w := env.post("/bot/start", map[string]interface{}{"interval": MaxIntervalMinutes})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 7*24*time.Hour, env.scheduler.Interval())
	env.scheduler.StopMonitoring()

	w = env.post("/bot/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 5*time.Minute, env.scheduler.Interval())
}

func TestHandleCheck_ExecutesTriggeredExit(t *testing.T) {
	env := setupRouter(t)
	_, err := env.service.AddPosition("AAPL", 10, -5, 10)
	require.NoError(t, err)
	_, err = env.service.AddPosition("MSFT", 1, -5, 10)
	require.NoError(t, err)

	env.broker.SetPrice("AAPL", 142)

	w := env.post("/bot/check", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Data    monitor.CycleReport `json:"data"`
		Message string              `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Manual check completed", response.Message)
	assert.Equal(t, 2, response.Data.Checked)
	require.Len(t, response.Data.Trades, 1)
	assert.Equal(t, "AAPL", response.Data.Trades[0].Decision.Symbol)
	assert.Len(t, response.Data.Holds, 1)

	require.Len(t, env.broker.Orders(), 1)
	_, watched := env.service.GetPosition("AAPL")
	assert.False(t, watched)
}

func TestHandleGetStatus(t *testing.T) {
	env := setupRouter(t)
	_, err := env.service.AddPosition("AAPL", 10, -5, 10)
	require.NoError(t, err)
	_, err = env.service.AddPosition("NVDA", 2, -5, 10)
	require.NoError(t, err)

	env.broker.SetPrice("AAPL", 165)
	env.broker.SetQuoteError("NVDA", assert.AnError)

	w := env.get("/bot/status")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data struct {
			Running         bool                `json:"running"`
			TotalPositions  int                 `json:"total_positions"`
			ActivePositions int                 `json:"active_positions"`
			Positions       []monitor.StatusRow `json:"positions"`
			NextRun         *string             `json:"next_run"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response.Data.Running)
	assert.Nil(t, response.Data.NextRun)
	assert.Equal(t, 2, response.Data.TotalPositions)
	require.Len(t, response.Data.Positions, 2)
	assert.InDelta(t, 10.0, response.Data.Positions[0].PctChange, 1e-9)
	assert.NotEmpty(t, response.Data.Positions[1].Error)
}

func TestHandleGetPositions(t *testing.T) {
	env := setupRouter(t)
	_, err := env.service.AddPosition("NVDA", 2, -5, 10)
	require.NoError(t, err)

	w := env.get("/bot/positions")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data struct {
			Positions []monitor.WatchConfig `json:"positions"`
			Count     int                   `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Data.Count)
	assert.Equal(t, 120.0, response.Data.Positions[0].EntryPrice)
}
