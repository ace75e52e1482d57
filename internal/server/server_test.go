package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/tracker/internal/config"
	"github.com/aristath/tracker/internal/di"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()
	return newTestServerWithBackend(t, config.StorageFile)
}

func newTestServerWithBackend(t *testing.T, backend string) (*Server, *di.Container) {
	t.Helper()
	cfg := &config.Config{
		DataDir:              t.TempDir(),
		PaperMode:            true,
		StorageBackend:       backend,
		StartingCash:         100000,
		MonitorInterval:      5 * time.Minute,
		StopTimeout:          time.Second,
		DefaultCashBufferPct: 2,
		DustThreshold:        10,
	}
	log := zerolog.New(nil).Level(zerolog.Disabled)

	container, err := di.Wire(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = container.Close() })

	container.PaperBroker.SetQuoteFunc(func(symbol string) (float64, error) {
		return map[string]float64{"AAPL": 150, "MSFT": 300}[symbol], nil
	})

	return New(Config{Log: log, Config: cfg, Port: 0, DevMode: true, Container: container}), container
}

func do(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "tracker", response["service"])
}

func TestHealth_PingsDatabase(t *testing.T) {
	s, container := newTestServerWithBackend(t, config.StorageSQLite)

	w := do(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["database"])
	assert.Equal(t, config.StorageSQLite, response["storage"])

	require.NoError(t, container.DB.Close())

	w = do(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "unhealthy", response["status"])
}

func TestSystemStatus(t *testing.T) {
	s, container := newTestServer(t)
	_, err := container.MonitorService.AddPosition("AAPL", 1, -5, 10)
	require.NoError(t, err)

	w := do(s, http.MethodGet, "/api/system/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.False(t, response.MonitorRunning)
	assert.Equal(t, 1, response.MonitoredSymbols)
	assert.Equal(t, 100000.0, response.Cash)
	assert.GreaterOrEqual(t, response.MemoryPercent, 0.0)
}

func TestRoutes_EndToEnd(t *testing.T) {
	s, container := newTestServer(t)

	w := do(s, http.MethodPost, "/api/trading/buy", map[string]interface{}{"symbol": "AAPL", "quantity": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(s, http.MethodGet, "/api/ledger/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/api/portfolio/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodPost, "/api/bot/add", map[string]interface{}{
		"symbol": "AAPL", "quantity": 10, "stop_loss": -5, "take_profit": 10,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(s, http.MethodPost, "/api/rebalance/plan", map[string]interface{}{
		"symbols": []string{"AAPL"}, "allocations": []float64{50}, "cash_buffer": 0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(s, http.MethodPost, "/api/bot/start", map[string]interface{}{"interval": 60})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, container.Scheduler.IsRunning())

	w = do(s, http.MethodPost, "/api/bot/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, container.Scheduler.IsRunning())

	w = do(s, http.MethodGet, "/api/trading/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestErrorMapping(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(s, http.MethodPost, "/api/trading/sell", map[string]interface{}{"symbol": "AAPL", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code, "insufficient shares")

	w = do(s, http.MethodPost, "/api/trading/buy", map[string]interface{}{"symbol": "AAPL", "quantity": 10000})
	assert.Equal(t, http.StatusBadRequest, w.Code, "insufficient funds")

	w = do(s, http.MethodPost, "/api/trading/buy", map[string]interface{}{"symbol": "NOPE", "quantity": 1})
	assert.Equal(t, http.StatusBadGateway, w.Code, "no quote")

	w = do(s, http.MethodPost, "/api/bot/start", map[string]interface{}{"interval": 60})
	require.Equal(t, http.StatusOK, w.Code)
	w = do(s, http.MethodPost, "/api/bot/start", map[string]interface{}{"interval": 60})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/ledger/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
