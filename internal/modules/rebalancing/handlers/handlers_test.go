package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/tracker/internal/modules/portfolio"
	"github.com/aristath/tracker/internal/modules/rebalancing"
	testingpkg "github.com/aristath/tracker/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seeded broker: AAPL 10 @150, MSFT 5 @300, NVDA 20 @120; cash 4600 => equity 10000
func setupRouter() (*chi.Mux, *testingpkg.MockBroker) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	broker := testingpkg.NewSeededBroker()

	handler := NewHandler(
		portfolio.NewSnapshotService(broker, testingpkg.MockCash(4600), logger),
		rebalancing.NewPlanner(rebalancing.DefaultDustThreshold, logger),
		rebalancing.NewExecutor(broker, logger),
		2.0,
		logger,
	)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router, broker
}

func postJSON(router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	bodyBytes, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlePlan(t *testing.T) {
	router, broker := setupRouter()

	w := postJSON(router, "/rebalance/plan", map[string]interface{}{
		"symbols":     []string{"AAPL", "MSFT"},
		"allocations": []float64{30, 30},
		"cash_buffer": 0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Data struct {
			Legs   []rebalancing.Leg `json:"legs"`
			Count  int               `json:"count"`
			Equity float64           `json:"equity"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 10000.0, response.Data.Equity)
	require.Equal(t, 2, response.Data.Count)
	assert.Equal(t, "AAPL", response.Data.Legs[0].Symbol)
	assert.InDelta(t, 10.0, response.Data.Legs[0].Quantity, 1e-9)
	assert.InDelta(t, 5.0, response.Data.Legs[1].Quantity, 1e-9)

	assert.Empty(t, broker.Orders(), "planning never trades")
}

func TestHandleExecute(t *testing.T) {
	router, broker := setupRouter()

	w := postJSON(router, "/rebalance/execute", map[string]interface{}{
		"symbols":     []string{"NVDA", "AAPL"},
		"allocations": []float64{10, 30},
		"cash_buffer": 0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Data struct {
			Message string                  `json:"message"`
			Trades  []rebalancing.LegResult `json:"trades"`
			Failed  int                     `json:"failed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Rebalance orders submitted", response.Data.Message)
	assert.Equal(t, 0, response.Data.Failed)
	require.Len(t, response.Data.Trades, 2)

	orders := broker.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, "NVDA", orders[0].Symbol)
	assert.Equal(t, "sell", string(orders[0].Side))
	assert.Equal(t, "AAPL", orders[1].Symbol)
}

func TestHandleExecute_NoTrades(t *testing.T) {
	router, broker := setupRouter()

	// Current AAPL weight at equity 10000 with a 0% buffer is exactly 15%
	w := postJSON(router, "/rebalance/", map[string]interface{}{
		"symbols":     []string{"AAPL"},
		"allocations": []float64{15},
		"cash_buffer": 0,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No trades required")
	assert.Empty(t, broker.Orders())
}

func TestHandlePlan_InvalidRequest(t *testing.T) {
	router, _ := setupRouter()

	w := postJSON(router, "/rebalance/plan", map[string]interface{}{
		"symbols":     []string{"AAPL", "MSFT"},
		"allocations": []float64{50},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid rebalance request")

	req := httptest.NewRequest(http.MethodPost, "/rebalance/plan", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
