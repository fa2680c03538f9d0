package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mwhited/taxlot-service/internal/models"
	"github.com/mwhited/taxlot-service/internal/taxlot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a router over a fresh engine with no optional
// collaborators (no db, no kafka, no redis).
func newTestServer(t *testing.T) (*httptest.Server, *taxlot.Engine) {
	t.Helper()
	engine := taxlot.NewEngine(taxlot.NewLotStore(), taxlot.DefaultConfig())
	srv := httptest.NewServer(SetupRoutes(NewHandler(engine, nil, nil, nil)))
	t.Cleanup(srv.Close)
	return srv, engine
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func addLot(t *testing.T, srv *httptest.Server, userID string, body map[string]interface{}) models.TaxLot {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/v1/users/"+userID+"/lots", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var lot models.TaxLot
	decodeJSON(t, resp, &lot)
	return lot
}

func TestAddLotEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)

	lot := addLot(t, srv, "user-1", map[string]interface{}{
		"symbol":        "aapl",
		"shares":        "10",
		"cost_basis":    "150.25",
		"purchase_date": "2024-03-01",
	})

	assert.NotEmpty(t, lot.ID)
	assert.Equal(t, "AAPL", lot.Symbol)

	open := engine.OpenLots("user-1", "AAPL")
	require.Len(t, open, 1)
}

func TestAddLotEndpoint_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	url := srv.URL + "/api/v1/users/user-1/lots"

	// Malformed body
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing purchase date
	resp = postJSON(t, url, map[string]interface{}{
		"symbol": "AAPL", "shares": "10", "cost_basis": "100",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Non-positive shares
	resp = postJSON(t, url, map[string]interface{}{
		"symbol": "AAPL", "shares": "0", "cost_basis": "100", "purchase_date": "2024-03-01",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetLotsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	addLot(t, srv, "user-1", map[string]interface{}{
		"symbol": "AAPL", "shares": "10", "cost_basis": "100", "purchase_date": "2024-01-01",
	})
	addLot(t, srv, "user-1", map[string]interface{}{
		"symbol": "MSFT", "shares": "5", "cost_basis": "300", "purchase_date": "2024-02-01",
	})

	resp, err := http.Get(srv.URL + "/api/v1/users/user-1/lots")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lots []models.TaxLot
	decodeJSON(t, resp, &lots)
	assert.Len(t, lots, 2)

	resp, err = http.Get(srv.URL + "/api/v1/users/user-1/lots?symbol=MSFT")
	require.NoError(t, err)
	decodeJSON(t, resp, &lots)
	require.Len(t, lots, 1)
	assert.Equal(t, "MSFT", lots[0].Symbol)

	// Unknown status value
	resp, err = http.Get(srv.URL + "/api/v1/users/user-1/lots?status=closed")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown user gets an empty list, not an error
	resp, err = http.Get(srv.URL + "/api/v1/users/nobody/lots")
	require.NoError(t, err)
	decodeJSON(t, resp, &lots)
	assert.Empty(t, lots)
}

func TestSellSharesEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)
	addLot(t, srv, "user-1", map[string]interface{}{
		"symbol": "AAPL", "shares": "10", "cost_basis": "100", "purchase_date": "2024-01-01",
	})

	resp := postJSON(t, srv.URL+"/api/v1/users/user-1/sales", map[string]interface{}{
		"symbol": "AAPL", "shares": "4", "sale_price": "150", "sale_date": "2024-06-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.SaleResult
	decodeJSON(t, resp, &result)
	assert.Equal(t, models.MethodFIFO, result.Method)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "600", result.TotalProceeds.String())
	assert.Equal(t, "200", result.RealizedGain.String())

	open := engine.OpenLots("user-1", "AAPL")
	require.Len(t, open, 1)
	assert.Equal(t, "6", open[0].Shares.String())
}

func TestSellSharesEndpoint_ErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	addLot(t, srv, "user-1", map[string]interface{}{
		"symbol": "AAPL", "shares": "10", "cost_basis": "100", "purchase_date": "2024-01-01",
	})
	url := srv.URL + "/api/v1/users/user-1/sales"

	// Over-sell → 409
	resp := postJSON(t, url, map[string]interface{}{
		"symbol": "AAPL", "shares": "11", "sale_price": "150", "sale_date": "2024-06-01",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Specific method without lot ids → 400
	resp = postJSON(t, url, map[string]interface{}{
		"symbol": "AAPL", "shares": "1", "sale_price": "150", "sale_date": "2024-06-01",
		"method": "specific",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown specific lot → 404
	resp = postJSON(t, url, map[string]interface{}{
		"symbol": "AAPL", "shares": "1", "sale_price": "150", "sale_date": "2024-06-01",
		"method": "specific", "lot_ids": []string{"missing"},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Non-positive price → 400
	resp = postJSON(t, url, map[string]interface{}{
		"symbol": "AAPL", "shares": "1", "sale_price": "0", "sale_date": "2024-06-01",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTaxSummaryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	addLot(t, srv, "user-1", map[string]interface{}{
		"symbol": "AAPL", "shares": "10", "cost_basis": "100", "purchase_date": "2022-01-01",
	})
	resp := postJSON(t, srv.URL+"/api/v1/users/user-1/sales", map[string]interface{}{
		"symbol": "AAPL", "shares": "10", "sale_price": "150", "sale_date": "2024-06-01",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/api/v1/users/user-1/tax-summary?year=2024")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary models.TaxSummary
	decodeJSON(t, resp, &summary)
	assert.Equal(t, 1, summary.EventCount)
	assert.Equal(t, "500", summary.LongTermGains.String())

	// A year with no events is a valid all-zero summary
	resp, err = http.Get(srv.URL + "/api/v1/users/user-1/tax-summary?year=2019")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &summary)
	assert.Equal(t, 0, summary.EventCount)
	assert.True(t, summary.TotalRealizedGain.IsZero())

	// Missing year
	resp, err = http.Get(srv.URL + "/api/v1/users/user-1/tax-summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetEventsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	addLot(t, srv, "user-1", map[string]interface{}{
		"symbol": "AAPL", "shares": "20", "cost_basis": "100", "purchase_date": "2022-01-01",
	})
	for _, saleDate := range []string{"2023-07-01", "2024-07-01"} {
		resp := postJSON(t, srv.URL+"/api/v1/users/user-1/sales", map[string]interface{}{
			"symbol": "AAPL", "shares": "5", "sale_price": "150", "sale_date": saleDate,
		})
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var events []models.DisposalEvent
	resp, err := http.Get(srv.URL + "/api/v1/users/user-1/events")
	require.NoError(t, err)
	decodeJSON(t, resp, &events)
	assert.Len(t, events, 2)

	resp, err = http.Get(srv.URL + "/api/v1/users/user-1/events?year=2023")
	require.NoError(t, err)
	decodeJSON(t, resp, &events)
	assert.Len(t, events, 1)

	resp, err = http.Get(srv.URL + "/api/v1/users/user-1/events?year=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnrealizedGainsEndpoint_NoPriceCache(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/users/user-1/unrealized-gains")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthCheckEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	decodeJSON(t, resp, &health)
	assert.Equal(t, "healthy", health["status"])

	services, ok := health["services"].(map[string]interface{})
	require.True(t, ok)
	for _, svc := range []string{"postgres", "redis", "kafka"} {
		assert.Equal(t, "not configured", services[svc], fmt.Sprintf("service %s", svc))
	}
}
