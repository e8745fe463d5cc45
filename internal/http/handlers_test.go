package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/logger"
	"github.com/GooferByte/portfolio-engine/internal/portfolio"
	"github.com/GooferByte/portfolio-engine/internal/pricing/pricingtest"
	"github.com/GooferByte/portfolio-engine/internal/repository/memory"
	"github.com/GooferByte/portfolio-engine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Discard()
	oracle := pricingtest.New().
		WithCurrent("AAPL", 150).
		WithCurrent("MSFT", 300).
		WithCurrentRate(1.5)
	engine := portfolio.NewEngine(oracle, log)
	svc := service.NewPortfolioService(memory.New(), engine, "SPY", log)
	return Router(svc, log)
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	w := do(newRouter(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecordTransactionStatuses(t *testing.T) {
	r := newRouter(t)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	tests := []struct {
		name string
		body string
		want int
	}{
		{"created", `{"ticker":"aapl","side":"buy","quantity":"2","date":"` + yesterday + `","pricePerShare":"100","idempotencyKey":"k1"}`, http.StatusCreated},
		{"duplicate", `{"ticker":"aapl","side":"buy","quantity":"2","date":"` + yesterday + `","pricePerShare":"100","idempotencyKey":"k1"}`, http.StatusConflict},
		{"missing ticker", `{"side":"buy","quantity":"2","date":"` + yesterday + `"}`, http.StatusBadRequest},
		{"bad quantity", `{"ticker":"AAPL","side":"buy","quantity":"-1","date":"` + yesterday + `"}`, http.StatusBadRequest},
		{"bad date", `{"ticker":"AAPL","side":"buy","quantity":"1","date":"01/02/2024"}`, http.StatusBadRequest},
		{"bad price", `{"ticker":"AAPL","side":"buy","quantity":"1","date":"` + yesterday + `","pricePerShare":"abc"}`, http.StatusBadRequest},
		{"bad side", `{"ticker":"AAPL","side":"short","quantity":"1","date":"` + yesterday + `"}`, http.StatusBadRequest},
		{"oversell", `{"ticker":"AAPL","side":"sell","quantity":"3","date":"` + yesterday + `","pricePerShare":"120"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/transactions", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestDuplicateReturnsStoredTransaction(t *testing.T) {
	r := newRouter(t)
	body := `{"ticker":"AAPL","side":"BUY","quantity":"1","date":"2024-01-02","pricePerShare":"100"}`

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "row-1")
	first := httptest.NewRecorder()
	r.ServeHTTP(first, req)
	require.Equal(t, http.StatusCreated, first.Code)
	created := decode(t, first)

	req = httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "row-1")
	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)
	require.Equal(t, http.StatusConflict, second.Code)

	dup := decode(t, second)
	stored, ok := dup["transaction"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, created["id"], stored["id"])
}

func TestReportingEndpoints(t *testing.T) {
	r := newRouter(t)
	for _, body := range []string{
		`{"accountId":"broker-a","ticker":"AAPL","side":"BUY","quantity":"10","date":"2024-01-02","pricePerShare":"100"}`,
		`{"accountId":"broker-a","ticker":"AAPL","side":"SELL","quantity":"4","date":"2024-01-03","pricePerShare":"125"}`,
		`{"ticker":"MSFT","side":"BUY","quantity":"1","date":"2024-01-02","pricePerShare":"250"}`,
	} {
		w := do(r, http.MethodPost, "/transactions", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := do(r, http.MethodGet, "/transactions?account=broker-a", "")
	require.Equal(t, http.StatusOK, w.Code)
	txs := decode(t, w)["transactions"].([]interface{})
	assert.Len(t, txs, 2)

	w = do(r, http.MethodGet, "/holdings?account=broker-a", "")
	require.Equal(t, http.StatusOK, w.Code)
	holdings := decode(t, w)["holdings"].([]interface{})
	require.Len(t, holdings, 1)
	h := holdings[0].(map[string]interface{})
	assert.Equal(t, "AAPL", h["ticker"])
	assert.Equal(t, "6", h["quantity"])
	assert.Equal(t, 600.0, h["costBasisUsd"])

	w = do(r, http.MethodGet, "/realized-gains?account=broker-a", "")
	require.Equal(t, http.StatusOK, w.Code)
	gains := decode(t, w)
	assert.Equal(t, 100.0, gains["totalUsd"])
	assert.Equal(t, 1.0, gains["sellCount"])

	w = do(r, http.MethodGet, "/composition", "")
	require.Equal(t, http.StatusOK, w.Code)
	comp := decode(t, w)
	assert.Equal(t, 1200.0, comp["totalValueUsd"])
	assert.Equal(t, 800.0, comp["totalValueEur"])
	positions := comp["holdings"].([]interface{})
	require.Len(t, positions, 2)
	assert.Equal(t, 75.0, positions[0].(map[string]interface{})["weight"])

	w = do(r, http.MethodGet, "/performance?account=nobody&benchmark=qqq", "")
	require.Equal(t, http.StatusOK, w.Code)
	perf := decode(t, w)
	assert.Equal(t, true, perf["noData"])
	assert.Equal(t, "QQQ", perf["benchmark"])
}
