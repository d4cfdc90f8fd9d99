package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JEEEEEEHO/currecnyAlert/internal/config"
	"github.com/JEEEEEEHO/currecnyAlert/internal/service"
	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

type fakePipeline struct {
	quote      service.RateQuote
	quoteErr   error
	stat       storage.RateStat
	computeErr error

	latestCalls  [][2]string
	computeCalls [][2]string
}

func (f *fakePipeline) LatestOrLive(ctx context.Context, base, target string) (service.RateQuote, error) {
	f.latestCalls = append(f.latestCalls, [2]string{base, target})
	return f.quote, f.quoteErr
}

func (f *fakePipeline) ComputeStoreAndNotify(ctx context.Context, base, target string) (storage.RateStat, error) {
	f.computeCalls = append(f.computeCalls, [2]string{base, target})
	return f.stat, f.computeErr
}

type fakeHistory struct {
	stats []storage.RateStat
	err   error

	gotBase   string
	gotTarget string
	gotLimit  int
}

func (f *fakeHistory) ListRecentStats(ctx context.Context, base, target string, limit int) ([]storage.RateStat, error) {
	f.gotBase = base
	f.gotTarget = target
	f.gotLimit = limit
	return f.stats, f.err
}

func newTestServer(pipeline RatePipeline, history StatHistory) *Server {
	return New(config.ServerConfig{ListenAddr: ":0"}, "test", pipeline, history, "USD", "KRW", zerolog.Nop())
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakePipeline{}, &fakeHistory{})
	rec := doRequest(t, srv, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLatestReturnsQuote(t *testing.T) {
	pipeline := &fakePipeline{
		quote: service.RateQuote{
			Base:        "USD",
			Target:      "KRW",
			CurrentRate: decimal.NewFromFloat(1300.5),
			Avg3Y:       decimal.NewFromFloat(1350.25),
			Status:      storage.StatusLow,
			LastUpdated: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
			Source:      service.SourceDBCache,
		},
	}
	srv := newTestServer(pipeline, &fakeHistory{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/rates/latest?base=USD&target=KRW")

	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "USD", got["base"])
	assert.Equal(t, "KRW", got["target"])
	assert.Equal(t, "1300.5", got["current_rate"])
	assert.Equal(t, "LOW", got["status"])
	assert.Equal(t, "db-cache", got["source"])

	require.Len(t, pipeline.latestCalls, 1)
	assert.Equal(t, [2]string{"USD", "KRW"}, pipeline.latestCalls[0])
}

func TestLatestPipelineFailureMapsToBadGateway(t *testing.T) {
	pipeline := &fakePipeline{quoteErr: errors.New("fetch current rate: timeout")}
	srv := newTestServer(pipeline, &fakeHistory{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/rates/latest")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeout")
}

func TestHistoryAppliesDefaultsAndLimit(t *testing.T) {
	history := &fakeHistory{
		stats: []storage.RateStat{
			{
				Base:         "USD",
				Target:       "KRW",
				CurrentRate:  decimal.NewFromFloat(1300),
				Avg3Y:        decimal.NewFromFloat(1350),
				Status:       storage.StatusLow,
				CalculatedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
			},
		},
	}
	srv := newTestServer(&fakePipeline{}, history)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/rates/history")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "USD", history.gotBase)
	assert.Equal(t, "KRW", history.gotTarget)
	assert.Equal(t, 20, history.gotLimit)

	var got struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "1300", got.Items[0]["current_rate"])
	assert.Equal(t, "LOW", got.Items[0]["status"])
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	srv := newTestServer(&fakePipeline{}, &fakeHistory{})

	for _, raw := range []string{"abc", "0", "-3"} {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/rates/history?limit="+raw)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)
	}
}

func TestHistoryWithoutPersistence(t *testing.T) {
	srv := newTestServer(&fakePipeline{}, nil)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/rates/history")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestComputeTriggersPipeline(t *testing.T) {
	pipeline := &fakePipeline{
		stat: storage.RateStat{
			Base:         "EUR",
			Target:       "JPY",
			CurrentRate:  decimal.NewFromFloat(160.2),
			Avg3Y:        decimal.NewFromFloat(155.8),
			Status:       storage.StatusHigh,
			CalculatedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
		},
	}
	srv := newTestServer(pipeline, &fakeHistory{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/rates/compute?base=EUR&target=JPY")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, pipeline.computeCalls, 1)
	assert.Equal(t, [2]string{"EUR", "JPY"}, pipeline.computeCalls[0])

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "HIGH", got["status"])
	assert.Equal(t, "160.2", got["current_rate"])
}

func TestComputeFailureMapsToBadGateway(t *testing.T) {
	pipeline := &fakePipeline{computeErr: errors.New("insert rate stat: connection reset")}
	srv := newTestServer(pipeline, &fakeHistory{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/rates/compute")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
