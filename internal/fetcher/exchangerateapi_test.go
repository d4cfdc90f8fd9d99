package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAPIFetchLatestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/secret-key/latest/USD" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result":           "success",
			"conversion_rates": map[string]float64{"KRW": 1301.5, "EUR": 0.92},
		})
	}))
	defer srv.Close()

	a := NewAPI(APIOptions{BaseURL: srv.URL, APIKey: "secret-key", Timeout: time.Second}, noopLogger())

	rate, err := a.FetchLatest(context.Background(), "USD", "KRW")
	if err != nil {
		t.Fatalf("successful response should not error: %v", err)
	}
	if rate.Cmp(decimal.NewFromFloat(1301.5)) != 0 {
		t.Fatalf("expected rate 1301.5, got %s", rate.String())
	}
}

func TestAPIFetchLatestMissingKey(t *testing.T) {
	a := NewAPI(APIOptions{}, noopLogger())
	if _, err := a.FetchLatest(context.Background(), "USD", "KRW"); err == nil {
		t.Fatal("missing api key should return an error")
	}
}

func TestAPIFetchLatestRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result":     "error",
			"error-type": "invalid-key",
		})
	}))
	defer srv.Close()

	a := NewAPI(APIOptions{BaseURL: srv.URL, APIKey: "bad", Timeout: time.Second}, noopLogger())

	if _, err := a.FetchLatest(context.Background(), "USD", "KRW"); err == nil {
		t.Fatal("rejected request should return an error")
	}
}
