package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// LatestRateFetcher retrieves the instantaneous base→target exchange rate.
type LatestRateFetcher interface {
	FetchLatest(ctx context.Context, base, target string) (decimal.Decimal, error)
}

// HistoryAverager approximates the trailing multi-year mean rate for a pair.
type HistoryAverager interface {
	FetchAverage(ctx context.Context, base, target string) (decimal.Decimal, error)
}
