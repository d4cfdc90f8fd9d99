package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

func setupService(t *testing.T) (*Service, *MockLatestFetcher, *MockAverager, *MockStatStore, *MockNotifier) {
	t.Helper()

	latest := new(MockLatestFetcher)
	history := new(MockAverager)
	store := new(MockStatStore)
	notifier := new(MockNotifier)

	opts := Options{
		DefaultBase:   "USD",
		DefaultTarget: "KRW",
		NotifyEnabled: true,
	}

	svc := New(opts, latest, history, store, notifier, nil, zerolog.Nop())
	return svc, latest, history, store, notifier
}

func TestClassifyStrictInequality(t *testing.T) {
	cases := []struct {
		name    string
		current float64
		avg     float64
		want    string
	}{
		{"below average", 1300.0, 1350.0, storage.StatusLow},
		{"above average", 1400.0, 1350.0, storage.StatusHigh},
		{"exactly equal", 1350.0, 1350.0, storage.StatusHigh},
		{"marginally below", 1349.9999, 1350.0, storage.StatusLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(decimal.NewFromFloat(tc.current), decimal.NewFromFloat(tc.avg))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComputeAndStorePersistsExactlyOneRecord(t *testing.T) {
	svc, latest, history, store, _ := setupService(t)
	ctx := context.Background()

	latest.On("FetchLatest", ctx, "USD", "KRW").Return(decimal.NewFromFloat(1300.0), nil)
	history.On("FetchAverage", ctx, "USD", "KRW").Return(decimal.NewFromFloat(1350.0), nil)

	before := time.Now().UTC()
	store.On("InsertRateStat", ctx, mock.MatchedBy(func(stat storage.RateStat) bool {
		return stat.Base == "USD" &&
			stat.Target == "KRW" &&
			stat.Status == storage.StatusLow &&
			!stat.CalculatedAt.Before(before)
	})).Return(storage.RateStat{
		ID:           1,
		Base:         "USD",
		Target:       "KRW",
		CurrentRate:  decimal.NewFromFloat(1300.0),
		Avg3Y:        decimal.NewFromFloat(1350.0),
		Status:       storage.StatusLow,
		CalculatedAt: before,
	}, nil).Once()

	stat, err := svc.ComputeAndStore(ctx, "USD", "KRW")

	require.NoError(t, err)
	assert.Equal(t, storage.StatusLow, stat.Status)
	store.AssertNumberOfCalls(t, "InsertRateStat", 1)
}

func TestComputeAndStoreAppliesDefaultPair(t *testing.T) {
	svc, latest, history, store, _ := setupService(t)
	ctx := context.Background()

	latest.On("FetchLatest", ctx, "USD", "KRW").Return(decimal.NewFromFloat(1400.0), nil)
	history.On("FetchAverage", ctx, "USD", "KRW").Return(decimal.NewFromFloat(1350.0), nil)
	store.On("InsertRateStat", ctx, mock.Anything).Return(storage.RateStat{Status: storage.StatusHigh}, nil)

	stat, err := svc.ComputeAndStore(ctx, "", "")

	require.NoError(t, err)
	assert.Equal(t, storage.StatusHigh, stat.Status)
	latest.AssertCalled(t, "FetchLatest", ctx, "USD", "KRW")
}

func TestComputeAndStoreFetchErrorSkipsPersistence(t *testing.T) {
	svc, latest, _, store, _ := setupService(t)
	ctx := context.Background()

	latest.On("FetchLatest", ctx, "USD", "KRW").Return(decimal.Decimal{}, errors.New("upstream down"))

	_, err := svc.ComputeAndStore(ctx, "USD", "KRW")

	require.Error(t, err)
	store.AssertNotCalled(t, "InsertRateStat", mock.Anything, mock.Anything)
}

func TestComputeAndStoreWithoutStoreSkipsFetches(t *testing.T) {
	latest := new(MockLatestFetcher)
	history := new(MockAverager)

	svc := New(Options{DefaultBase: "USD", DefaultTarget: "KRW"},
		latest, history, nil, nil, nil, zerolog.Nop())

	_, err := svc.ComputeAndStore(context.Background(), "USD", "KRW")

	require.Error(t, err)
	latest.AssertNotCalled(t, "FetchLatest", mock.Anything, mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "FetchAverage", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifyIfLowDisabledSkipsNotifier(t *testing.T) {
	latest := new(MockLatestFetcher)
	history := new(MockAverager)
	store := new(MockStatStore)
	notifier := new(MockNotifier)

	svc := New(Options{DefaultBase: "USD", DefaultTarget: "KRW", NotifyEnabled: false},
		latest, history, store, notifier, nil, zerolog.Nop())

	err := svc.NotifyIfLow(context.Background(), storage.RateStat{Status: storage.StatusLow})

	require.NoError(t, err)
	notifier.AssertNotCalled(t, "NotifyLowRate", mock.Anything, mock.Anything)
}

func TestComputeStoreAndNotifyForwardsLowStat(t *testing.T) {
	svc, latest, history, store, notifier := setupService(t)
	ctx := context.Background()

	stored := storage.RateStat{
		ID:          7,
		Base:        "USD",
		Target:      "KRW",
		CurrentRate: decimal.NewFromFloat(1300.0),
		Avg3Y:       decimal.NewFromFloat(1350.0),
		Status:      storage.StatusLow,
	}

	latest.On("FetchLatest", ctx, "USD", "KRW").Return(decimal.NewFromFloat(1300.0), nil)
	history.On("FetchAverage", ctx, "USD", "KRW").Return(decimal.NewFromFloat(1350.0), nil)
	store.On("InsertRateStat", ctx, mock.Anything).Return(stored, nil)
	notifier.On("NotifyLowRate", ctx, stored).Return(2, nil).Once()

	stat, err := svc.ComputeStoreAndNotify(ctx, "USD", "KRW")

	require.NoError(t, err)
	assert.Equal(t, storage.StatusLow, stat.Status)
	notifier.AssertExpectations(t)
}

func TestComputeStoreAndNotifyPropagatesNotifyError(t *testing.T) {
	svc, latest, history, store, notifier := setupService(t)
	ctx := context.Background()

	stored := storage.RateStat{Status: storage.StatusLow}

	latest.On("FetchLatest", ctx, "USD", "KRW").Return(decimal.NewFromFloat(1300.0), nil)
	history.On("FetchAverage", ctx, "USD", "KRW").Return(decimal.NewFromFloat(1350.0), nil)
	store.On("InsertRateStat", ctx, mock.Anything).Return(stored, nil)
	notifier.On("NotifyLowRate", ctx, stored).Return(1, errors.New("smtp: connection refused"))

	_, err := svc.ComputeStoreAndNotify(ctx, "USD", "KRW")

	require.Error(t, err)
	store.AssertNumberOfCalls(t, "InsertRateStat", 1)
}

func TestLatestOrLiveReturnsPersistedRecord(t *testing.T) {
	svc, latest, history, store, _ := setupService(t)
	ctx := context.Background()

	calculatedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store.On("FindLatestRateStat", ctx, "USD", "KRW").Return(storage.RateStat{
		Base:         "USD",
		Target:       "KRW",
		CurrentRate:  decimal.NewFromFloat(1310.0),
		Avg3Y:        decimal.NewFromFloat(1340.0),
		Status:       storage.StatusLow,
		CalculatedAt: calculatedAt,
	}, nil)

	quote, err := svc.LatestOrLive(ctx, "USD", "KRW")

	require.NoError(t, err)
	assert.Equal(t, SourceDBCache, quote.Source)
	assert.Equal(t, calculatedAt, quote.LastUpdated)
	latest.AssertNotCalled(t, "FetchLatest", mock.Anything, mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "FetchAverage", mock.Anything, mock.Anything, mock.Anything)
}

func TestLatestOrLiveComputesLiveWithoutPersisting(t *testing.T) {
	svc, latest, history, store, _ := setupService(t)
	ctx := context.Background()

	store.On("FindLatestRateStat", ctx, "USD", "JPY").Return(storage.RateStat{}, storage.ErrStatNotFound)
	latest.On("FetchLatest", ctx, "USD", "JPY").Return(decimal.NewFromFloat(147.2), nil)
	history.On("FetchAverage", ctx, "USD", "JPY").Return(decimal.NewFromFloat(140.0), nil)

	quote, err := svc.LatestOrLive(ctx, "USD", "JPY")

	require.NoError(t, err)
	assert.Equal(t, SourceLive, quote.Source)
	assert.Equal(t, storage.StatusHigh, quote.Status)
	store.AssertNotCalled(t, "InsertRateStat", mock.Anything, mock.Anything)
}

func TestLatestOrLivePropagatesStoreError(t *testing.T) {
	svc, _, _, store, _ := setupService(t)
	ctx := context.Background()

	store.On("FindLatestRateStat", ctx, "USD", "KRW").Return(storage.RateStat{}, errors.New("connection reset"))

	_, err := svc.LatestOrLive(ctx, "USD", "KRW")

	require.Error(t, err)
}
