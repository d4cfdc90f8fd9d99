package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

type MockLatestFetcher struct {
	mock.Mock
}

func (m *MockLatestFetcher) FetchLatest(ctx context.Context, base, target string) (decimal.Decimal, error) {
	args := m.Called(ctx, base, target)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockAverager struct {
	mock.Mock
}

func (m *MockAverager) FetchAverage(ctx context.Context, base, target string) (decimal.Decimal, error) {
	args := m.Called(ctx, base, target)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockStatStore struct {
	mock.Mock
}

func (m *MockStatStore) InsertRateStat(ctx context.Context, stat storage.RateStat) (storage.RateStat, error) {
	args := m.Called(ctx, stat)
	return args.Get(0).(storage.RateStat), args.Error(1)
}

func (m *MockStatStore) FindLatestRateStat(ctx context.Context, base, target string) (storage.RateStat, error) {
	args := m.Called(ctx, base, target)
	return args.Get(0).(storage.RateStat), args.Error(1)
}

func (m *MockStatStore) ListStatsBetween(ctx context.Context, base, target string, from, to time.Time) ([]storage.RateStat, error) {
	args := m.Called(ctx, base, target, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.RateStat), args.Error(1)
}

func (m *MockStatStore) ListRecentStats(ctx context.Context, base, target string, limit int) ([]storage.RateStat, error) {
	args := m.Called(ctx, base, target, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.RateStat), args.Error(1)
}

func (m *MockStatStore) CountStats(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyLowRate(ctx context.Context, stat storage.RateStat) (int, error) {
	args := m.Called(ctx, stat)
	return args.Int(0), args.Error(1)
}
