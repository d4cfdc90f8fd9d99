package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/JEEEEEEHO/currecnyAlert/internal/alerting"
	"github.com/JEEEEEEHO/currecnyAlert/internal/fetcher"
	"github.com/JEEEEEEHO/currecnyAlert/internal/metrics"
	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

// Source tags for RateQuote, distinguishing a persisted read from a
// live computation.
const (
	SourceDBCache = "db-cache"
	SourceLive    = "live"
)

// RateQuote is the read-path view of a rate statistic.
type RateQuote struct {
	Base        string          `json:"base"`
	Target      string          `json:"target"`
	CurrentRate decimal.Decimal `json:"current_rate"`
	Avg3Y       decimal.Decimal `json:"avg_3y"`
	Status      string          `json:"status"`
	LastUpdated time.Time       `json:"last_updated"`
	Source      string          `json:"source"`
}

// Options hold pipeline defaults.
type Options struct {
	DefaultBase   string
	DefaultTarget string
	NotifyEnabled bool
}

// Service orchestrates the compute-store-notify pipeline.
type Service struct {
	latest   fetcher.LatestRateFetcher
	history  fetcher.HistoryAverager
	store    storage.RateStatStore
	notifier alerting.Notifier
	metrics  *metrics.PipelineMetrics
	logger   zerolog.Logger
	opts     Options

	now func() time.Time
}

// New constructs the pipeline service. The notifier and metrics may be
// nil; the store is required for the persisting operations.
func New(opts Options, latest fetcher.LatestRateFetcher, history fetcher.HistoryAverager, store storage.RateStatStore, notifier alerting.Notifier, m *metrics.PipelineMetrics, logger zerolog.Logger) *Service {
	return &Service{
		latest:   latest,
		history:  history,
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("component", "service").Logger(),
		opts:     opts,
		now:      time.Now,
	}
}

// Classify maps a (current, average) pair onto a status. LOW iff the
// current rate is strictly below the average; the tie is HIGH.
func Classify(current, avg decimal.Decimal) string {
	if current.LessThan(avg) {
		return storage.StatusLow
	}
	return storage.StatusHigh
}

// ComputeAndStore fetches the current rate and trailing average,
// classifies the pair, and appends exactly one statistic row stamped
// with the call time. Empty codes fall back to the configured defaults.
func (s *Service) ComputeAndStore(ctx context.Context, base, target string) (storage.RateStat, error) {
	if s.store == nil {
		return storage.RateStat{}, fmt.Errorf("stat store not configured")
	}

	base, target = s.pair(base, target)

	current, avg, err := s.computeLive(ctx, base, target)
	if err != nil {
		return storage.RateStat{}, err
	}

	stat := storage.RateStat{
		Base:         base,
		Target:       target,
		CurrentRate:  current,
		Avg3Y:        avg,
		Status:       Classify(current, avg),
		CalculatedAt: s.now().UTC(),
	}

	stored, err := s.store.InsertRateStat(ctx, stat)
	if err != nil {
		return storage.RateStat{}, fmt.Errorf("persist rate stat: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ComputationsTotal.WithLabelValues(base+"/"+target, stored.Status).Inc()
	}

	s.logger.Info().
		Str("base", base).
		Str("target", target).
		Str("current", stored.CurrentRate.String()).
		Str("avg_3y", stored.Avg3Y.String()).
		Str("status", stored.Status).
		Msg("rate stat computed and stored")

	return stored, nil
}

// NotifyIfLow forwards a LOW statistic to the notifier. HIGH is a
// no-op for any subscriber set. A delivery error propagates after the
// statistic has already been persisted.
func (s *Service) NotifyIfLow(ctx context.Context, stat storage.RateStat) error {
	if !s.opts.NotifyEnabled || s.notifier == nil {
		return nil
	}

	sent, err := s.notifier.NotifyLowRate(ctx, stat)
	if s.metrics != nil {
		s.metrics.EmailsSentTotal.Add(float64(sent))
		if err != nil {
			s.metrics.EmailFailures.Inc()
		}
	}
	if err != nil {
		return fmt.Errorf("notify subscribers: %w", err)
	}
	return nil
}

// ComputeStoreAndNotify runs the full pipeline for one pair.
func (s *Service) ComputeStoreAndNotify(ctx context.Context, base, target string) (storage.RateStat, error) {
	started := s.now()

	stat, err := s.ComputeAndStore(ctx, base, target)
	if err != nil {
		return storage.RateStat{}, err
	}

	err = s.NotifyIfLow(ctx, stat)

	if s.metrics != nil {
		s.metrics.PipelineDuration.Observe(s.now().Sub(started).Seconds())
	}
	return stat, err
}

// LatestOrLive returns the most recent persisted statistic for the
// exact pair, tagged db-cache. When none exists it computes a live
// quote without persisting, tagged live.
func (s *Service) LatestOrLive(ctx context.Context, base, target string) (RateQuote, error) {
	base, target = s.pair(base, target)

	if s.store != nil {
		stat, err := s.store.FindLatestRateStat(ctx, base, target)
		switch {
		case err == nil:
			return RateQuote{
				Base:        stat.Base,
				Target:      stat.Target,
				CurrentRate: stat.CurrentRate,
				Avg3Y:       stat.Avg3Y,
				Status:      stat.Status,
				LastUpdated: stat.CalculatedAt,
				Source:      SourceDBCache,
			}, nil
		case errors.Is(err, storage.ErrStatNotFound):
			// fall through to live computation
		default:
			return RateQuote{}, err
		}
	}

	current, avg, err := s.computeLive(ctx, base, target)
	if err != nil {
		return RateQuote{}, err
	}

	return RateQuote{
		Base:        base,
		Target:      target,
		CurrentRate: current,
		Avg3Y:       avg,
		Status:      Classify(current, avg),
		LastUpdated: s.now().UTC(),
		Source:      SourceLive,
	}, nil
}

func (s *Service) computeLive(ctx context.Context, base, target string) (decimal.Decimal, decimal.Decimal, error) {
	current, err := s.latest.FetchLatest(ctx, base, target)
	if err != nil {
		if s.metrics != nil {
			s.metrics.FetchErrorsTotal.WithLabelValues("latest").Inc()
		}
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("fetch current rate: %w", err)
	}

	avg, err := s.history.FetchAverage(ctx, base, target)
	if err != nil {
		if s.metrics != nil {
			s.metrics.FetchErrorsTotal.WithLabelValues("history").Inc()
		}
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("fetch trailing average: %w", err)
	}

	return current, avg, nil
}

func (s *Service) pair(base, target string) (string, string) {
	if base == "" {
		base = s.opts.DefaultBase
	}
	if target == "" {
		target = s.opts.DefaultTarget
	}
	return strings.ToUpper(base), strings.ToUpper(target)
}
