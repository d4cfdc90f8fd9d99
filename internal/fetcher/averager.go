package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const timeseriesPath = "/timeseries"

// EmptyPolicy decides what an averager returns when the series fetch
// fails or yields no data points.
type EmptyPolicy string

const (
	// PolicyFail propagates the failure to the caller.
	PolicyFail EmptyPolicy = "fail"
	// PolicyFallback substitutes a fixed configured rate.
	PolicyFallback EmptyPolicy = "fallback"
)

// AveragerOptions parameterise the timeseries averager.
type AveragerOptions struct {
	BaseURL      string
	WindowYears  int
	BufferDays   int
	Timeout      time.Duration
	UserAgent    string
	OnEmpty      EmptyPolicy
	FallbackRate decimal.Decimal

	// OnFallbackUsed is invoked each time the fallback rate substitutes
	// for a failed or empty series fetch. May be nil.
	OnFallbackUsed func()
}

// Averager computes a trailing mean rate from a timeseries endpoint.
type Averager struct {
	opts    AveragerOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewAverager constructs a timeseries history averager.
func NewAverager(opts AveragerOptions, logger zerolog.Logger) *Averager {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if opts.WindowYears <= 0 {
		opts.WindowYears = 3
	}
	if opts.BufferDays < 0 {
		opts.BufferDays = 0
	}
	if opts.OnEmpty == "" {
		opts.OnEmpty = PolicyFail
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.exchangerate.host"
	}

	return &Averager{
		opts:    opts,
		logger:  logger.With().Str("component", "history_averager").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		now:     time.Now,
	}
}

type timeseriesResponse struct {
	Rates map[string]map[string]json.Number `json:"rates"`
}

// FetchAverage returns the arithmetic mean of daily closing rates over
// the configured window ending today. The configured policy governs
// failures and empty series.
func (av *Averager) FetchAverage(ctx context.Context, base, target string) (decimal.Decimal, error) {
	mean, err := av.fetchMean(ctx, base, target)
	if err != nil {
		if av.opts.OnEmpty == PolicyFallback {
			av.logger.Warn().Err(err).
				Str("base", base).
				Str("target", target).
				Str("fallback", av.opts.FallbackRate.String()).
				Msg("history fetch failed, using fallback rate")
			if av.opts.OnFallbackUsed != nil {
				av.opts.OnFallbackUsed()
			}
			return av.opts.FallbackRate, nil
		}
		return decimal.Decimal{}, err
	}
	return mean, nil
}

func (av *Averager) fetchMean(ctx context.Context, base, target string) (decimal.Decimal, error) {
	if base == "" || target == "" {
		return decimal.Decimal{}, errors.New("base and target currency codes required")
	}

	end := av.now().UTC()
	start := end.AddDate(0, 0, -(av.opts.WindowYears*365 + av.opts.BufferDays))

	query := url.Values{}
	query.Set("base", base)
	query.Set("symbols", target)
	query.Set("start_date", start.Format("2006-01-02"))
	query.Set("end_date", end.Format("2006-01-02"))
	endpoint := av.baseURL + timeseriesPath + "?" + query.Encode()

	payload, err := getJSON(ctx, av.client, endpoint, av.opts.UserAgent)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch timeseries: %w", err)
	}

	var series timeseriesResponse
	if err := json.Unmarshal(payload, &series); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode timeseries response: %w", err)
	}

	sum := decimal.Zero
	count := int64(0)
	for day, rates := range series.Rates {
		raw, ok := rates[target]
		if !ok {
			continue
		}
		value, err := decimal.NewFromString(raw.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse rate for %s on %s: %w", target, day, err)
		}
		sum = sum.Add(value)
		count++
	}

	if count == 0 {
		return decimal.Decimal{}, errors.New("no rates returned for timeseries window")
	}

	return sum.Div(decimal.NewFromInt(count)), nil
}

var _ HistoryAverager = (*Averager)(nil)
