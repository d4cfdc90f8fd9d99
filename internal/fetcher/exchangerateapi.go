package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// APIOptions parameterise the exchangerate-api.com v6 provider.
type APIOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// API fetches latest rates from the key-in-path v6 endpoint.
type API struct {
	opts    APIOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewAPI constructs an exchangerate-api v6 latest-rate fetcher.
func NewAPI(opts APIOptions, logger zerolog.Logger) *API {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://v6.exchangerate-api.com/v6"
	}

	return &API{
		opts:    opts,
		logger:  logger.With().Str("component", "api_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type apiLatestResponse struct {
	Result          string                 `json:"result"`
	ErrorType       string                 `json:"error-type"`
	ConversionRates map[string]json.Number `json:"conversion_rates"`
}

// FetchLatest retrieves the current base→target rate.
func (a *API) FetchLatest(ctx context.Context, base, target string) (decimal.Decimal, error) {
	if a.opts.APIKey == "" {
		return decimal.Decimal{}, errors.New("api key not configured")
	}
	if base == "" || target == "" {
		return decimal.Decimal{}, errors.New("base and target currency codes required")
	}

	endpoint := fmt.Sprintf("%s/%s/latest/%s", a.baseURL, a.opts.APIKey, base)

	payload, err := getJSON(ctx, a.client, endpoint, a.opts.UserAgent)
	if err != nil {
		return decimal.Decimal{}, err
	}

	var latest apiLatestResponse
	if err := json.Unmarshal(payload, &latest); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode latest response: %w", err)
	}

	if latest.Result != "success" {
		if latest.ErrorType != "" {
			return decimal.Decimal{}, fmt.Errorf("rate api rejected request: %s", latest.ErrorType)
		}
		return decimal.Decimal{}, fmt.Errorf("rate api returned result %q", latest.Result)
	}

	raw, ok := latest.ConversionRates[target]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("rate for %s missing in conversion rates", target)
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse rate for %s: %w", target, err)
	}

	return rate, nil
}

var _ LatestRateFetcher = (*API)(nil)
