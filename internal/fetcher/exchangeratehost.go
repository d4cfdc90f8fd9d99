package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const hostLatestPath = "/latest"

// HostOptions parameterise the exchangerate.host style provider.
type HostOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Host fetches latest rates from an exchangerate.host compatible endpoint.
type Host struct {
	opts    HostOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewHost constructs an exchangerate.host latest-rate fetcher.
func NewHost(opts HostOptions, logger zerolog.Logger) *Host {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.exchangerate.host"
	}

	return &Host{
		opts:    opts,
		logger:  logger.With().Str("component", "host_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type hostLatestResponse struct {
	Rates map[string]json.Number `json:"rates"`
}

// FetchLatest retrieves the current base→target rate.
func (h *Host) FetchLatest(ctx context.Context, base, target string) (decimal.Decimal, error) {
	if base == "" || target == "" {
		return decimal.Decimal{}, errors.New("base and target currency codes required")
	}

	query := url.Values{}
	query.Set("base", base)
	query.Set("symbols", target)
	endpoint := h.baseURL + hostLatestPath + "?" + query.Encode()

	payload, err := getJSON(ctx, h.client, endpoint, h.opts.UserAgent)
	if err != nil {
		return decimal.Decimal{}, err
	}

	var latest hostLatestResponse
	if err := json.Unmarshal(payload, &latest); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode latest response: %w", err)
	}

	raw, ok := latest.Rates[target]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("rate for %s missing in latest response", target)
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse rate for %s: %w", target, err)
	}

	return rate, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	return payload, nil
}

type errorResponse struct {
	ErrorType   string `json:"error-type"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Description != "" {
			return fmt.Errorf("rate api error (%d): %s", status, apiErr.Description)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("rate api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.ErrorType != "" {
			return fmt.Errorf("rate api error (%d): %s", status, apiErr.ErrorType)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("rate api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("rate api error (%d)", status)
}

var _ LatestRateFetcher = (*Host)(nil)
