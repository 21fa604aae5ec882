// Package weather implements the engine's weather provider against an
// OpenWeather-compatible API. All outbound calls go through a circuit
// breaker and retry with exponential backoff, so a flapping upstream trips
// open instead of stalling every evaluation cycle.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/epiforecast/outbreak-engine/internal/domain"
)

// RetryPolicy configures retry behavior for upstream weather calls.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the defaults used in production.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// Client fetches current and forecast observations from an
// OpenWeather-compatible endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	retry      RetryPolicy
	logger     *slog.Logger
	sleepFn    func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithSleepFunc overrides the inter-retry sleep, for tests.
func WithSleepFunc(fn func(time.Duration)) Option {
	return func(c *Client) { c.sleepFn = fn }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient creates a weather client. The breaker trips open after five
// consecutive failures and probes again after thirty seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "weather-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	c := &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		retry:      DefaultRetryPolicy(),
		logger:     logger,
		sleepFn:    time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the latest observation for a location.
func (c *Client) Current(ctx context.Context, location string) (domain.WeatherObservation, error) {
	params := url.Values{
		"q":     {location},
		"appid": {c.apiKey},
		"units": {"metric"},
	}

	var payload conditions
	if err := c.getJSON(ctx, c.baseURL+"/weather?"+params.Encode(), &payload); err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("current weather for %s: %w", location, err)
	}
	return payload.toObservation(location), nil
}

// History returns forecast observations for a location covering up to `days`
// days ahead. The upstream forecast endpoint serves 3-hourly entries.
func (c *Client) History(ctx context.Context, location string, days int) ([]domain.WeatherObservation, error) {
	if days < 1 {
		return nil, &domain.ValidationError{Field: "days", Reason: fmt.Sprintf("must be positive, got %d", days)}
	}

	params := url.Values{
		"q":     {location},
		"appid": {c.apiKey},
		"units": {"metric"},
		"cnt":   {strconv.Itoa(min(days*8, 40))},
	}

	var payload forecastResponse
	if err := c.getJSON(ctx, c.baseURL+"/forecast?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("forecast for %s: %w", location, err)
	}

	observations := make([]domain.WeatherObservation, 0, len(payload.List))
	for _, entry := range payload.List {
		observations = append(observations, entry.toObservation(location))
	}
	return observations, nil
}

// getJSON runs a GET through the breaker with retries and decodes the body.
func (c *Client) getJSON(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return &domain.ConfigurationError{Component: "weather client", Reason: "API key rejected"}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weather API status %d: %s: %w", resp.StatusCode, body, domain.ErrProviderUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do executes the request through the circuit breaker, retrying on network
// errors, 429, and 5xx. Other statuses return immediately for the caller to
// classify.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var lastErr error

	maxAttempts := 1 + c.retry.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				r.Body.Close()
				return nil, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if req.Context().Err() != nil {
			break
		}
		if attempt < maxAttempts-1 {
			wait := c.backoff(attempt)
			c.logger.Debug("retrying weather request", "attempt", attempt+1, "wait", wait)
			c.sleepFn(wait)
		}
	}

	return nil, fmt.Errorf("weather request: %w", errors.Join(domain.ErrProviderUnavailable, lastErr))
}

// backoff computes exponential backoff with full jitter in [MinWait, cap].
func (c *Client) backoff(attempt int) time.Duration {
	base := float64(c.retry.MinWait) * math.Pow(2, float64(attempt))
	if maxWait := float64(c.retry.MaxWait); base > maxWait {
		base = maxWait
	}
	minWait := float64(c.retry.MinWait)
	if base <= minWait {
		return c.retry.MinWait
	}
	return time.Duration(minWait + rand.Float64()*(base-minWait))
}

// OpenWeather API response types.

type conditions struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt int64 `json:"dt"`
}

func (r conditions) toObservation(location string) domain.WeatherObservation {
	return domain.WeatherObservation{
		Location:     location,
		TemperatureC: r.Main.Temp,
		HumidityPct:  r.Main.Humidity,
		PressureHPa:  r.Main.Pressure,
		WindSpeed:    r.Wind.Speed,
		ObservedAt:   time.Unix(r.Dt, 0).UTC(),
	}
}

type forecastResponse struct {
	List []conditions `json:"list"`
}
