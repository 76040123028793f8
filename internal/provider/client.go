// Package provider implements the market data clients used by the scanner:
// Schwab for option chains and price history, Finnhub for the earnings
// calendar.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	apperrors "options-scanner/internal/errors"
	"options-scanner/pkg/utils"
)

// ClientConfig holds the transport settings shared by every provider.
type ClientConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
}

func (c ClientConfig) withDefaults(baseURL string) ClientConfig {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

// httpClient is a rate limited, circuit broken JSON client with retries.
type httpClient struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

func newHTTPClient(name string, cfg ClientConfig, logger zerolog.Logger) *httpClient {
	logger = logger.With().Str("provider", name).Logger()

	c := &httpClient{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond*2),
		logger:  logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			// Client errors say nothing about provider health.
			return err == nil || !isTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	c.retry = utils.RetryConfig{
		MaxAttempts:   cfg.MaxRetries,
		InitialDelay:  cfg.RetryDelay,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Retryable:     isTransient,
	}
	return c
}

// isTransient reports whether a request may succeed if repeated.
func isTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case apperrors.Is(err, context.Canceled), apperrors.Is(err, context.DeadlineExceeded):
		return false
	case apperrors.Is(err, gobreaker.ErrOpenState), apperrors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	case apperrors.Is(err, apperrors.ErrUnauthorized), apperrors.Is(err, apperrors.ErrNotFound):
		return false
	case apperrors.Is(err, apperrors.ErrBadRequest), apperrors.Is(err, apperrors.ErrConfigInvalid):
		return false
	}
	return true
}

// getRaw performs a GET and returns the response body of a 2xx response.
func (c *httpClient) getRaw(ctx context.Context, path string, query url.Values, header http.Header) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return utils.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		start := time.Now()
		body, err := c.breaker.Execute(func() (interface{}, error) {
			return c.do(ctx, endpoint, header)
		})
		c.logger.Debug().
			Str("path", path).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("API call")
		if err != nil {
			return nil, err
		}
		return body.([]byte), nil
	})
}

func (c *httpClient) do(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "OptionsScanner/1.0")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError(c.name, 0, "request failed", fmt.Errorf("%w: %v", apperrors.ErrConnectionFailed, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewProviderError(c.name, resp.StatusCode, "reading body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewProviderError(c.name, resp.StatusCode, snippet(body), statusError(resp.StatusCode))
	}
	return body, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, query url.Values, header http.Header, out interface{}) error {
	body, err := c.getRaw(ctx, path, query, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewProviderError(c.name, http.StatusOK, "decoding response", err)
	}
	return nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperrors.ErrUnauthorized
	case code == http.StatusNotFound:
		return apperrors.ErrNotFound
	case code == http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	case code >= 400 && code < 500:
		return apperrors.ErrBadRequest
	default:
		return apperrors.ErrConnectionFailed
	}
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
