package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"wattwise/internal/config"
	"wattwise/internal/metrics"
)

const (
	AcceptCSV  = "text/csv,application/octet-stream,*/*"
	AcceptHTML = "text/html,application/xhtml+xml,*/*"
	AcceptJSON = "application/json"
)

// ErrCircuitOpen is returned while the breaker refuses downloads after
// repeated failures.
var ErrCircuitOpen = errors.New("source: circuit open")

// StatusError is a non-2xx response that survived the retry budget.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status=%d body=%s", e.URL, e.Status, e.Body)
}

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Registry
	backoff    func(attempt int) time.Duration
}

func NewClient(cfg config.Config, m *metrics.Registry) *Client {
	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 3
	}
	st := gobreaker.Settings{
		Name:    "plans-source",
		Timeout: time.Duration(cfg.BreakerCooldownS) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.FetchTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.FetchRateLimitRPS),
		breaker:    gobreaker.NewCircuitBreaker(st),
		metrics:    m,
		backoff:    defaultBackoff,
	}
}

// FetchExport downloads the published plan export.
func (c *Client) FetchExport(ctx context.Context) ([]byte, error) {
	if err := c.cfg.Require("PLANS_EXPORT_URL", c.cfg.PlansExportURL); err != nil {
		return nil, err
	}
	return c.Get(ctx, c.cfg.PlansExportURL, AcceptCSV)
}

// Get downloads url through the rate limiter, retry loop and breaker.
func (c *Client) Get(ctx context.Context, url, accept string) ([]byte, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, url, accept)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, url)
	}
	if err != nil {
		c.metrics.ObserveFetchError()
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) fetch(ctx context.Context, url, accept string) ([]byte, error) {
	attempts := c.cfg.FetchMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", accept)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if err := c.wait(ctx, attempt, attempts); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &StatusError{URL: url, Status: resp.StatusCode, Body: snippet(body)}
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				log.Debug().Str("url", url).Int("status", resp.StatusCode).Int("attempt", attempt).Msg("retrying fetch")
				lastErr = statusErr
				if err := c.wait(ctx, attempt, attempts); err != nil {
					return nil, err
				}
				continue
			}
			return nil, statusErr
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("fetch %s failed", url)
	}
	return nil, lastErr
}

func (c *Client) wait(ctx context.Context, attempt, attempts int) error {
	if attempt >= attempts {
		return nil
	}
	timer := time.NewTimer(c.backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
