// Package apiclient is the shared JSON transport used by the upstream service
// adapters (asset registry, market profile, blockchain nodes).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/settlepay/settlement_service/pkg/retry"
)

const defaultTimeout = 30 * time.Second

// Config represents client configuration
type Config struct {
	Name              string
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             retry.Policy
}

// Client is a rate limited, circuit broken JSON client
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	retrier        *retry.Retrier
	logger         *zap.Logger
}

// NewClient creates a new upstream API client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 20
	}
	if config.Retry.InitialInterval == 0 {
		config.Retry = retry.DefaultPolicy()
	}
	config.Retry.RetryableFunc = isRetryable

	cbSettings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			// client errors say nothing about upstream health
			var apiErr *APIError
			return err == nil || (errors.As(err, &apiErr) && apiErr.StatusCode < 500)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		rateLimiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		retrier:        retry.NewRetrier(config.Retry, logger),
		logger:         logger,
	}
}

// Get performs a GET and decodes the JSON body into response
func (c *Client) Get(ctx context.Context, endpoint string, response interface{}) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, response)
}

// Post performs a POST with a JSON body
func (c *Client) Post(ctx context.Context, endpoint string, body, response interface{}) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, response)
}

// Do sends a request through the rate limiter, the circuit breaker and the retrier
func (c *Client) Do(ctx context.Context, method, endpoint string, body, response interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	return c.retrier.Do(ctx, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, c.doOnce(ctx, method, endpoint, payload, response)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &UnavailableError{Service: c.config.Name, Err: err}
		}
		return err
	})
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, payload []byte, response interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(data)
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if response != nil && len(data) > 0 {
		if err := json.Unmarshal(data, response); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// isRetryable retries transport failures and 5xx, never 4xx
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	var unavailable *UnavailableError
	return !errors.As(err, &unavailable)
}
