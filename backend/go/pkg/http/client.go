package http

import (
	"fmt"
	"net/http"
	"time"

	"PrepBot/backend/go/internal/config"
	"PrepBot/backend/go/pkg/circuitbreaker"
	"PrepBot/backend/go/pkg/logger"
)

// Client is a custom HTTP client that wraps the standard http.Client
// and provides built-in support for circuit breaking.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithUserAgent sets the User-Agent header on requests that do not carry one.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new Client. The circuit breaker is only attached when
// cfg.Enabled is set.
func NewClient(cfg config.CircuitBreakerConfig, timeout time.Duration, log *logger.Logger, opts ...ClientOption) (*Client, error) {
	c := &Client{httpClient: &http.Client{Timeout: timeout}}
	if cfg.Enabled {
		breaker, err := NewCircuitBreaker(cfg, log)
		if err != nil {
			return nil, err
		}
		c.breaker = breaker
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do executes an HTTP request with circuit breaker protection.
// It considers status codes >= 500 as failures. The response is still
// returned to the caller in that case so it can report the status.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	err := c.breaker.Execute(func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil && resp == nil {
		return nil, err
	}
	return resp, nil
}
