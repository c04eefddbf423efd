package align

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultFetchTimeout is the default HTTP request timeout for dataset fetches.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// defaultBaseBackoff is the base delay for exponential backoff.
	defaultBaseBackoff = 500 * time.Millisecond

	// maxResponseBytes limits a dataset download to 50 MB.
	maxResponseBytes = 50 << 20
)

// FetchOption configures FetchDataset behavior.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

func defaultFetchConfig() fetchConfig {
	return fetchConfig{
		timeout:     DefaultFetchTimeout,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.timeout = d
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) FetchOption {
	return func(c *fetchConfig) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the base delay for exponential backoff between retries.
func WithBaseBackoff(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.baseBackoff = d
	}
}

// WithHTTPClient overrides the default HTTP client (useful for testing).
func WithHTTPClient(client *http.Client) FetchOption {
	return func(c *fetchConfig) {
		c.client = client
	}
}

// StatusError is returned for a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP GET %s: status %d", e.URL, e.Code)
}

// Temporary reports whether retrying the request may succeed. Client errors
// other than request timeout and rate limiting are final.
func (e *StatusError) Temporary() bool {
	if e.Code >= 500 {
		return true
	}
	return e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// errResponseTooLarge is returned when a body exceeds maxResponseBytes.
var errResponseTooLarge = fmt.Errorf("response exceeds %d bytes", maxResponseBytes)

// FetchDataset downloads a dataset from url and decodes it with DecodeDataset.
// Network failures, 5xx, 408 and 429 responses are retried with exponential
// backoff. Other 4xx responses, oversized bodies and decode errors are not.
func FetchDataset(ctx context.Context, url string, opts ...FetchOption) (mat.Matrix, error) {
	if url == "" {
		return nil, fmt.Errorf("fetch dataset: URL is empty")
	}

	cfg := defaultFetchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	var lastErr error
	for attempt := range cfg.maxRetries {
		if attempt > 0 {
			if err := sleepContext(ctx, cfg.baseBackoff<<(attempt-1)); err != nil {
				return nil, fmt.Errorf("fetch dataset: %w", err)
			}
		}

		body, err := fetchBody(ctx, client, url)
		if err != nil {
			if !retryable(err) {
				return nil, fmt.Errorf("fetch dataset: %w", err)
			}
			lastErr = err
			continue
		}

		m, err := DecodeDataset(body)
		if err != nil {
			return nil, fmt.Errorf("fetch dataset: %w", err)
		}
		return m, nil
	}

	return nil, fmt.Errorf("fetch dataset: all %d attempts failed: %w", cfg.maxRetries, lastErr)
}

func retryable(err error) bool {
	if errors.Is(err, errResponseTooLarge) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fetchBody performs a single GET and returns the response body.
func fetchBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/geo+json, application/yaml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("reading response from %s: %w", url, errResponseTooLarge)
	}
	return body, nil
}
