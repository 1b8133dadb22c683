package zenodo

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Archive hosts. The sandbox host is a fully separate service with its own
// accounts and tokens.
const (
	ProductionBaseURL = "https://zenodo.org"
	SandboxBaseURL    = "https://sandbox.zenodo.org"
)

// Default retry policy: transport failures and 5xx responses are retried up
// to DefaultMaxAttempts with a fixed DefaultRetryDelay between attempts.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
	DefaultHTTPTimeout = 30 * time.Second
)

// clientOptions holds configuration options for the archive client.
type clientOptions struct {
	baseURL      string
	tokenInQuery bool
	httpClient   *http.Client
	logger       *slog.Logger
	maxAttempts  int
	retryDelay   time.Duration
	sleep        func(context.Context, time.Duration)
}

// Option is a functional option for configuring the Client.
type Option func(*clientOptions)

// WithSandbox targets the sandbox host instead of production.
func WithSandbox() Option {
	return func(opts *clientOptions) {
		opts.baseURL = SandboxBaseURL
	}
}

// WithBaseURL overrides the archive host entirely. Intended for tests
// against a local fake.
func WithBaseURL(baseURL string) Option {
	return func(opts *clientOptions) {
		opts.baseURL = baseURL
	}
}

// WithTokenInQuery authenticates via the access_token query parameter
// instead of the Authorization header. Some archive environments only
// accept the query form.
func WithTokenInQuery() Option {
	return func(opts *clientOptions) {
		opts.tokenInQuery = true
	}
}

// WithHTTPClient configures a custom HTTP client. If nil, a default client
// with a 30 second timeout is used.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *clientOptions) {
		opts.httpClient = httpClient
	}
}

// WithLogger configures the client with a custom logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

// WithRetryPolicy overrides the attempt bound and inter-attempt delay.
// Attempts below one are treated as one (no retries).
func WithRetryPolicy(maxAttempts int, delay time.Duration) Option {
	return func(opts *clientOptions) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		opts.maxAttempts = maxAttempts
		opts.retryDelay = delay
	}
}

// withSleep replaces the inter-attempt sleep. Used by tests to avoid real
// delays.
func withSleep(sleep func(context.Context, time.Duration)) Option {
	return func(opts *clientOptions) {
		opts.sleep = sleep
	}
}

// defaultOptions returns the default configuration options.
func defaultOptions() *clientOptions {
	return &clientOptions{
		baseURL:     ProductionBaseURL,
		httpClient:  &http.Client{Timeout: DefaultHTTPTimeout},
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		sleep:       sleepContext,
	}
}
