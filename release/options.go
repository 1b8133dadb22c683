package release

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds a single release API call or artifact download.
const DefaultHTTPTimeout = 30 * time.Second

// maxResponseBytes bounds how much of an API response body is read.
const maxResponseBytes = 1 << 20

// Client talks to the hosting platform's release API and downloads release
// artifacts.
type Client struct {
	options *clientOptions
}

// clientOptions holds configuration options for the release client.
type clientOptions struct {
	apiBaseURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*clientOptions)

// WithAPIBaseURL overrides the hosting platform endpoint. Intended for tests
// against a local fake.
func WithAPIBaseURL(baseURL string) Option {
	return func(opts *clientOptions) {
		opts.apiBaseURL = baseURL
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

// NewClient creates a release client with the provided options.
func NewClient(opts ...Option) *Client {
	options := &clientOptions{
		apiBaseURL: DefaultAPIBaseURL,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.httpClient == nil {
		options.httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{options: options}
}

// excerpt truncates a response body for inclusion in errors.
func excerpt(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
