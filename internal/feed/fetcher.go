package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jacklau/oppradar/internal/retry"
)

const (
	defaultBaseURL     = "https://www.reddit.com"
	defaultUserAgent   = "market-validator/1.0"
	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 4
	defaultBaseDelay   = 500 * time.Millisecond
	acceptHeader       = "application/rss+xml, application/xml;q=0.9, */*;q=0.8"

	// maxFeedBytes bounds the response body read into memory.
	maxFeedBytes = 10 << 20
)

// ErrNoSources is returned when the source list is empty after trimming.
var ErrNoSources = errors.New("at least one source is required")

// FetchError is returned when the feed could not be retrieved within the
// retry budget. Err is the cause of the last attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching feed %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx feed response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed returned %s", e.Status)
}

// Fetcher retrieves the combined feed for a list of sources.
type Fetcher struct {
	client      *http.Client
	baseURL     string
	userAgent   string
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithBaseURL sets the feed host, e.g. https://www.reddit.com.
func WithBaseURL(u string) Option {
	return func(f *Fetcher) { f.baseURL = strings.TrimRight(u, "/") }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithRetry sets the attempt budget and the initial backoff delay. A budget
// below one keeps the default.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.maxAttempts = maxAttempts
		f.baseDelay = baseDelay
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher with defaults overridden by opts.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		baseURL:     defaultBaseURL,
		userAgent:   defaultUserAgent,
		timeout:     defaultTimeout,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.maxAttempts < 1 {
		f.maxAttempts = defaultMaxAttempts
	}
	return f
}

// FeedURL builds the combined "new posts" feed URL for the given sources.
func (f *Fetcher) FeedURL(sources []string) (string, error) {
	cleaned := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if s != "" {
			cleaned = append(cleaned, url.PathEscape(s))
		}
	}
	if len(cleaned) == 0 {
		return "", ErrNoSources
	}
	return fmt.Sprintf("%s/r/%s/new/.rss", f.baseURL, strings.Join(cleaned, "+")), nil
}

// Fetch retrieves and parses the combined feed, retrying with exponential
// backoff on network errors, timeouts, non-2xx responses and unparseable bodies.
func (f *Fetcher) Fetch(ctx context.Context, sources []string) (*Feed, error) {
	feedURL, err := f.FeedURL(sources)
	if err != nil {
		return nil, err
	}

	var parsed *Feed
	policy := retry.Policy{
		MaxAttempts: f.maxAttempts,
		BaseDelay:   f.baseDelay,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			f.logger.Warn("feed fetch failed, retrying",
				"url", feedURL, "attempt", attempt, "delay", delay, "error", err)
		},
	}

	err = retry.DoWithPolicy(ctx, policy, func() error {
		p, err := f.fetchOnce(ctx, feedURL)
		if err != nil {
			return err
		}
		parsed = p
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &FetchError{URL: feedURL, Attempts: f.maxAttempts, Err: err}
	}
	return parsed, nil
}

// FetchPosts fetches the feed and normalizes its items into posts.
func (f *Fetcher) FetchPosts(ctx context.Context, sources []string) ([]Post, error) {
	parsed, err := f.Fetch(ctx, sources)
	if err != nil {
		return nil, err
	}
	return Normalize(parsed), nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, feedURL string) (*Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return Parse(body)
}
