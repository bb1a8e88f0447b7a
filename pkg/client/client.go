// Package client provides the HTTP client for the BeeKeeper blog REST API
// with rate limiting, response caching, and error handling.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/beekeeper-client/pkg/cache"
	"github.com/Sternrassler/beekeeper-client/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for blog API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_requests_total",
		Help: "Total blog API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_request_duration_seconds",
		Help:    "Blog API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_errors_total",
		Help: "Total blog API errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blog_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blog_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RequestIDHeader carries a per-request UUID for correlation with backend logs.
const RequestIDHeader = "X-Request-ID"

// Client is the blog API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	limiter     *rate.Limiter
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	retry       retryPolicy
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the backend, e.g. "https://blog.example.com"
	BaseURL string

	// Redis client for response caching and shared rate limit state.
	// Optional: without it nothing is cached and limit state stays in memory.
	Redis *redis.Client

	// User-Agent header sent with every request
	UserAgent string

	// AuthToken is sent as a bearer token when set
	AuthToken string

	// UserID scopes cached responses of authenticated requests
	UserID int64

	// RateLimit is the client-side request rate per second (0 disables)
	RateLimit int

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// MaxRetries is the maximum number of attempts per request, including
	// the first. 0 keeps the per-class defaults.
	MaxRetries int

	// InitialBackoff overrides the per-class initial backoff when > 0
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:    baseURL,
		UserAgent:  userAgent,
		RateLimit:  10,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// New creates a new blog API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %d)", cfg.RateLimit)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "blog-client").Logger()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     base,
		limiter:     limiter,
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		config:      cfg,
		logger:      logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}
	c.retry = c.retryConfigFor

	return c, nil
}

// retryConfigFor applies the configured overrides to the per-class defaults.
func (c *Client) retryConfigFor(class ErrorClass) RetryConfig {
	rc := RetryConfigForErrorClass(class)
	if c.config.MaxRetries > 0 {
		rc.MaxAttempts = c.config.MaxRetries
	}
	if c.config.InitialBackoff > 0 {
		rc.InitialBackoff = c.config.InitialBackoff
	}
	return rc
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
//
// Only GET responses are cached. A fresh cached entry with a validator is
// revalidated with a conditional request and served again on 304; one
// without validators is served directly. Responses with status >= 400 that
// are not retried (4xx other than 429) are returned to the caller as is.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: client-side rate
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	// Step 2: shared backend budget
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, ErrRateLimited
	}

	// Step 3: cache lookup
	cacheable := c.cache != nil && req.Method == http.MethodGet
	cacheKey := cache.Key{
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		UserID: c.config.UserID,
	}

	var cachedEntry *cache.Entry
	if cacheable {
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	if cachedEntry != nil {
		if !cache.ShouldRevalidate(cachedEntry) {
			c.logger.Debug().Str("endpoint", endpoint).Msg("Serving fresh cache entry")
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			return cache.EntryToResponse(cachedEntry, req), nil
		}
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: standard headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(RequestIDHeader, requestID)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("request_id", requestID).
		Msg("Executing blog API request")

	// Step 5: execute with retry
	var resp *http.Response
	retryErr := retryWithPolicy(ctx, func() error {
		attemptReq, err := cloneForAttempt(ctx, req)
		if err != nil {
			return err
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(attemptReq)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			resp = nil
			return reqErr
		}

		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		status := strconv.Itoa(resp.StatusCode)
		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		errClass := classifyStatus(resp.StatusCode)
		if errClass == "" {
			requestsTotal.WithLabelValues(endpoint, status).Inc()
			return nil
		}

		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, status).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Str("request_id", requestID).
			Msg("Blog API request error")

		if !shouldRetry(errClass) {
			return nil
		}

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
		drainAndClose(resp.Body)
		resp = nil
		return apiErr
	}, classifyAttemptError, c.retry)

	if retryErr != nil {
		if resp != nil {
			drainAndClose(resp.Body)
		}
		return nil, retryErr
	}

	// Step 6: 304 served from cache
	if resp.StatusCode == http.StatusNotModified {
		drainAndClose(resp.Body)
		if cachedEntry == nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassServer,
				Message:    "304 Not Modified without a cached entry",
			}
		}

		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		requestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		newExpires := cache.ExpiresFromHeaders(resp.Header)
		if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}

		return cache.EntryToResponse(cachedEntry, req), nil
	}

	// Step 7: store 200 responses
	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// classifyAttemptError maps an attempt error to its retry class.
func classifyAttemptError(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	if errors.Is(err, context.Canceled) {
		return ""
	}
	return ErrorClassNetwork
}

// cloneForAttempt returns a request that can be sent once. Bodies are
// rewound through GetBody so POSTs survive retries.
func cloneForAttempt(ctx context.Context, req *http.Request) (*http.Request, error) {
	r := req.Clone(ctx)
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		r.Body = body
	}
	return r, nil
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}

// endpointLabel replaces numeric path segments so metric labels stay bounded:
// /api/articles/42/like becomes /api/articles/:id/like.
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// newRequest builds a request for path (relative to the base URL) with query.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// Get performs a GET request to a blog API path.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// getJSON performs a GET and decodes a 2xx JSON body into out. Other
// statuses are returned as *APIError.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// sendJSON performs a body-less mutating request and decodes the answer.
func (c *Client) sendJSON(ctx context.Context, method, path string, out any) error {
	req, err := c.newRequest(ctx, method, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := resp.Status
		if body, err := io.ReadAll(io.LimitReader(resp.Body, 512)); err == nil && len(body) > 0 {
			msg = strings.TrimSpace(string(body))
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    msg,
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// LikeArticle likes (POST) or unlikes (DELETE) an article and returns the
// backend's resulting state. Cached article lists are invalidated.
func (c *Client) LikeArticle(ctx context.Context, articleID int64, liked bool) (LikeStatus, error) {
	method := http.MethodDelete
	if liked {
		method = http.MethodPost
	}

	var status LikeStatus
	path := fmt.Sprintf("/api/articles/%d/like", articleID)
	if err := c.sendJSON(ctx, method, path, &status); err != nil {
		return LikeStatus{}, fmt.Errorf("like article %d: %w", articleID, err)
	}

	if c.cache != nil {
		if n, err := c.cache.InvalidatePath(ctx, "/api/articles"); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to invalidate article cache")
		} else {
			c.logger.Debug().Int("removed", n).Int64("article_id", articleID).Msg("Invalidated article cache")
		}
	}

	return status, nil
}

// SiteSettings fetches the site-wide settings.
func (c *Client) SiteSettings(ctx context.Context) (SiteSettings, error) {
	var s SiteSettings
	if err := c.getJSON(ctx, "/api/settings", nil, &s); err != nil {
		return SiteSettings{}, fmt.Errorf("site settings: %w", err)
	}
	return s, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// RateLimiter returns the shared backend rate limit tracker.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
