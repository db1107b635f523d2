package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"trawl/internal/config"
	"trawl/internal/logging"
	"trawl/internal/services"
)

// maxBodyBytes bounds a single response read.
const maxBodyBytes = 512 << 20

// Client performs rate-limited GET requests and keeps cookies between them.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(limiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "fetch")
		}
	}
}

// NewClient builds a Client from the http configuration section.
func NewClient(cfg *config.Config, opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	limit := rate.Inf
	if cfg.HTTP.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.HTTP.RequestsPerSecond)
	}
	burst := cfg.HTTP.Burst
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout(),
			Jar:     jar,
		},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: cfg.HTTP.UserAgent,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches rawURL and returns the body. Non-2xx statuses and transport
// failures come back as classified services errors.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, rawURL); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "fetch", "read body", rawURL, err)
	}
	c.logger.Debug("fetched url",
		logging.String("url", rawURL),
		logging.Int("status", resp.StatusCode),
		logging.Int64("body_bytes", int64(len(body))),
	)
	return body, nil
}

// Probe issues a HEAD request and reports whether the host answered at all.
// Any HTTP status counts as reachable.
func (c *Client) Probe(ctx context.Context, rawURL string) error {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "fetch", "rate limit", rawURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "fetch", "build request", rawURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "fetch", strings.ToLower(method), rawURL, err)
	}
	return resp, nil
}

func classifyStatus(status int, rawURL string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return services.Wrap(services.ErrNotFound, "fetch", "get", fmt.Sprintf("%s returned %d", rawURL, status), nil)
	case status == http.StatusTooManyRequests || status == http.StatusForbidden || status == http.StatusRequestTimeout || status >= 500:
		return services.Wrap(services.ErrTransient, "fetch", "get", fmt.Sprintf("%s returned %d", rawURL, status), nil)
	default:
		return services.Wrap(services.ErrStructural, "fetch", "get", fmt.Sprintf("%s returned %d", rawURL, status), nil)
	}
}

// ExpandTemplate substitutes the escaped id into a URL template.
func ExpandTemplate(template, id string) (string, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return "", services.Wrap(services.ErrConfiguration, "fetch", "expand url", "url template is not configured", nil)
	}
	return strings.ReplaceAll(template, "{id}", url.PathEscape(id)), nil
}

// probeTarget reduces a URL template to its scheme and host.
func probeTarget(template string) (string, error) {
	parsed, err := url.Parse(strings.ReplaceAll(template, "{id}", "x"))
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url template %q is not absolute", template)
	}
	return parsed.Scheme + "://" + parsed.Host + "/", nil
}
