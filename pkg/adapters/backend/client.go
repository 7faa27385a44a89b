// Package backend implements the marketplace HTTP client: vendor matching, event advice
// and the vendor category list.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// ErrMalformed is returned when a backend answers 2xx with a payload that cannot be decoded.
var ErrMalformed = errors.New("malformed backend response")

// StatusError reports a non-2xx answer.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Paths are the endpoint paths, relative to the base URL.
type Paths struct {
	VendorMatch string
	EventAdvice string
	Categories  string
}

// DefaultPaths returns the marketplace endpoint names.
func DefaultPaths() Paths {
	return Paths{
		VendorMatch: "vendor-match",
		EventAdvice: "event-advice",
		Categories:  "vendor-categories",
	}
}

// Client implements ports.Dispatcher and ports.CategoryFetcher over HTTP.
type Client struct {
	base   *url.URL
	paths  Paths
	http   *http.Client
	logger *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithPaths overrides the endpoint paths.
func WithPaths(p Paths) Option {
	return func(c *Client) {
		c.paths = p
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		base:   base,
		paths:  DefaultPaths(),
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Query sends the collected fields to the endpoint of their domain.
func (c *Client) Query(ctx context.Context, fields domain.Fields) (domain.Response, error) {
	switch f := fields.(type) {
	case domain.VendorFields:
		var resp vendorMatchResponse
		if err := c.do(ctx, http.MethodGet, c.paths.VendorMatch, vendorQuery(f, ""), nil, &resp); err != nil {
			return nil, err
		}
		if resp.Data == nil {
			return nil, fmt.Errorf("%w: missing data", ErrMalformed)
		}
		matches := domain.VendorMatches{Services: make([]domain.VendorService, 0, len(resp.Data.Services))}
		for _, s := range resp.Data.Services {
			matches.Services = append(matches.Services, s.toDomain())
		}
		return matches, nil

	case domain.EventFields:
		var resp eventAdviceResponse
		if err := c.do(ctx, http.MethodPost, c.paths.EventAdvice, nil, eventAdviceRequest{EventFields: f}, &resp); err != nil {
			return nil, err
		}
		return resp.toDomain(), nil
	}
	return nil, fmt.Errorf("%w: %T", domain.ErrUnknownDomain, fields)
}

// FollowUp sends free text with the collected fields and returns the backend's reply verbatim.
func (c *Client) FollowUp(ctx context.Context, fields domain.Fields, text string) (string, error) {
	var resp replyResponse
	var err error

	switch f := fields.(type) {
	case domain.VendorFields:
		err = c.do(ctx, http.MethodGet, c.paths.VendorMatch, vendorQuery(f, text), nil, &resp)
	case domain.EventFields:
		err = c.do(ctx, http.MethodPost, c.paths.EventAdvice, nil, eventAdviceRequest{Message: text, EventFields: f}, &resp)
	default:
		return "", fmt.Errorf("%w: %T", domain.ErrUnknownDomain, fields)
	}
	if err != nil {
		return "", err
	}
	if resp.Reply == nil {
		return "", fmt.Errorf("%w: missing reply", ErrMalformed)
	}
	return *resp.Reply, nil
}

// Categories returns the vendor category labels.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var list []string
	if err := c.do(ctx, http.MethodGet, c.paths.Categories, nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func vendorQuery(f domain.VendorFields, message string) url.Values {
	q := url.Values{}
	if message != "" {
		q.Set("message", message)
	}
	q.Set("serviceName", f.ServiceType)
	q.Set("budget", strconv.Itoa(f.Budget))
	q.Set("location", f.Location)
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%s %s: failed to read body: %w", method, target.Path, err)
	}
	c.logger.Debug("backend call",
		"method", method,
		"path", target.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			URL:        target.Path,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(data)), 200),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
