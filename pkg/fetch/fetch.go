package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jdziat/simple-refresh/pkg/refreshctx"
	"github.com/jdziat/simple-refresh/pkg/security"
)

const (
	// DefaultTimeout is applied when no timeout is configured.
	DefaultTimeout = 10 * time.Second

	// UserAgent is sent with every request unless overridden.
	UserAgent = "simple-refresh/1.0"

	// Headers set when the request is made on behalf of a refresh attempt.
	HeaderAttemptID = "X-Refresh-Attempt"
	HeaderKind      = "X-Refresh-Kind"
)

// ErrInvalidJSON is returned when a 2xx response body is not valid JSON.
var ErrInvalidJSON = errors.New("fetch: response is not valid JSON")

// ErrResponseTooLarge is returned when the body exceeds the size limit.
var ErrResponseTooLarge = errors.New("fetch: response exceeds size limit")

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	URL        string
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Temporary reports whether a retry on the next tick may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPFetcher GETs a JSON resource. It implements core.Fetcher.
type HTTPFetcher struct {
	url       string
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxBytes  int64
	query     url.Values
	header    http.Header
}

// New creates an HTTPFetcher for rawURL.
func New(rawURL string, opts ...Option) (*HTTPFetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}

	f := &HTTPFetcher{
		url:       rawURL,
		timeout:   DefaultTimeout,
		userAgent: UserAgent,
		maxBytes:  security.MaxPayloadSize,
		query:     url.Values{},
		header:    http.Header{},
	}
	for _, opt := range opts {
		opt.apply(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f, nil
}

// URL returns the request URL including configured query parameters.
func (f *HTTPFetcher) URL() string {
	if len(f.query) == 0 {
		return f.url
	}
	u, _ := url.Parse(f.url)
	q := u.Query()
	for k, vs := range f.query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch performs the GET and returns the raw JSON body.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	target := f.URL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range f.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")
	if a, ok := refreshctx.AttemptFromContext(ctx); ok {
		req.Header.Set(HeaderAttemptID, a.AttemptID)
		req.Header.Set(HeaderKind, string(a.Kind))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: target, Status: resp.Status}
	}

	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1)) // +1 to detect overflow
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, f.maxBytes)
	}

	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}
	return body, nil
}
