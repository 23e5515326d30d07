package fetch

import (
	"net/http"
	"time"
)

// Option configures an HTTPFetcher.
type Option interface {
	apply(*HTTPFetcher)
}

type optionFunc func(*HTTPFetcher)

func (f optionFunc) apply(h *HTTPFetcher) { f(h) }

// WithClient uses c instead of a client built from the timeout.
func WithClient(c *http.Client) Option {
	return optionFunc(func(h *HTTPFetcher) {
		h.client = c
	})
}

// WithTimeout sets the client timeout. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(h *HTTPFetcher) {
		if d > 0 {
			h.timeout = d
		}
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(h *HTTPFetcher) {
		if ua != "" {
			h.userAgent = ua
		}
	})
}

// WithMaxBytes limits the response body size.
func WithMaxBytes(n int64) Option {
	return optionFunc(func(h *HTTPFetcher) {
		if n > 0 {
			h.maxBytes = n
		}
	})
}

// WithQuery adds a query parameter, e.g. page or record ID.
func WithQuery(key, value string) Option {
	return optionFunc(func(h *HTTPFetcher) {
		h.query.Add(key, value)
	})
}

// WithHeader adds a request header.
func WithHeader(key, value string) Option {
	return optionFunc(func(h *HTTPFetcher) {
		h.header.Add(key, value)
	})
}
