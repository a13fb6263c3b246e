// Package httpclient is the single concrete HTTP client used for every
// outbound call the runtime makes: provider calls, mesh dispatch, and the
// http_request tool. One client, one timeout policy, per spec.md §5.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Total request timeout and dial/connect timeout spec.md §5 names.
const (
	DefaultTotalTimeout   = 120 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// New builds the default *http.Client: a 10s dial timeout and a 120s total
// request timeout, with idle-connection reuse for repeated calls to the
// same provider or mesh node.
func New() *http.Client {
	dialer := &net.Dialer{Timeout: DefaultConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout:   DefaultTotalTimeout,
		Transport: transport,
	}
}

// WithTimeout returns a client identical to New() but with total timeout
// overridden, for callers that need a different ceiling than the provider
// default.
func WithTimeout(d time.Duration) *http.Client {
	c := New()
	c.Timeout = d
	return c
}

// Get is a convenience wrapper building a context-bound GET request.
func Get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}
