// Package httpclient provides the HTTP client shared by listing and detail fetches.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the minimal GET surface used by providers, the crawler and publishers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error)
}

// DefaultUserAgents is the rotation pool used when none is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.2478.67",
}

const defaultMaxConnsPerHost = 10

// Option customizes the resty client.
type Option func(*options)

type options struct {
	userAgents      []string
	maxConnsPerHost int
	retryWait       time.Duration
}

// WithUserAgents sets the user-agent pool rotated across requests.
func WithUserAgents(agents ...string) Option {
	return func(o *options) {
		clean := make([]string, 0, len(agents))
		for _, a := range agents {
			if a = strings.TrimSpace(a); a != "" {
				clean = append(clean, a)
			}
		}
		if len(clean) > 0 {
			o.userAgents = clean
		}
	}
}

// WithMaxConnsPerHost bounds simultaneous connections to any single host.
func WithMaxConnsPerHost(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConnsPerHost = n
		}
	}
}

// WithRetryWait sets the pause before the single retry of a failed request.
func WithRetryWait(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryWait = d
		}
	}
}

// RestyClient implements Client with resty, rotating user agents and
// retrying once on transport failures.
type RestyClient struct {
	client *resty.Client
	agents []string
	next   atomic.Uint64
}

// NewRestyClient builds a client with the given request timeout.
func NewRestyClient(timeout time.Duration, opts ...Option) *RestyClient {
	o := options{
		userAgents:      DefaultUserAgents,
		maxConnsPerHost: defaultMaxConnsPerHost,
		retryWait:       500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     o.maxConnsPerHost,
		MaxIdleConnsPerHost: o.maxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	rc := resty.New().
		SetTransport(transport).
		SetTimeout(timeout).
		SetRetryCount(1).
		SetRetryWaitTime(o.retryWait).
		SetRetryMaxWaitTime(o.retryWait).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return err != nil
		})

	return &RestyClient{client: rc, agents: o.userAgents}
}

// Get performs a GET request. A User-Agent header is added unless headers carries one.
func (c *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	req := c.client.R().SetContext(ctx)
	if !hasHeader(headers, "User-Agent") {
		req.SetHeader("User-Agent", c.userAgent())
	}
	req.SetHeaders(headers)
	return req.Get(url)
}

// Resty exposes the underlying client for callers needing other verbs.
func (c *RestyClient) Resty() *resty.Client {
	return c.client
}

func (c *RestyClient) userAgent() string {
	n := c.next.Add(1) - 1
	return c.agents[n%uint64(len(c.agents))]
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
