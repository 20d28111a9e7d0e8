package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// httpPublisher posts events as JSON to a webhook.
type httpPublisher struct {
	id      string
	typ     string
	url     string
	method  string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	c := cfg.HTTP
	return &httpPublisher{
		id:      cfg.ID,
		typ:     cfg.Type,
		url:     c.URL,
		method:  c.Method,
		headers: c.Headers,
		client:  resty.New().SetTimeout(time.Duration(c.TimeoutSeconds) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return p.typ }

// Publish sends the event and treats any non-2xx answer as a failure.
func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(p.headers).
		SetBody(evt).
		Execute(p.method, p.url)
	if err != nil {
		return fmt.Errorf("http publisher %s: %w", p.id, err)
	}
	if !resp.IsSuccess() {
		snippet := strings.TrimSpace(resp.String())
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return fmt.Errorf("http publisher %s: status %d: %s", p.id, resp.StatusCode(), snippet)
	}

	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": p.id,
		"event_id":     evt.ID,
		"status":       resp.StatusCode(),
	})
	return nil
}
