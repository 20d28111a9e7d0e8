package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders. Types are case-insensitive.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry returns a registry holding builders.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry knows the http and queue publisher types.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:  newHTTPPublisher,
		TypeQueue: newQueuePublisher,
	})
}

// Register replaces the builder for typ. Empty types and nil builders are ignored.
func (r *Registry) Register(typ string, builder Builder) {
	if typ = strings.ToLower(strings.TrimSpace(typ)); typ != "" && builder != nil {
		r.builders[typ] = builder
	}
}

// Build creates the publisher described by cfg.
func (r *Registry) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", cfg.ID)
	}
	builder, ok := r.builders[typ]
	if !ok {
		return nil, fmt.Errorf("publisher %q: type %q is not registered", cfg.ID, cfg.Type)
	}
	return builder(ctx, cfg, log)
}

// BuildAll instantiates one publisher per config. On failure the publishers
// already built are closed and nothing is returned.
func BuildAll(ctx context.Context, reg *Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}
	log = ensureLogger(log)

	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := reg.Build(ctx, cfg, log)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("build publisher %q: %w", cfg.ID, err), closeAll(pubs))
		}
		log.InfoObj("publisher ready", "publisher_ready", map[string]any{
			"publisher_id": pub.ID(),
			"type":         pub.Type(),
		})
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

func closeAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close publisher %q: %w", p.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
