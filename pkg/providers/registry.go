package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Builder compiles a provider descriptor into a Source.
type Builder func(cfg Provider) (Source, error)

var builders = map[Kind]Builder{
	KindRSS:         newRSSParser,
	KindHTML:        newHTMLParser,
	KindHTMLLinks:   newLinksParser,
	KindNewsSitemap: newSitemapParser,
}

// Registry is the read-only set of configured sources, in declaration order.
type Registry struct {
	sources []Source
	idx     map[string]int
}

// NewRegistry validates the descriptors and compiles their parse strategies.
// Disabled providers are validated but left out of the registry.
func NewRegistry(cfgs []Provider) (*Registry, error) {
	reg := &Registry{idx: make(map[string]int, len(cfgs))}
	seen := make(map[string]struct{}, len(cfgs))

	for i, raw := range cfgs {
		cfg := sanitizeProvider(raw)
		if err := validateProvider(cfg); err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate provider id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}

		src, err := builders[cfg.Kind](cfg)
		if err != nil {
			return nil, err
		}
		if !cfg.EnabledValue() {
			continue
		}
		reg.idx[cfg.ID] = len(reg.sources)
		reg.sources = append(reg.sources, src)
	}

	if len(reg.sources) == 0 {
		return nil, errors.New("no enabled providers configured")
	}
	return reg, nil
}

// ByID returns the source with the given id.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	i, ok := r.idx[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Source{}, false
	}
	return r.sources[i], true
}

// All returns every enabled source.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Select returns the sources whose ids are listed, or all of them when ids is empty.
func (r *Registry) Select(ids ...string) ([]Source, error) {
	if len(ids) == 0 {
		return r.All(), nil
	}
	out := make([]Source, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		src, ok := r.ByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", id)
		}
		out = append(out, src)
	}
	return out, nil
}

type providersFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// LoadFile reads provider descriptors from a YAML or JSON file. Environment
// variables in the file are expanded.
func LoadFile(path string) ([]Provider, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("providers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	expanded := []byte(os.ExpandEnv(string(raw)))

	var file providersFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(expanded, &file)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(expanded, &file)
	default:
		return nil, fmt.Errorf("providers file format %q not recognized (expected YAML or JSON)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode providers file: %w", err)
	}
	if len(file.Providers) == 0 {
		return nil, errors.New("providers file contains no providers entries")
	}
	return file.Providers, nil
}

// sanitizeProvider trims and normalizes descriptor fields.
func sanitizeProvider(cfg Provider) Provider {
	cfg.ID = strings.ToLower(strings.TrimSpace(cfg.ID))
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}
	cfg.Kind = Kind(strings.ToLower(strings.TrimSpace(string(cfg.Kind))))
	cfg.SourceURL = strings.TrimSpace(cfg.SourceURL)
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.DedupKey = string(cfg.Dedup())

	if len(cfg.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Headers))
		for k, v := range cfg.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		cfg.Headers = headers
	}
	return cfg
}

// validateProvider checks that required fields are present.
func validateProvider(cfg Provider) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	if cfg.SourceURL == "" {
		return fmt.Errorf("source_url is required for provider %q", cfg.ID)
	}
	if !strings.HasPrefix(cfg.SourceURL, "http://") && !strings.HasPrefix(cfg.SourceURL, "https://") {
		return fmt.Errorf("source_url %q of provider %q is not an http(s) URL", cfg.SourceURL, cfg.ID)
	}
	if _, ok := builders[cfg.Kind]; !ok {
		return fmt.Errorf("kind %q not supported for provider %q", cfg.Kind, cfg.ID)
	}
	if cfg.RequestDelayMS < 0 {
		return fmt.Errorf("request_delay_ms must not be negative for provider %q", cfg.ID)
	}
	return nil
}
