package providers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/econodata/noticias-harvester/internal/domain"
)

// Kind selects the listing strategy of a provider.
type Kind string

const (
	KindRSS         Kind = "rss"
	KindHTML        Kind = "html"
	KindHTMLLinks   Kind = "html-links"
	KindNewsSitemap Kind = "news-sitemap"
)

// ContentKind is the declared type of a listing document.
type ContentKind string

const (
	ContentXML  ContentKind = "xml"
	ContentHTML ContentKind = "html"
)

const defaultTimezone = "America/Sao_Paulo"

var (
	// ErrFieldMissing marks a listing entry or detail page lacking a required field.
	ErrFieldMissing = errors.New("required field missing")
	// ErrDateFormat marks a date string that matches none of the expected layouts.
	ErrDateFormat = errors.New("unrecognized date format")
	// ErrUnknownZone marks a date whose zone abbreviation has no known
	// offset. It wraps ErrDateFormat.
	ErrUnknownZone = fmt.Errorf("unknown zone abbreviation: %w", ErrDateFormat)
	// ErrNotArticle marks a detail page without an article heading.
	ErrNotArticle = errors.New("not an article page")
)

// Provider is the static descriptor of one news source as declared in config.
type Provider struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Kind           Kind              `json:"kind" yaml:"kind"`
	SourceURL      string            `json:"source_url" yaml:"source_url"`
	Enabled        *bool             `json:"enabled" yaml:"enabled"`
	Timezone       string            `json:"timezone" yaml:"timezone"`
	DedupKey       string            `json:"dedup_key" yaml:"dedup_key"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	RequestDelayMS int               `json:"request_delay_ms" yaml:"request_delay_ms"`

	// rss
	LinkFromDescription string `json:"link_from_description" yaml:"link_from_description"`

	// html, html-links
	LinkPattern    string           `json:"link_pattern" yaml:"link_pattern"`
	ExcludePattern string           `json:"exclude_pattern" yaml:"exclude_pattern"`
	Listing        *HTMLSelectors   `json:"listing" yaml:"listing"`
	Detail         *DetailSelectors `json:"detail" yaml:"detail"`

	// html, html-links, rss fallbacks
	DateLayouts []string `json:"date_layouts" yaml:"date_layouts"`
}

// HTMLSelectors describes where inline metadata lives on an HTML listing page.
type HTMLSelectors struct {
	Item     string `json:"item" yaml:"item"`
	Title    string `json:"title" yaml:"title"`
	Link     string `json:"link" yaml:"link"`
	Image    string `json:"image" yaml:"image"`
	Date     string `json:"date" yaml:"date"`
	DateAttr string `json:"date_attr" yaml:"date_attr"`
}

// DetailSelectors describes where metadata lives on an article page.
type DetailSelectors struct {
	Title     string `json:"title" yaml:"title"`
	Image     string `json:"image" yaml:"image"`
	Date      string `json:"date" yaml:"date"`
	DateAttr  string `json:"date_attr" yaml:"date_attr"`
	DateRegex string `json:"date_regex" yaml:"date_regex"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (cfg Provider) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// ContentKind returns the document type expected from SourceURL.
func (cfg Provider) ContentKind() ContentKind {
	switch cfg.Kind {
	case KindRSS, KindNewsSitemap:
		return ContentXML
	default:
		return ContentHTML
	}
}

// RequestDelay is the minimum spacing between detail requests of this provider.
func (cfg Provider) RequestDelay() time.Duration {
	if cfg.RequestDelayMS <= 0 {
		return 0
	}
	return time.Duration(cfg.RequestDelayMS) * time.Millisecond
}

// Dedup returns the configured identity field.
func (cfg Provider) Dedup() domain.DedupKey {
	return domain.ParseDedupKey(cfg.DedupKey)
}

// Location returns the provider timezone, falling back to a fixed -03:00 zone
// when the tz database is unavailable.
func (cfg Provider) Location() *time.Location {
	name := strings.TrimSpace(cfg.Timezone)
	if name == "" {
		name = defaultTimezone
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}

// Headers returns the request headers declared for the provider.
func Headers(cfg Provider) map[string]string {
	accept := "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"
	if cfg.ContentKind() == ContentXML {
		accept = "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5"
	}

	headers := map[string]string{
		"Accept":          accept,
		"Accept-Language": "pt-BR,pt;q=0.9,en;q=0.5",
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	return headers
}

// Candidate is one listing entry: either a complete article or a detail page
// URL still to be resolved.
type Candidate struct {
	Article   domain.Article
	DetailURL string
}

// NeedsDetail reports whether the candidate is a bare link.
func (c Candidate) NeedsDetail() bool {
	return c.DetailURL != ""
}

// ParseResult holds the usable candidates of a listing and the reasons other
// entries were dropped.
type ParseResult struct {
	Candidates []Candidate
	Skipped    []error
}

func (r *ParseResult) add(c Candidate) { r.Candidates = append(r.Candidates, c) }
func (r *ParseResult) skip(err error)  { r.Skipped = append(r.Skipped, err) }

// ListingParser extracts candidates from a listing document. Malformed entries
// are skipped; an error means the document as a whole could not be read.
type ListingParser interface {
	ParseListing(doc []byte) (ParseResult, error)
}

// DetailParser extracts an article from a detail page. It returns ErrNotArticle
// when the page has no article heading.
type DetailParser interface {
	ParseDetail(pageURL string, doc []byte) (domain.Article, error)
}

// Source is a provider bound to its compiled parse strategy.
type Source struct {
	Provider
	Listing ListingParser
	Detail  DetailParser // set only when the listing carries links without metadata
}

// NeedsDetailFetch reports whether listing entries must be resolved page by page.
func (s Source) NeedsDetailFetch() bool {
	return s.Detail != nil
}
