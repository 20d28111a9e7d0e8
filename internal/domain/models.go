package domain

import (
	"strings"
	"time"
)

// Domain contains core models shared by the crawler, the stores and the dashboard.

// Article is one distinct news item of a source. PublishedAt is always UTC.
type Article struct {
	SourceID    string    `json:"source_id" bson:"source_id" db:"source_id"`
	Title       string    `json:"title" bson:"title" db:"title"`
	URL         string    `json:"url" bson:"url" db:"url"`
	ImageURL    string    `json:"image_url,omitempty" bson:"image_url,omitempty" db:"image_url"`
	PublishedAt time.Time `json:"published_at" bson:"published_at" db:"published_at"`
}

// DedupKey selects the article field used as identity within a source.
type DedupKey string

const (
	DedupByURL   DedupKey = "url"
	DedupByTitle DedupKey = "title"
)

// WatermarkSentinel is the boundary used for sources with no stored articles.
var WatermarkSentinel = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// Key returns the value of the article field selected by k.
func (a Article) Key(k DedupKey) string {
	if k == DedupByTitle {
		return strings.TrimSpace(a.Title)
	}
	return strings.TrimSpace(a.URL)
}

// Valid reports whether every required field is present.
func (a Article) Valid() bool {
	return strings.TrimSpace(a.SourceID) != "" &&
		strings.TrimSpace(a.Title) != "" &&
		strings.TrimSpace(a.URL) != "" &&
		!a.PublishedAt.IsZero()
}

// ParseDedupKey normalizes a configured key, defaulting to DedupByURL.
func ParseDedupKey(raw string) DedupKey {
	if DedupKey(strings.ToLower(strings.TrimSpace(raw))) == DedupByTitle {
		return DedupByTitle
	}
	return DedupByURL
}
