package providers

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}

// stripFragment drops "#..." so anchors to the same page share one identity.
func stripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// imageSource reads the image URL of an <img>-like node, preferring lazy-load attributes.
func imageSource(node *goquery.Selection) string {
	if node == nil || node.Length() == 0 {
		return ""
	}
	if goquery.NodeName(node) != "img" {
		if img := node.Find("img").First(); img.Length() > 0 {
			node = img
		}
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := node.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	if v, ok := node.Attr("srcset"); ok {
		first, _, _ := strings.Cut(strings.TrimSpace(v), " ")
		return strings.TrimSpace(first)
	}
	return ""
}

// metaContent returns the content attribute of the first node matching sel.
func metaContent(doc *goquery.Document, sel string) string {
	if node := doc.Find(sel).First(); node.Length() > 0 {
		if val, ok := node.Attr("content"); ok {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// compileOptional compiles pattern, returning nil for an empty pattern.
func compileOptional(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}
