package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/econodata/noticias-harvester/pkg/httpclient"
	"github.com/econodata/noticias-harvester/pkg/providers"
)

const (
	maxListingBytes  = 8 << 20 // 8 MiB
	maxSnippetLength = 1024
	sniffBytes       = 512
)

// Listing is the raw listing document of one source. Size is the length
// received, which exceeds len(Body) when the document was truncated.
type Listing struct {
	URL  string
	Body []byte
	Kind providers.ContentKind
	Size int
}

// Truncated reports whether Body was cut at the listing size limit.
func (l Listing) Truncated() bool {
	return l.Size > len(l.Body)
}

// CheckKind compares the declared kind with the markup the document starts
// with. Documents whose type cannot be told from their first bytes pass.
func (l Listing) CheckKind() error {
	got := sniffKind(l.Body)
	if got == "" || got == l.Kind {
		return nil
	}
	return fmt.Errorf("%s: declared %s, received %s: %w", l.URL, l.Kind, got, ErrContentKind)
}

// FetchListing retrieves the listing document declared by the provider.
func FetchListing(ctx context.Context, client httpclient.Client, cfg providers.Provider) (Listing, error) {
	body, err := fetchPage(ctx, client, cfg.SourceURL, providers.Headers(cfg))
	if err != nil {
		return Listing{}, err
	}
	size := len(body)
	if size > maxListingBytes {
		body = body[:maxListingBytes]
	}
	return Listing{URL: cfg.SourceURL, Body: body, Kind: cfg.ContentKind(), Size: size}, nil
}

// fetchPage GETs url and returns the body of a 200 response.
func fetchPage(ctx context.Context, client httpclient.Client, url string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &FetchError{
			URL:    url,
			Status: resp.StatusCode(),
			Err:    fmt.Errorf("unexpected response: %s", responseSnippet(resp.Body())),
		}
	}
	return resp.Body(), nil
}

func responseSnippet(body []byte) string {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxSnippetLength {
		snippet = snippet[:maxSnippetLength]
	}
	if snippet == "" {
		return "empty body"
	}
	return snippet
}

var (
	htmlRoots = []string{"<!doctype html", "<html"}
	xmlRoots  = []string{"<rss", "<feed", "<urlset", "<sitemapindex", "<rdf:rdf", "<?xml-stylesheet"}
)

// sniffKind tells HTML pages from feed and sitemap documents by their first
// element, skipping a byte order mark and the XML declaration.
func sniffKind(body []byte) providers.ContentKind {
	head := bytes.TrimLeft(body[:min(len(body), sniffBytes)], "\ufeff \t\r\n")
	head = bytes.ToLower(head)
	if rest, ok := bytes.CutPrefix(head, []byte("<?xml ")); ok {
		if _, after, found := bytes.Cut(rest, []byte("?>")); found {
			head = bytes.TrimLeft(after, " \t\r\n")
		}
	}

	hasRoot := func(roots []string) bool {
		for _, r := range roots {
			if bytes.HasPrefix(head, []byte(r)) {
				return true
			}
		}
		return false
	}
	switch {
	case hasRoot(htmlRoots):
		return providers.ContentHTML
	case hasRoot(xmlRoots):
		return providers.ContentXML
	}
	return ""
}
