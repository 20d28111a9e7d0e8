package providers

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/econodata/noticias-harvester/internal/domain"
)

type googleNewsSitemap struct {
	URLs []googleNewsURL `xml:"url"`
}

type googleNewsURL struct {
	Loc    string            `xml:"loc"`
	News   googleNewsDetail  `xml:"news"`
	Images []googleNewsImage `xml:"image"`
}

type googleNewsDetail struct {
	PublicationDate string `xml:"publication_date"`
	Title           string `xml:"title"`
}

type googleNewsImage struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	Sitemaps []sitemapIndexEntry `xml:"sitemap"`
}

type sitemapIndexEntry struct {
	Loc string `xml:"loc"`
}

// SitemapIndexError is returned when a news-sitemap listing turns out to be a
// sitemap index. Callers may fetch the nested sitemaps and parse them in turn.
type SitemapIndexError struct {
	Sitemaps []string
}

func (e *SitemapIndexError) Error() string {
	return fmt.Sprintf("document is a sitemap index of %d sitemaps (first: %s)", len(e.Sitemaps), e.Sitemaps[0])
}

// sitemapParser reads Google News sitemaps, which carry title and publication
// date for every URL.
type sitemapParser struct {
	sourceID string
	dates    dateParser
}

func newSitemapParser(cfg Provider) (Source, error) {
	p := &sitemapParser{
		sourceID: cfg.ID,
		dates:    newDateParser(cfg.Location(), cfg.DateLayouts),
	}
	return Source{Provider: cfg, Listing: p}, nil
}

func (p *sitemapParser) ParseListing(doc []byte) (ParseResult, error) {
	var sitemap googleNewsSitemap
	if err := xml.Unmarshal(doc, &sitemap); err != nil {
		return ParseResult{}, fmt.Errorf("decode google news sitemap: %w", err)
	}

	if len(sitemap.URLs) == 0 {
		nested, err := parseSitemapIndex(doc)
		if err == nil && len(nested) > 0 {
			return ParseResult{}, &SitemapIndexError{Sitemaps: nested}
		}
	}

	var res ParseResult
	for i, entry := range sitemap.URLs {
		art, err := p.article(entry)
		if err != nil {
			res.skip(fmt.Errorf("url %d: %w", i, err))
			continue
		}
		res.add(Candidate{Article: art})
	}
	return res, nil
}

func (p *sitemapParser) article(entry googleNewsURL) (domain.Article, error) {
	loc := strings.TrimSpace(entry.Loc)
	if loc == "" {
		return domain.Article{}, fmt.Errorf("loc: %w", ErrFieldMissing)
	}
	title := strings.TrimSpace(entry.News.Title)
	if title == "" {
		return domain.Article{}, fmt.Errorf("news:title: %w", ErrFieldMissing)
	}
	published, err := p.dates.Parse(entry.News.PublicationDate)
	if err != nil {
		return domain.Article{}, err
	}

	return domain.Article{
		SourceID:    p.sourceID,
		Title:       title,
		URL:         loc,
		ImageURL:    firstImageURL(entry.Images),
		PublishedAt: published,
	}, nil
}

// parseSitemapIndex parses an XML sitemap index file and returns the nested sitemap URLs.
func parseSitemapIndex(data []byte) ([]string, error) {
	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(index.Sitemaps))
	for _, entry := range index.Sitemaps {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

// firstImageURL returns the first non-empty image URL from the list.
func firstImageURL(images []googleNewsImage) string {
	for _, img := range images {
		if loc := strings.TrimSpace(img.Loc); loc != "" {
			return loc
		}
	}
	return ""
}
